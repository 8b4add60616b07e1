package domain

import "time"

// Card is a single front/back flashcard inside a FlashcardSet.
type Card struct {
	ID           string     `json:"id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Tags         []string   `json:"tags"`
	Hash         string     `json:"hash,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastReviewed *time.Time `json:"last_reviewed"`
	ReviewCount  int        `json:"review_count"`
	// Difficulty is the learner's last rating on a 0-3 scale: 0 easy, 3 hard.
	Difficulty int `json:"difficulty"`
}

// Reviewed reports whether the card has been reviewed at least once.
func (c Card) Reviewed() bool {
	return c.LastReviewed != nil
}

// FlashcardSet is a named collection of cards, persisted as one record.
type FlashcardSet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Cards       []Card    `json:"cards"`
}

// FindCard returns a pointer into the set's card slice, or nil.
func (s *FlashcardSet) FindCard(cardID string) *Card {
	for i := range s.Cards {
		if s.Cards[i].ID == cardID {
			return &s.Cards[i]
		}
	}
	return nil
}

// SetSummary is the listing view of a FlashcardSet.
type SetSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CardCount   int       `json:"card_count"`
}

// Summary drops the cards and keeps their count.
func (s FlashcardSet) Summary() SetSummary {
	return SetSummary{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CardCount:   len(s.Cards),
	}
}

// Package flashcards stores flashcard sets and decides what to study next.
package flashcards

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/filestore"
	"github.com/conorfennell/knolstudy/internal/knol"
	"github.com/conorfennell/knolstudy/internal/validation"
)

// Card difficulty bounds.
const (
	MinDifficulty = 0
	MaxDifficulty = 3
)

// ErrNotFound means the set id does not resolve to a readable record.
var ErrNotFound = errors.New("flashcard set not found")

// NewSet is the input for Sets.Create.
type NewSet struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// NewCard is the input for Sets.AddCard.
type NewCard struct {
	Front string   `json:"front" validate:"required"`
	Back  string   `json:"back" validate:"required"`
	Tags  []string `json:"tags"`
}

// ReviewScheduler keeps spaced-repetition state alongside the sets.
type ReviewScheduler interface {
	Record(setID string, card domain.Card, at time.Time) error
	Due(set *domain.FlashcardSet, at time.Time) ([]domain.Card, error)
}

// Sets is the flashcard set store.
type Sets struct {
	store     *filestore.Store
	scheduler ReviewScheduler
	log       *slog.Logger
	validate  *validator.Validate
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSets returns a set store backed by the given record directory.
// scheduler may be nil.
func NewSets(store *filestore.Store, scheduler ReviewScheduler, logger *slog.Logger) *Sets {
	return &Sets{
		store:     store,
		scheduler: scheduler,
		log:       logger,
		validate:  validation.New(),
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Create allocates and persists an empty set.
func (s *Sets) Create(in NewSet) (*domain.FlashcardSet, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid flashcard set: %w", err)
	}

	now := s.now()
	set := &domain.FlashcardSet{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Cards:       []domain.Card{},
	}
	if err := s.store.Put(set.ID, set); err != nil {
		return nil, fmt.Errorf("failed to save flashcard set %s: %w", set.ID, err)
	}
	s.log.Info("Saved flashcard set", "id", set.ID, "title", set.Title)
	return set, nil
}

// AddCard appends one card to a set.
func (s *Sets) AddCard(setID string, in NewCard) (*domain.FlashcardSet, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid flashcard: %w", err)
	}
	set, _, err := s.appendCards(setID, []domain.Card{{Front: in.Front, Back: in.Back, Tags: in.Tags}}, false)
	return set, err
}

// AddCards appends a batch of cards in a single write. Cards whose content
// hash is already in the set, or repeats earlier in the batch, are skipped.
// It returns the updated set and how many cards were added.
func (s *Sets) AddCards(setID string, cards []domain.Card) (*domain.FlashcardSet, int, error) {
	return s.appendCards(setID, cards, true)
}

func (s *Sets) appendCards(setID string, cards []domain.Card, dedupe bool) (*domain.FlashcardSet, int, error) {
	var (
		set   domain.FlashcardSet
		added int
	)
	err := s.store.Update(setID, &set, func() error {
		seen := make(map[string]bool, len(set.Cards)+len(cards))
		for _, c := range set.Cards {
			if c.Hash != "" {
				seen[c.Hash] = true
			}
		}

		now := s.now()
		for _, c := range cards {
			if c.Tags == nil {
				c.Tags = []string{}
			}
			if c.Hash == "" {
				c.Hash = knol.Hash(c)
			}
			if dedupe && seen[c.Hash] {
				continue
			}
			seen[c.Hash] = true

			set.Cards = append(set.Cards, domain.Card{
				ID:        uuid.NewString(),
				Front:     c.Front,
				Back:      c.Back,
				Tags:      c.Tags,
				Hash:      c.Hash,
				CreatedAt: now,
			})
			added++
		}
		set.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, 0, s.lookupError(setID, err)
	}
	s.log.Info("Saved flashcard set", "id", set.ID, "title", set.Title, "added", added, "cards", len(set.Cards))
	return &set, added, nil
}

// Get loads a set. Missing and unreadable sets both yield ErrNotFound.
func (s *Sets) Get(setID string) (*domain.FlashcardSet, error) {
	var set domain.FlashcardSet
	if err := s.store.Get(setID, &set); err != nil {
		return nil, s.lookupError(setID, err)
	}
	return &set, nil
}

// List returns summaries of every readable set, oldest first.
func (s *Sets) List() ([]domain.SetSummary, error) {
	ids, err := s.store.IDs()
	if err != nil {
		return nil, err
	}

	summaries := []domain.SetSummary{}
	for _, id := range ids {
		var set domain.FlashcardSet
		if err := s.store.Get(id, &set); err != nil {
			s.log.Warn("Skipping unreadable flashcard set", "id", id, "error", err)
			continue
		}
		summaries = append(summaries, set.Summary())
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// CardsToReview loads a set and returns up to limit cards in review order.
func (s *Sets) CardsToReview(setID string, limit int) ([]domain.Card, error) {
	set, err := s.Get(setID)
	if err != nil {
		return nil, err
	}
	return SelectForReview(set, limit), nil
}

// RecordReview stores the learner's difficulty rating for a card.
// Difficulty is clamped to [MinDifficulty, MaxDifficulty]. An unknown card
// leaves the cards untouched but the set's updated_at is still refreshed.
func (s *Sets) RecordReview(setID, cardID string, difficulty int) (*domain.FlashcardSet, error) {
	difficulty = min(max(difficulty, MinDifficulty), MaxDifficulty)

	var (
		set      domain.FlashcardSet
		reviewed *domain.Card
	)
	err := s.store.Update(setID, &set, func() error {
		now := s.now()
		if card := set.FindCard(cardID); card != nil {
			card.LastReviewed = &now
			card.ReviewCount++
			card.Difficulty = difficulty
			c := *card
			reviewed = &c
		} else {
			s.log.Warn("Reviewed card not in set", "set_id", setID, "card_id", cardID)
		}
		set.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.lookupError(setID, err)
	}

	if reviewed != nil && s.scheduler != nil {
		if err := s.scheduler.Record(setID, *reviewed, *reviewed.LastReviewed); err != nil {
			s.log.Error("Failed to update review schedule", "set_id", setID, "card_id", cardID, "error", err)
		}
	}
	return &set, nil
}

// Due returns the cards of a set that are due for review at the current
// time. Without a scheduler, every card that was never reviewed is due.
func (s *Sets) Due(setID string) ([]domain.Card, error) {
	set, err := s.Get(setID)
	if err != nil {
		return nil, err
	}
	if s.scheduler == nil {
		due := []domain.Card{}
		for _, c := range set.Cards {
			if !c.Reviewed() {
				due = append(due, c)
			}
		}
		return due, nil
	}

	due, err := s.scheduler.Due(set, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load due cards for set %s: %w", setID, err)
	}
	return due, nil
}

// PracticeQuiz loads a set and builds a multiple-choice drill from it.
func (s *Sets) PracticeQuiz(setID string, count int) (*PracticeQuiz, error) {
	set, err := s.Get(setID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildPracticeQuiz(set, count, s.rng)
}

func (s *Sets) lookupError(setID string, err error) error {
	var corrupt *filestore.CorruptError
	switch {
	case errors.As(err, &corrupt):
		s.log.Error("Error loading flashcard set", "id", setID, "error", err)
		return ErrNotFound
	case errors.Is(err, filestore.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to load flashcard set %s: %w", setID, err)
	}
}

package domain

import "time"

// CardSchedule is the spaced-repetition state of a card.
type CardSchedule struct {
	CardID     string
	SetID      string
	Stability  float64
	Difficulty float64
	DueDate    time.Time
	LastReview *time.Time
	State      int // 0: New, 1: Learning, 2: Review
}

// ReviewLog records a single review event for a card.
// The Grade corresponds to FSRS-4.5 ratings:
// 1: Again (Incorrect)
// 2: Hard
// 3: Good
// 4: Easy
type ReviewLog struct {
	CardID     string    `json:"card_id"`
	SetID      string    `json:"set_id"`
	Timestamp  time.Time `json:"timestamp"`
	Grade      int       `json:"grade"`
	Difficulty int       `json:"difficulty"`
}

// QuizResult is the outcome of a completed QuizSession.
type QuizResult struct {
	SessionID   string    `json:"session_id"`
	QuizID      string    `json:"quiz_id"`
	UserID      *string   `json:"user_id"`
	Score       int       `json:"score"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

package flashcards

import (
	"fmt"
	"sort"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
)

// Schedule states.
const (
	StateNew    = 0
	StateReview = 2
)

// ScheduleStore persists card schedules and the review log.
type ScheduleStore interface {
	FindCardSchedule(cardID string) (*domain.CardSchedule, error)
	SaveCardSchedule(cs domain.CardSchedule) error
	InsertReviewLog(log domain.ReviewLog) error
	CardSchedules(setID string) ([]domain.CardSchedule, error)
}

// Scheduler runs FSRS over flashcard reviews.
type Scheduler struct {
	store  ScheduleStore
	params *fsrs.Params
}

// NewScheduler returns a scheduler using params, or fsrs.DefaultParams when nil.
func NewScheduler(store ScheduleStore, params *fsrs.Params) *Scheduler {
	if params == nil {
		params = fsrs.DefaultParams()
	}
	return &Scheduler{store: store, params: params}
}

// Record advances the card's schedule for a review at the given time and
// appends it to the review log.
func (s *Scheduler) Record(setID string, card domain.Card, at time.Time) error {
	current, err := s.store.FindCardSchedule(card.ID)
	if err != nil {
		return err
	}

	var state fsrs.CardState
	if current != nil {
		state.Stability = current.Stability
		state.Difficulty = current.Difficulty
		if current.LastReview != nil {
			state.LastReview = *current.LastReview
		}
	}

	rating := fsrs.RatingForDifficulty(card.Difficulty)
	next := s.params.NextState(state, rating, at)
	reviewedAt := next.LastReview

	schedule := domain.CardSchedule{
		CardID:     card.ID,
		SetID:      setID,
		Stability:  next.Stability,
		Difficulty: next.Difficulty,
		DueDate:    fsrs.NextDueDate(at, next.Stability),
		LastReview: &reviewedAt,
		State:      StateReview,
	}
	if err := s.store.SaveCardSchedule(schedule); err != nil {
		return err
	}

	err = s.store.InsertReviewLog(domain.ReviewLog{
		CardID:     card.ID,
		SetID:      setID,
		Timestamp:  at,
		Grade:      int(rating),
		Difficulty: card.Difficulty,
	})
	if err != nil {
		return fmt.Errorf("failed to log review for card %s: %w", card.ID, err)
	}
	return nil
}

// Due returns the set's cards due at the given time: cards without a
// schedule first, in set order, then scheduled cards by due date.
func (s *Scheduler) Due(set *domain.FlashcardSet, at time.Time) ([]domain.Card, error) {
	schedules, err := s.store.CardSchedules(set.ID)
	if err != nil {
		return nil, err
	}
	dueDates := make(map[string]time.Time, len(schedules))
	for _, cs := range schedules {
		dueDates[cs.CardID] = cs.DueDate
	}

	fresh := []domain.Card{}
	var scheduled []domain.Card
	for _, c := range set.Cards {
		due, ok := dueDates[c.ID]
		switch {
		case !ok:
			fresh = append(fresh, c)
		case !due.After(at):
			scheduled = append(scheduled, c)
		}
	}
	sort.SliceStable(scheduled, func(i, j int) bool {
		return dueDates[scheduled[i].ID].Before(dueDates[scheduled[j].ID])
	})
	return append(fresh, scheduled...), nil
}

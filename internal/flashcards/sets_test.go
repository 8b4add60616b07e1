package flashcards

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/filestore"
)

// recordingScheduler remembers every review it is told about.
type recordingScheduler struct {
	mu      sync.Mutex
	records []domain.Card
	err     error
}

func (r *recordingScheduler) Record(setID string, card domain.Card, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, card)
	return r.err
}

func (r *recordingScheduler) Due(set *domain.FlashcardSet, at time.Time) ([]domain.Card, error) {
	return set.Cards[:1], nil
}

func newTestSets(t *testing.T, scheduler ReviewScheduler) *Sets {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "flashcards"))
	require.NoError(t, err)
	sets := NewSets(store, scheduler, slog.New(slog.DiscardHandler))
	sets.now = steppingClock()
	return sets
}

// steppingClock returns a clock that moves forward one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func seedSet(t *testing.T, sets *Sets, fronts ...string) *domain.FlashcardSet {
	t.Helper()
	set, err := sets.Create(NewSet{Title: "Capitals", Description: "European capitals"})
	require.NoError(t, err)
	for _, front := range fronts {
		set, err = sets.AddCard(set.ID, NewCard{Front: front, Back: "answer to " + front})
		require.NoError(t, err)
	}
	return set
}

func TestCreateAndGetSet(t *testing.T) {
	sets := newTestSets(t, nil)

	created, err := sets.Create(NewSet{Title: "Capitals", Description: "European capitals"})
	require.NoError(t, err)

	got, err := sets.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Capitals", got.Title)
	assert.Equal(t, "European capitals", got.Description)
	assert.NotNil(t, got.Cards)
	assert.Empty(t, got.Cards)

	_, err = sets.Create(NewSet{})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestAddCard(t *testing.T) {
	sets := newTestSets(t, nil)
	set := seedSet(t, sets)

	updated, err := sets.AddCard(set.ID, NewCard{Front: "France", Back: "Paris", Tags: []string{"europe"}})
	require.NoError(t, err)
	require.Len(t, updated.Cards, 1)

	card := updated.Cards[0]
	assert.NotEmpty(t, card.ID)
	assert.NotEmpty(t, card.Hash)
	assert.Equal(t, "France", card.Front)
	assert.Equal(t, "Paris", card.Back)
	assert.Equal(t, []string{"europe"}, card.Tags)
	assert.Nil(t, card.LastReviewed)
	assert.Zero(t, card.ReviewCount)
	assert.Zero(t, card.Difficulty)
	assert.True(t, updated.UpdatedAt.After(set.UpdatedAt))

	_, err = sets.AddCard(set.ID, NewCard{Front: "No back"})
	assert.Error(t, err)

	_, err = sets.AddCard("missing", NewCard{Front: "Spain", Back: "Madrid"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddCardKeepsRepeatedCards(t *testing.T) {
	sets := newTestSets(t, nil)
	set := seedSet(t, sets)

	_, err := sets.AddCard(set.ID, NewCard{Front: "France", Back: "Paris"})
	require.NoError(t, err)
	updated, err := sets.AddCard(set.ID, NewCard{Front: "France", Back: "Paris"})
	require.NoError(t, err)

	require.Len(t, updated.Cards, 2)
	assert.NotEqual(t, updated.Cards[0].ID, updated.Cards[1].ID)
	assert.Equal(t, updated.Cards[0].Hash, updated.Cards[1].Hash)
}

func TestAddCardsSkipsDuplicates(t *testing.T) {
	sets := newTestSets(t, nil)
	set := seedSet(t, sets)

	batch := []domain.Card{
		{Front: "France", Back: "Paris"},
		{Front: "Spain", Back: "Madrid"},
		{Front: "  france ", Back: "PARIS"},
	}
	updated, added, err := sets.AddCards(set.ID, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, updated.Cards, 2)

	updated, added, err = sets.AddCards(set.ID, batch)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Len(t, updated.Cards, 2)
}

func TestListSets(t *testing.T) {
	sets := newTestSets(t, nil)
	first := seedSet(t, sets, "a", "b")
	second := seedSet(t, sets)

	require.NoError(t, os.WriteFile(filepath.Join(sets.store.Dir(), "broken.json"), []byte("{"), 0o644))

	summaries, err := sets.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, 2, summaries[0].CardCount)
	assert.Equal(t, second.ID, summaries[1].ID)
	assert.Zero(t, summaries[1].CardCount)
}

func TestGetCorruptSetIsNotFound(t *testing.T) {
	sets := newTestSets(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(sets.store.Dir(), "broken.json"), []byte("not json"), 0o644))

	_, err := sets.Get("broken")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = sets.RecordReview("broken", "card", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordReview(t *testing.T) {
	testCases := []struct {
		name       string
		difficulty int
		expected   int
	}{
		{"in range", 2, 2},
		{"clamped down", 7, MaxDifficulty},
		{"clamped up", -2, MinDifficulty},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			scheduler := &recordingScheduler{}
			sets := newTestSets(t, scheduler)
			set := seedSet(t, sets, "France")
			cardID := set.Cards[0].ID

			updated, err := sets.RecordReview(set.ID, cardID, tc.difficulty)
			require.NoError(t, err)

			card := updated.FindCard(cardID)
			require.NotNil(t, card)
			assert.Equal(t, tc.expected, card.Difficulty)
			assert.Equal(t, 1, card.ReviewCount)
			require.NotNil(t, card.LastReviewed)
			assert.Equal(t, updated.UpdatedAt, *card.LastReviewed)

			stored, err := sets.Get(set.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, stored.FindCard(cardID).ReviewCount)

			require.Len(t, scheduler.records, 1)
			assert.Equal(t, tc.expected, scheduler.records[0].Difficulty)
		})
	}
}

func TestRecordReviewCountsEveryReview(t *testing.T) {
	sets := newTestSets(t, nil)
	set := seedSet(t, sets, "France")
	cardID := set.Cards[0].ID

	for i := 1; i <= 3; i++ {
		updated, err := sets.RecordReview(set.ID, cardID, 1)
		require.NoError(t, err)
		assert.Equal(t, i, updated.FindCard(cardID).ReviewCount)
	}
}

func TestRecordReviewUnknownCard(t *testing.T) {
	scheduler := &recordingScheduler{}
	sets := newTestSets(t, scheduler)
	set := seedSet(t, sets, "France")

	updated, err := sets.RecordReview(set.ID, "no-such-card", 3)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(set.UpdatedAt))
	assert.Equal(t, set.Cards, updated.Cards)
	assert.Empty(t, scheduler.records)
}

func TestRecordReviewSchedulerFailureIsLogged(t *testing.T) {
	scheduler := &recordingScheduler{err: errors.New("db is gone")}
	sets := newTestSets(t, scheduler)
	set := seedSet(t, sets, "France")

	updated, err := sets.RecordReview(set.ID, set.Cards[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Cards[0].ReviewCount)
}

func TestDue(t *testing.T) {
	t.Run("without a scheduler", func(t *testing.T) {
		sets := newTestSets(t, nil)
		set := seedSet(t, sets, "France", "Spain")
		_, err := sets.RecordReview(set.ID, set.Cards[0].ID, 1)
		require.NoError(t, err)

		due, err := sets.Due(set.ID)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "Spain", due[0].Front)
	})

	t.Run("with a scheduler", func(t *testing.T) {
		sets := newTestSets(t, &recordingScheduler{})
		set := seedSet(t, sets, "France", "Spain")

		due, err := sets.Due(set.ID)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "France", due[0].Front)
	})

	t.Run("unknown set", func(t *testing.T) {
		sets := newTestSets(t, nil)
		_, err := sets.Due("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCardsToReview(t *testing.T) {
	sets := newTestSets(t, nil)
	set := seedSet(t, sets, "France", "Spain", "Italy")
	_, err := sets.RecordReview(set.ID, set.Cards[0].ID, 3)
	require.NoError(t, err)

	cards, err := sets.CardsToReview(set.ID, 2)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Spain", cards[0].Front)
	assert.Equal(t, "Italy", cards[1].Front)

	_, err = sets.CardsToReview("missing", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

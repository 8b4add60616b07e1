package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knolstudy/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestCardSchedules(t *testing.T) {
	db := openTestDB(t)
	reviewed := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	missing, err := db.FindCardSchedule("c1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cs := domain.CardSchedule{
		CardID:     "c1",
		SetID:      "s1",
		Stability:  1.5,
		Difficulty: 0.5,
		DueDate:    reviewed.Add(48 * time.Hour),
		LastReview: &reviewed,
		State:      2,
	}
	require.NoError(t, db.SaveCardSchedule(cs))

	got, err := db.FindCardSchedule("c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.SetID)
	assert.Equal(t, 1.5, got.Stability)
	assert.Equal(t, 0.5, got.Difficulty)
	assert.WithinDuration(t, cs.DueDate, got.DueDate, 0)
	require.NotNil(t, got.LastReview)
	assert.WithinDuration(t, reviewed, *got.LastReview, 0)
	assert.Equal(t, 2, got.State)

	// Saving again replaces the row.
	cs.Stability = 3
	require.NoError(t, db.SaveCardSchedule(cs))
	got, err = db.FindCardSchedule("c1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Stability)

	require.NoError(t, db.SaveCardSchedule(domain.CardSchedule{CardID: "c2", SetID: "s1", DueDate: reviewed}))
	require.NoError(t, db.SaveCardSchedule(domain.CardSchedule{CardID: "c3", SetID: "s2", DueDate: reviewed}))

	schedules, err := db.CardSchedules("s1")
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "c2", schedules[0].CardID)
	assert.Nil(t, schedules[0].LastReview)
	assert.Equal(t, "c1", schedules[1].CardID)
}

func TestReviewLogs(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.InsertReviewLog(domain.ReviewLog{CardID: "c1", SetID: "s1", Timestamp: at, Grade: 3, Difficulty: 1}))
	require.NoError(t, db.InsertReviewLog(domain.ReviewLog{CardID: "c1", SetID: "s1", Timestamp: at.Add(time.Hour), Grade: 1, Difficulty: 3}))
	require.NoError(t, db.InsertReviewLog(domain.ReviewLog{CardID: "c2", SetID: "s1", Timestamp: at, Grade: 4, Difficulty: 0}))

	logs, err := db.ReviewLogs("c1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 3, logs[0].Grade)
	assert.Equal(t, 1, logs[1].Grade)
	assert.Equal(t, 3, logs[1].Difficulty)
	assert.WithinDuration(t, at.Add(time.Hour), logs[1].Timestamp, 0)
}

func TestQuizResults(t *testing.T) {
	db := openTestDB(t)
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	user := "learner-1"

	require.NoError(t, db.SaveQuizResult(domain.QuizResult{
		SessionID: "sess-2", QuizID: "q1", Score: 50, Correct: 1, Total: 2, CompletedAt: at.Add(time.Hour),
	}))
	require.NoError(t, db.SaveQuizResult(domain.QuizResult{
		SessionID: "sess-1", QuizID: "q1", UserID: &user, Score: 75, Correct: 3, Total: 4, CompletedAt: at,
	}))
	require.NoError(t, db.SaveQuizResult(domain.QuizResult{
		SessionID: "sess-3", QuizID: "q2", Score: 100, Correct: 1, Total: 1, CompletedAt: at,
	}))

	// A corrected answer after completion updates the stored result.
	require.NoError(t, db.SaveQuizResult(domain.QuizResult{
		SessionID: "sess-1", QuizID: "q1", UserID: &user, Score: 100, Correct: 4, Total: 4, CompletedAt: at,
	}))

	results, err := db.QuizResults("q1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sess-1", results[0].SessionID)
	assert.Equal(t, 100, results[0].Score)
	assert.Equal(t, 4, results[0].Correct)
	require.NotNil(t, results[0].UserID)
	assert.Equal(t, user, *results[0].UserID)
	assert.Equal(t, "sess-2", results[1].SessionID)
	assert.Nil(t, results[1].UserID)

	none, err := db.QuizResults("unknown")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

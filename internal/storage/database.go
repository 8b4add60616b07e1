package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/knolstudy/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time keeps sqlite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// FindCardSchedule retrieves a card's schedule. It returns nil, nil when the
// card has never been scheduled.
func (db *DB) FindCardSchedule(cardID string) (*domain.CardSchedule, error) {
	row := db.conn.QueryRow(`
		SELECT card_id, set_id, stability, difficulty, due_date, last_review, state
		FROM card_schedules WHERE card_id = ?
	`, cardID)

	cs, err := scanCardSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Card not scheduled
		}
		return nil, fmt.Errorf("failed to find schedule for card %s: %w", cardID, err)
	}
	return cs, nil
}

// SaveCardSchedule inserts or replaces a card's schedule.
func (db *DB) SaveCardSchedule(cs domain.CardSchedule) error {
	var lastReview sql.NullTime
	if cs.LastReview != nil {
		lastReview = sql.NullTime{Time: cs.LastReview.UTC(), Valid: true}
	}

	_, err := db.conn.Exec(`
		INSERT INTO card_schedules (card_id, set_id, stability, difficulty, due_date, last_review, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			set_id = excluded.set_id,
			stability = excluded.stability,
			difficulty = excluded.difficulty,
			due_date = excluded.due_date,
			last_review = excluded.last_review,
			state = excluded.state
	`,
		cs.CardID,
		cs.SetID,
		cs.Stability,
		cs.Difficulty,
		cs.DueDate.UTC(),
		lastReview,
		cs.State,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule for card %s: %w", cs.CardID, err)
	}
	return nil
}

// CardSchedules retrieves the schedules of every card in a set.
func (db *DB) CardSchedules(setID string) ([]domain.CardSchedule, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, set_id, stability, difficulty, due_date, last_review, state
		FROM card_schedules WHERE set_id = ?
		ORDER BY due_date
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedules for set %s: %w", setID, err)
	}
	defer rows.Close()

	var schedules []domain.CardSchedule
	for rows.Next() {
		cs, err := scanCardSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row for set %s: %w", setID, err)
		}
		schedules = append(schedules, *cs)
	}
	return schedules, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCardSchedule(s scanner) (*domain.CardSchedule, error) {
	var (
		cs         domain.CardSchedule
		lastReview sql.NullTime
	)
	err := s.Scan(
		&cs.CardID,
		&cs.SetID,
		&cs.Stability,
		&cs.Difficulty,
		&cs.DueDate,
		&lastReview,
		&cs.State,
	)
	if err != nil {
		return nil, err
	}
	if lastReview.Valid {
		t := lastReview.Time
		cs.LastReview = &t
	}
	return &cs, nil
}

// InsertReviewLog appends one review to the log.
func (db *DB) InsertReviewLog(log domain.ReviewLog) error {
	_, err := db.conn.Exec(`
		INSERT INTO review_logs (card_id, set_id, timestamp, grade, difficulty)
		VALUES (?, ?, ?, ?, ?)
	`, log.CardID, log.SetID, log.Timestamp.UTC(), log.Grade, log.Difficulty)
	if err != nil {
		return fmt.Errorf("failed to insert review log for card %s: %w", log.CardID, err)
	}
	return nil
}

// ReviewLogs retrieves a card's reviews, oldest first.
func (db *DB) ReviewLogs(cardID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, set_id, timestamp, grade, difficulty
		FROM review_logs WHERE card_id = ?
		ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(&l.CardID, &l.SetID, &l.Timestamp, &l.Grade, &l.Difficulty); err != nil {
			return nil, fmt.Errorf("failed to scan review log row for card %s: %w", cardID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// SaveQuizResult inserts or replaces the result of a quiz session.
func (db *DB) SaveQuizResult(result domain.QuizResult) error {
	var userID sql.NullString
	if result.UserID != nil {
		userID = sql.NullString{String: *result.UserID, Valid: true}
	}

	_, err := db.conn.Exec(`
		INSERT INTO quiz_results (session_id, quiz_id, user_id, score, correct, total, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			score = excluded.score,
			correct = excluded.correct,
			total = excluded.total
	`,
		result.SessionID,
		result.QuizID,
		userID,
		result.Score,
		result.Correct,
		result.Total,
		result.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result for session %s: %w", result.SessionID, err)
	}
	return nil
}

// QuizResults retrieves every recorded result for a quiz, oldest first.
func (db *DB) QuizResults(quizID string) ([]domain.QuizResult, error) {
	rows, err := db.conn.Query(`
		SELECT session_id, quiz_id, user_id, score, correct, total, completed_at
		FROM quiz_results WHERE quiz_id = ?
		ORDER BY completed_at
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results for quiz %s: %w", quizID, err)
	}
	defer rows.Close()

	results := []domain.QuizResult{}
	for rows.Next() {
		var (
			r      domain.QuizResult
			userID sql.NullString
		)
		if err := rows.Scan(&r.SessionID, &r.QuizID, &userID, &r.Score, &r.Correct, &r.Total, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result row for quiz %s: %w", quizID, err)
		}
		if userID.Valid {
			u := userID.String
			r.UserID = &u
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

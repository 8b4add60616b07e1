package storage

const schema = `
-- The 'card_schedules' table stores the spaced-repetition state of each flashcard.
CREATE TABLE IF NOT EXISTS card_schedules (
    card_id TEXT PRIMARY KEY,
    set_id TEXT NOT NULL,
    stability REAL,
    difficulty REAL,
    due_date DATETIME NOT NULL,
    last_review DATETIME,
    state INTEGER DEFAULT 0 -- 0: New, 1: Learning, 2: Review
);

CREATE INDEX IF NOT EXISTS idx_card_schedules_set ON card_schedules(set_id);

-- The 'review_logs' table keeps every review so schedules can be replayed.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    set_id TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    grade INTEGER NOT NULL, -- 1: Again, 2: Hard, 3: Good, 4: Easy
    difficulty INTEGER NOT NULL -- learner rating, 0 easy .. 3 hard
);

-- The 'quiz_results' table holds the outcome of each completed quiz session.
CREATE TABLE IF NOT EXISTS quiz_results (
    session_id TEXT PRIMARY KEY,
    quiz_id TEXT NOT NULL,
    user_id TEXT,
    score INTEGER NOT NULL,
    correct INTEGER NOT NULL,
    total INTEGER NOT NULL,
    completed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_results_quiz ON quiz_results(quiz_id);
`

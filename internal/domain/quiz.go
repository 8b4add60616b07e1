package domain

import "time"

// Question is a multiple-choice question stored in a QuestionBank.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"question_text"`
	Answers            []string `json:"answers"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Explanation        string   `json:"explanation"`
}

// QuestionBank is a quiz: a titled, ordered collection of questions.
type QuestionBank struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `json:"questions"`
}

// FindQuestion returns the question with the given id, or nil.
func (b *QuestionBank) FindQuestion(questionID string) *Question {
	for i := range b.Questions {
		if b.Questions[i].ID == questionID {
			return &b.Questions[i]
		}
	}
	return nil
}

// BankSummary is the listing view of a QuestionBank.
type BankSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	QuestionCount int       `json:"question_count"`
}

// Summary drops the question bodies and keeps their count.
func (b QuestionBank) Summary() BankSummary {
	return BankSummary{
		ID:            b.ID,
		Title:         b.Title,
		Description:   b.Description,
		Category:      b.Category,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		QuestionCount: len(b.Questions),
	}
}

// SessionQuestion is the client-facing copy of a Question. It deliberately
// has no correct-answer field; grading always goes back to the bank.
type SessionQuestion struct {
	ID              string   `json:"id"`
	Text            string   `json:"question_text"`
	Answers         []string `json:"answers"`
	Explanation     string   `json:"explanation,omitempty"`
	UserAnswerIndex *int     `json:"user_answer_index"`
	IsCorrect       *bool    `json:"is_correct"`
}

// QuizSession is one run through a sample of a bank's questions.
type QuizSession struct {
	ID                   string            `json:"id"`
	QuizID               string            `json:"quiz_id"`
	UserID               *string           `json:"user_id"`
	Title                string            `json:"title"`
	StartedAt            time.Time         `json:"started_at"`
	CompletedAt          *time.Time        `json:"completed_at"`
	Questions            []SessionQuestion `json:"questions"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	Score                *int              `json:"score"`
}

// Completed reports whether the session has reached its last question.
func (s *QuizSession) Completed() bool {
	return s.CompletedAt != nil
}

// CorrectCount counts the questions answered correctly so far.
func (s *QuizSession) CorrectCount() int {
	n := 0
	for _, q := range s.Questions {
		if q.IsCorrect != nil && *q.IsCorrect {
			n++
		}
	}
	return n
}

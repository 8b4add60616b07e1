package quiz

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// DefaultSessionSize is how many questions a session draws from a bank.
const DefaultSessionSize = 5

// BankSource resolves question banks by id.
type BankSource interface {
	Get(bankID string) (*domain.QuestionBank, error)
}

// ResultRecorder persists the outcome of completed sessions.
type ResultRecorder interface {
	SaveQuizResult(result domain.QuizResult) error
}

// Engine builds quiz sessions and grades answers against the stored bank.
type Engine struct {
	banks    BankSource
	recorder ResultRecorder
	log      *slog.Logger
	now      func() time.Time

	// SessionSize caps the number of questions per session.
	SessionSize int

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewEngine returns an engine reading banks from banks. recorder may be nil.
func NewEngine(banks BankSource, recorder ResultRecorder, logger *slog.Logger) *Engine {
	return &Engine{
		banks:       banks,
		recorder:    recorder,
		log:         logger,
		now:         time.Now,
		SessionSize: DefaultSessionSize,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// CreateSession starts a session over a random sample of the bank's
// questions. The returned questions carry no answer key.
func (e *Engine) CreateSession(bankID string, userID *string) (*domain.QuizSession, error) {
	bank, err := e.banks.Get(bankID)
	if err != nil {
		return nil, err
	}
	if len(bank.Questions) == 0 {
		return nil, ErrEmptyBank
	}

	e.mu.Lock()
	picked := sample(bank.Questions, e.SessionSize, e.rng)
	e.mu.Unlock()

	questions := make([]domain.SessionQuestion, len(picked))
	for i, q := range picked {
		questions[i] = domain.SessionQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Answers: append([]string(nil), q.Answers...),
		}
	}

	session := &domain.QuizSession{
		ID:        uuid.NewString(),
		QuizID:    bank.ID,
		UserID:    userID,
		Title:     bank.Title,
		StartedAt: e.now(),
		Questions: questions,
	}
	e.log.Info("Created quiz session", "session_id", session.ID, "quiz_id", bank.ID, "questions", len(questions))
	return session, nil
}

// AnswerQuestion records answerIndex for the question at questionIndex and
// grades it against the original bank question.
//
// An out-of-range questionIndex, a bank that no longer resolves, or a
// question that has been removed from the bank leave the session unchanged.
// Answering the same index again overwrites the earlier answer.
func (e *Engine) AnswerQuestion(session *domain.QuizSession, questionIndex, answerIndex int) *domain.QuizSession {
	if session == nil || questionIndex < 0 || questionIndex >= len(session.Questions) {
		return session
	}
	sq := &session.Questions[questionIndex]

	bank, err := e.banks.Get(session.QuizID)
	if err != nil {
		e.log.Warn("Cannot grade answer, bank unavailable", "session_id", session.ID, "quiz_id", session.QuizID, "error", err)
		return session
	}
	original := bank.FindQuestion(sq.ID)
	if original == nil {
		e.log.Warn("Cannot grade answer, question no longer in bank", "session_id", session.ID, "question_id", sq.ID)
		return session
	}

	answer := answerIndex
	correct := answerIndex == original.CorrectAnswerIndex
	sq.UserAnswerIndex = &answer
	sq.IsCorrect = &correct
	sq.Explanation = original.Explanation

	session.CurrentQuestionIndex = questionIndex + 1
	if session.CurrentQuestionIndex >= len(session.Questions) || session.Completed() {
		e.complete(session)
	}
	return session
}

// complete stamps the completion time once and (re)computes the score.
func (e *Engine) complete(session *domain.QuizSession) {
	if session.CompletedAt == nil {
		now := e.now()
		session.CompletedAt = &now
	}
	correct := session.CorrectCount()
	score := Score(correct, len(session.Questions))
	session.Score = &score

	if e.recorder == nil {
		return
	}
	result := domain.QuizResult{
		SessionID:   session.ID,
		QuizID:      session.QuizID,
		UserID:      session.UserID,
		Score:       score,
		Correct:     correct,
		Total:       len(session.Questions),
		CompletedAt: *session.CompletedAt,
	}
	if err := e.recorder.SaveQuizResult(result); err != nil {
		e.log.Warn("Failed to record quiz result", "session_id", session.ID, "error", err)
	}
}

// Score is the percentage of correct answers, rounded half to even.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(100*correct) / float64(total)))
}

// sample returns up to size questions in uniformly random order without
// repeats. A non-positive size keeps every question.
func sample(questions []domain.Question, size int, rng *rand.Rand) []domain.Question {
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if size > 0 && size < len(shuffled) {
		shuffled = shuffled[:size]
	}
	return shuffled
}

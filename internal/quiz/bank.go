// Package quiz stores question banks and runs quiz sessions over them.
package quiz

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/filestore"
	"github.com/conorfennell/knolstudy/internal/validation"
)

// DefaultCategory is used when a bank is created without a category.
const DefaultCategory = "general"

var (
	// ErrNotFound means the bank id does not resolve to a readable record.
	ErrNotFound = errors.New("question bank not found")
	// ErrEmptyBank means the bank has no questions to build a session from.
	ErrEmptyBank = errors.New("question bank has no questions")
)

// NewBank is the input for Banks.Create.
type NewBank struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// NewQuestion is the input for Banks.AddQuestion.
type NewQuestion struct {
	Text         string   `json:"question_text" validate:"required"`
	Answers      []string `json:"answers" validate:"min=2"`
	CorrectIndex int      `json:"correct_answer_index" validate:"gte=0"`
	Explanation  string   `json:"explanation"`
}

// correctIndexInRange rejects a correct index that points past the answers.
func correctIndexInRange(sl validator.StructLevel) {
	q := sl.Current().Interface().(NewQuestion)
	if q.CorrectIndex >= len(q.Answers) {
		sl.ReportError(q.CorrectIndex, "correct_answer_index", "CorrectIndex", "answer_index", "")
	}
}

// Banks is the question bank store.
type Banks struct {
	store    *filestore.Store
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewBanks returns a bank store backed by the given record directory.
func NewBanks(store *filestore.Store, logger *slog.Logger) *Banks {
	v := validation.New()
	v.RegisterStructValidation(correctIndexInRange, NewQuestion{})
	return &Banks{
		store:    store,
		log:      logger,
		validate: v,
		now:      time.Now,
	}
}

// Create allocates and persists an empty bank.
func (b *Banks) Create(in NewBank) (*domain.QuestionBank, error) {
	if err := b.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid question bank: %w", err)
	}
	if in.Category == "" {
		in.Category = DefaultCategory
	}

	now := b.now()
	bank := &domain.QuestionBank{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions:   []domain.Question{},
	}
	if err := b.store.Put(bank.ID, bank); err != nil {
		return nil, fmt.Errorf("failed to save question bank %s: %w", bank.ID, err)
	}
	b.log.Info("Saved question bank", "id", bank.ID, "title", bank.Title)
	return bank, nil
}

// AddQuestion appends a question to an existing bank and persists it.
func (b *Banks) AddQuestion(bankID string, in NewQuestion) (*domain.QuestionBank, error) {
	if err := b.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid question: %w", err)
	}

	var bank domain.QuestionBank
	err := b.store.Update(bankID, &bank, func() error {
		bank.Questions = append(bank.Questions, domain.Question{
			ID:                 uuid.NewString(),
			Text:               in.Text,
			Answers:            append([]string(nil), in.Answers...),
			CorrectAnswerIndex: in.CorrectIndex,
			Explanation:        in.Explanation,
		})
		bank.UpdatedAt = b.now()
		return nil
	})
	if err != nil {
		return nil, b.lookupError(bankID, err)
	}
	b.log.Info("Saved question bank", "id", bank.ID, "title", bank.Title, "questions", len(bank.Questions))
	return &bank, nil
}

// Get loads a bank. Missing and unreadable banks both yield ErrNotFound.
func (b *Banks) Get(bankID string) (*domain.QuestionBank, error) {
	var bank domain.QuestionBank
	if err := b.store.Get(bankID, &bank); err != nil {
		return nil, b.lookupError(bankID, err)
	}
	return &bank, nil
}

// List returns summaries of every bank, optionally only those whose
// category equals category exactly. Unreadable records are skipped.
func (b *Banks) List(category string) ([]domain.BankSummary, error) {
	ids, err := b.store.IDs()
	if err != nil {
		return nil, err
	}

	summaries := []domain.BankSummary{}
	for _, id := range ids {
		var bank domain.QuestionBank
		if err := b.store.Get(id, &bank); err != nil {
			b.log.Warn("Skipping unreadable question bank", "id", id, "error", err)
			continue
		}
		if category != "" && bank.Category != category {
			continue
		}
		summaries = append(summaries, bank.Summary())
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (b *Banks) lookupError(bankID string, err error) error {
	var corrupt *filestore.CorruptError
	switch {
	case errors.As(err, &corrupt):
		b.log.Error("Error loading question bank", "id", bankID, "error", err)
		return ErrNotFound
	case errors.Is(err, filestore.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to load question bank %s: %w", bankID, err)
	}
}

package quiz

import (
	"fmt"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// AutoGeneratedCategory tags banks produced by the Generator.
const AutoGeneratedCategory = "auto-generated"

// Generator turns source text into a question bank.
//
// It is a placeholder: every generated bank holds the same single question,
// whatever the text or requested count.
type Generator struct {
	banks *Banks
}

// NewGenerator returns a generator that saves into banks.
func NewGenerator(banks *Banks) *Generator {
	return &Generator{banks: banks}
}

// GenerateFromText creates an auto-generated bank with one fixed question.
func (g *Generator) GenerateFromText(title, text string, questionCount int) (*domain.QuestionBank, error) {
	bank, err := g.banks.Create(NewBank{
		Title:       title,
		Description: fmt.Sprintf("Quiz generated from content: %s", title),
		Category:    AutoGeneratedCategory,
	})
	if err != nil {
		return nil, err
	}
	return g.banks.AddQuestion(bank.ID, placeholderQuestion)
}

var placeholderQuestion = NewQuestion{
	Text: "What is the main purpose of this feature?",
	Answers: []string{
		"To demonstrate quiz functionality",
		"To test your knowledge",
		"To generate real questions from text",
		"To replace human-created quizzes",
	},
	CorrectIndex: 0,
	Explanation:  "This is just a placeholder showing the structure of auto-generated quizzes.",
}

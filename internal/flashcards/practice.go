package flashcards

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/conorfennell/knolstudy/internal/domain"
)

const (
	// DefaultPracticeCount is used when a non-positive count is requested.
	DefaultPracticeCount = 5
	distractorsPerCard   = 3
)

// ErrNotEnoughCards means the set is too small to draw distractors from.
var ErrNotEnoughCards = errors.New("flashcard set needs at least two cards for a practice quiz")

// PracticeQuestion asks for a card's back given its front.
type PracticeQuestion struct {
	CardID       string   `json:"card_id"`
	Question     string   `json:"question"`
	Answers      []string `json:"answers"`
	CorrectIndex int      `json:"correct_index"`
}

// PracticeQuiz is a throwaway multiple-choice drill over a flashcard set.
type PracticeQuiz struct {
	SetID     string             `json:"set_id"`
	SetTitle  string             `json:"set_title"`
	Questions []PracticeQuestion `json:"questions"`
}

// BuildPracticeQuiz draws up to count cards from the set in random order and
// turns each into a question whose wrong answers are other cards' backs.
func BuildPracticeQuiz(set *domain.FlashcardSet, count int, rng *rand.Rand) (*PracticeQuiz, error) {
	if len(set.Cards) < 2 {
		return nil, ErrNotEnoughCards
	}
	if count <= 0 {
		count = DefaultPracticeCount
	}

	cards := make([]domain.Card, len(set.Cards))
	copy(cards, set.Cards)
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	if count < len(cards) {
		cards = cards[:count]
	}

	quiz := &PracticeQuiz{
		SetID:     set.ID,
		SetTitle:  set.Title,
		Questions: make([]PracticeQuestion, 0, len(cards)),
	}
	for _, card := range cards {
		quiz.Questions = append(quiz.Questions, practiceQuestion(card, set.Cards, rng))
	}
	return quiz, nil
}

func practiceQuestion(card domain.Card, pool []domain.Card, rng *rand.Rand) PracticeQuestion {
	var others []string
	for _, c := range pool {
		if c.ID != card.ID {
			others = append(others, c.Back)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	answers := make([]string, 0, distractorsPerCard+1)
	answers = append(answers, card.Back)
	if len(others) >= distractorsPerCard {
		answers = append(answers, others[:distractorsPerCard]...)
	} else {
		answers = append(answers, others...)
		for i := 0; i < distractorsPerCard-len(others); i++ {
			answers = append(answers, fmt.Sprintf("Incorrect answer %d", i))
		}
	}

	// The correct answer starts at index 0; track it through the shuffle.
	correct := 0
	rng.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
	})

	return PracticeQuestion{
		CardID:       card.ID,
		Question:     card.Front,
		Answers:      answers,
		CorrectIndex: correct,
	}
}

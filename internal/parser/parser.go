// Package parser reads flashcards out of markdown notes.
//
// A card starts with a "Q:" line, its back with "A:", and an optional "C:"
// line lists comma-separated tags. Lines that follow a prefix belong to it
// until the next prefix, a new "Q:", or a "---" separator.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knolstudy/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Cards missing either
// a question or an answer are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(currentBlock, "\n"))
		switch currentState {
		case readingQuestion:
			currentCard.Front = content
		case readingAnswer:
			currentCard.Back = content
		case readingContext:
			currentCard.Tags = splitTags(content)
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Front != "" && currentCard.Back != "" {
			if currentCard.Tags == nil {
				currentCard.Tags = []string{}
			}
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			finishCard()
			continue
		}

		next, prefix := seeking, ""
		switch {
		case strings.HasPrefix(line, questionPrefix):
			next, prefix = readingQuestion, questionPrefix
		case strings.HasPrefix(line, answerPrefix):
			next, prefix = readingAnswer, answerPrefix
		case strings.HasPrefix(line, contextPrefix):
			next, prefix = readingContext, contextPrefix
		}

		if next == seeking {
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
			continue
		}

		if next == readingQuestion && currentState != seeking {
			finishCard() // A new question always starts a new card
		} else {
			flushBlock()
		}
		currentState = next
		currentBlock = append(currentBlock, strings.TrimPrefix(line[len(prefix):], " "))
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func splitTags(content string) []string {
	tags := []string{}
	for _, tag := range strings.Split(content, ",") {
		if t := strings.TrimSpace(tag); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

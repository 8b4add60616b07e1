// Package knol fingerprints flashcard content so the same card can be
// recognised across imports.
package knol

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them. Tags are order-insensitive.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	tags := make([]string, 0, len(card.Tags))
	for _, tag := range card.Tags {
		if t := normalizePart(tag); t != "" {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)

	f := normalizePart(card.Front)
	b := normalizePart(card.Back)
	c := strings.Join(tags, ",")

	// Joined with newlines so "front" and "back" can't run together.
	return strings.Join([]string{f, b, c}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}

package knol

import (
	"testing"

	"github.com/conorfennell/knolstudy/internal/domain"
)

func TestNormalize(t *testing.T) {
	card := domain.Card{
		Front: "  What is HTMX? \r\n",
		Back:  "A library for AJAX.",
		Tags:  []string{"Web Development", " html "},
	}
	expected := "what is htmx?\na library for ajax.\nhtml,web development"
	normalized := Normalize(card)

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("hash is a hex sha-256", func(t *testing.T) {
		hash := Hash(domain.Card{Front: "Q", Back: "A", Tags: []string{"C"}})
		if len(hash) != 64 {
			t.Errorf("Expected a 64 character hash, but got %d characters", len(hash))
		}
	})

	t.Run("hash is deterministic", func(t *testing.T) {
		card1 := domain.Card{Front: "Test"}
		card2 := domain.Card{Front: "Test"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes for identical cards to be the same")
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := domain.Card{
			Front: "  what is go? ",
			Back:  "A programming language.",
			Tags:  []string{"go", "languages"},
		}
		card2 := domain.Card{
			Front: "What Is Go?",
			Back:  "A programming language.",
			Tags:  []string{"Languages", "Go"},
		}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		card1 := domain.Card{Front: "Card 1"}
		card2 := domain.Card{Front: "Card 2"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected hashes for different cards to be different")
		}
	})

	t.Run("front and back do not run together", func(t *testing.T) {
		card1 := domain.Card{Front: "ab", Back: "c"}
		card2 := domain.Card{Front: "a", Back: "bc"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected hashes to differ when content moves between front and back")
		}
	})
}

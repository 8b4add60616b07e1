package flashcards

import (
	"sort"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// SelectForReview orders a set's cards for study and keeps the first limit.
// Cards never reviewed come first, then harder cards, then the least
// reviewed. Ties keep their order in the set. A non-positive limit keeps
// every card. The set itself is not modified.
func SelectForReview(set *domain.FlashcardSet, limit int) []domain.Card {
	cards := make([]domain.Card, len(set.Cards))
	copy(cards, set.Cards)

	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		if a.Reviewed() != b.Reviewed() {
			return !a.Reviewed()
		}
		if a.Difficulty != b.Difficulty {
			return a.Difficulty > b.Difficulty
		}
		return a.ReviewCount < b.ReviewCount
	})

	if limit > 0 && limit < len(cards) {
		cards = cards[:limit]
	}
	return cards
}

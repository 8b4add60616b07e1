// Package sessions keeps live quiz sessions between requests.
package sessions

import (
	"context"
	"errors"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// ErrSessionNotFound means no live session has the given id.
var ErrSessionNotFound = errors.New("quiz session not found")

// Store holds quiz sessions while they are being answered.
type Store interface {
	Save(ctx context.Context, session *domain.QuizSession) error
	Get(ctx context.Context, id string) (*domain.QuizSession, error)
	Delete(ctx context.Context, id string) error
}

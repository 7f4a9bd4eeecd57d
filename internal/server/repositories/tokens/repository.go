// Package tokens declares the repository contract for access tokens.
package tokens

import (
	"context"

	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
)

// Repository manages token rows and their type transitions.
type Repository interface {
	// CountByKey returns how many tokens are bound to key, regardless of type.
	CountByKey(ctx context.Context, key string) (int64, error)

	// Create inserts a new token row.
	Create(ctx context.Context, token *models.Token) error

	// CreateIfAbsent inserts the token unless its id already exists and
	// reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, token *models.Token) (bool, error)

	// Transition moves the token from one type to another in a single
	// conditional update. Returns common.ErrInvalidTokenState when the token
	// does not exist or is not in the from state.
	Transition(ctx context.Context, token string, from, to models.TokenType) error
}

// Package keys declares the repository contract for tenant keys.
package keys

import (
	"context"

	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
)

// Repository reads tenant keys. Keys are created administratively and never
// mutated by the data operations.
type Repository interface {
	// LockKey loads the key row and locks it until the surrounding
	// transaction ends. Returns common.ErrorNotFound when the key is absent.
	LockKey(ctx context.Context, key string) (*models.Key, error)

	// RemoveAdsByToken resolves the key owning token and returns its
	// removeads flag. Returns common.ErrorNotFound when either is absent.
	RemoveAdsByToken(ctx context.Context, token string) (bool, error)

	// EnsureExists inserts the key unless it is already present.
	EnsureExists(ctx context.Context, key *models.Key) error
}

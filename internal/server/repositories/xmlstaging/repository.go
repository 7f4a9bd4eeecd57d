// Package xmlstaging declares the repository contract for opaque payloads
// staged per token.
package xmlstaging

import (
	"context"

	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
)

type Repository interface {
	// Upsert stores the payload for its token, replacing any previous one.
	Upsert(ctx context.Context, staging *models.XMLStaging) error

	// Get returns the payload staged under token, or common.ErrorNotFound.
	Get(ctx context.Context, token string) (string, error)
}

// Package collected declares the repository contract for submitted scan
// results and their per-serial detail.
package collected

import (
	"context"

	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts one collected item under token and returns its id.
	Create(ctx context.Context, token string, barcode string, quantity int64) (int64, error)

	// AddSerial inserts one serial instance for the collected item itemID.
	AddSerial(ctx context.Context, itemID int64, serial *models.SerialQuantity) error

	// SelectByToken returns the collected items under token in insertion order.
	SelectByToken(ctx context.Context, token string) ([]*models.CollectedRecord, error)

	// SelectSerialOwners returns the ids of items under token that have at
	// least one serial instance.
	SelectSerialOwners(ctx context.Context, token string) (map[int64]struct{}, error)

	// SelectSerials returns the serial instances of itemID in insertion order.
	SelectSerials(ctx context.Context, itemID int64) ([]models.SerialQuantity, error)
}

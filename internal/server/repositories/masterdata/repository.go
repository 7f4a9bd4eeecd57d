// Package masterdata declares the repository contract for catalog items and
// their serial whitelists.
package masterdata

import (
	"context"

	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts one catalog item under token and returns its id.
	Create(ctx context.Context, token string, item *models.MasterItem) (int64, error)

	// AddValidSerial inserts one whitelist entry for the item masterID.
	AddValidSerial(ctx context.Context, masterID int64, serial string) error

	// SelectByToken returns the catalog items uploaded under token in
	// insertion order.
	SelectByToken(ctx context.Context, token string) ([]*models.MasterRecord, error)

	// SelectValidSerials returns the whitelists of all items under token,
	// keyed by item id.
	SelectValidSerials(ctx context.Context, token string) (map[int64][]string, error)

	// LookupBarcode returns every distinct name/advanced_name/unit recorded
	// for barcode across all uploads.
	LookupBarcode(ctx context.Context, barcode string) ([]*models.BarcodeInfo, error)
}

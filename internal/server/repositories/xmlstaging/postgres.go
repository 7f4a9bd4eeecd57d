package xmlstaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the payload or overwrites payload and origin address in
// place, so a token never owns more than one row.
func (r *PostgresRepository) Upsert(ctx context.Context, staging *models.XMLStaging) error {
	query := `
		INSERT INTO xmlproxy (token, xmldata, ipaddr)
		VALUES ($1, $2, $3)
		ON CONFLICT (token)
		DO UPDATE SET
			xmldata = EXCLUDED.xmldata,
			ipaddr = EXCLUDED.ipaddr
	`
	var ip sql.NullString
	if staging.IPAddr != nil && *staging.IPAddr != "" {
		ip = sql.NullString{String: *staging.IPAddr, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, staging.Token, staging.Payload, ip); err != nil {
		return dbx.Classify("upsert xmlproxy", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, token string) (string, error) {
	query := `SELECT xmldata FROM xmlproxy WHERE token = $1`

	var payload string
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return payload, nil
}

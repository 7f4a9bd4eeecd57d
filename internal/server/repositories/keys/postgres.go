package keys

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

// LockKey selects the key FOR UPDATE, serializing quota decisions per key.
func (r *PostgresRepository) LockKey(ctx context.Context, key string) (*models.Key, error) {
	query := `
		SELECT key, tokens_limit, removeads
		FROM keys
		WHERE key = $1
		FOR UPDATE
	`
	var (
		k         models.Key
		limit     sql.NullInt64
		removeAds sql.NullBool
	)
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&k.Key, &limit, &removeAds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if limit.Valid {
		k.TokensLimit = &limit.Int64
	}
	k.RemoveAds = removeAds.Valid && removeAds.Bool
	return &k, nil
}

func (r *PostgresRepository) RemoveAdsByToken(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT k.removeads
		FROM keys k
		JOIN tokens t ON t.key = k.key
		WHERE t.token = $1
	`
	var removeAds sql.NullBool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&removeAds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return removeAds.Valid && removeAds.Bool, nil
}

func (r *PostgresRepository) EnsureExists(ctx context.Context, key *models.Key) error {
	query := `
		INSERT INTO keys (key, tokens_limit, removeads)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	var limit sql.NullInt64
	if key.TokensLimit != nil {
		limit = sql.NullInt64{Int64: *key.TokensLimit, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, key.Key, limit, key.RemoveAds); err != nil {
		return dbx.Classify("insert key", err)
	}
	return nil
}

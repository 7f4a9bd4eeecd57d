package tokens

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) CountByKey(ctx context.Context, key string) (int64, error) {
	query := `SELECT count(*) FROM tokens WHERE key = $1`

	var n sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n.Int64, nil
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) error {
	query := `
		INSERT INTO tokens (token, key, ipaddr, type)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, token.Token, token.Key, nullString(token.IPAddr), int(token.Type)); err != nil {
		return dbx.Classify("insert token", err)
	}
	return nil
}

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, token *models.Token) (bool, error) {
	query := `
		INSERT INTO tokens (token, key, ipaddr, type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, token.Token, token.Key, nullString(token.IPAddr), int(token.Type))
	if err != nil {
		return false, dbx.Classify("insert token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Transition(ctx context.Context, token string, from, to models.TokenType) error {
	query := `UPDATE tokens SET type = $1 WHERE token = $2 AND type = $3`

	res, err := r.db.ExecContext(ctx, query, int(to), token, int(from))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrInvalidTokenState
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

package collected

import (
	"context"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, token string, barcode string, quantity int64) (int64, error) {
	query := `
		INSERT INTO collected (token, barcode, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, token, barcode, quantity).Scan(&id); err != nil {
		return 0, dbx.Classify("insert collected", err)
	}
	return id, nil
}

func (r *PostgresRepository) AddSerial(ctx context.Context, itemID int64, serial *models.SerialQuantity) error {
	query := `INSERT INTO serials (barcode_id, serial, quantity) VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, itemID, serial.Serial, serial.Quantity); err != nil {
		return dbx.Classify("insert serials", err)
	}
	return nil
}

func (r *PostgresRepository) SelectByToken(ctx context.Context, token string) ([]*models.CollectedRecord, error) {
	query := `SELECT id, barcode, quantity FROM collected WHERE token = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to select collected: %w", err)
	}
	defer rows.Close()

	var result []*models.CollectedRecord
	for rows.Next() {
		var rec models.CollectedRecord
		if err := rows.Scan(&rec.ID, &rec.Barcode, &rec.Quantity); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SelectSerialOwners(ctx context.Context, token string) (map[int64]struct{}, error) {
	query := `
		SELECT barcode_id FROM serials
		WHERE barcode_id IN (SELECT id FROM collected WHERE token = $1)
		GROUP BY barcode_id
	`
	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to select serial owners: %w", err)
	}
	defer rows.Close()

	owners := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *PostgresRepository) SelectSerials(ctx context.Context, itemID int64) ([]models.SerialQuantity, error) {
	query := `SELECT serial, quantity FROM serials WHERE barcode_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select serials: %w", err)
	}
	defer rows.Close()

	var result []models.SerialQuantity
	for rows.Next() {
		var s models.SerialQuantity
		if err := rows.Scan(&s.Serial, &s.Quantity); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

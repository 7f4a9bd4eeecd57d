package masterdata

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, token string, item *models.MasterItem) (int64, error) {
	query := `
		INSERT INTO masterdata (token, barcode, name, advanced_name, unit, serial)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		token, item.Barcode, item.Name, nullString(item.AdvancedName), nullString(item.Unit), item.Serial).Scan(&id)
	if err != nil {
		return 0, dbx.Classify("insert masterdata", err)
	}
	return id, nil
}

func (r *PostgresRepository) AddValidSerial(ctx context.Context, masterID int64, serial string) error {
	query := `INSERT INTO serials_valid (master, serial) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, masterID, serial); err != nil {
		return dbx.Classify("insert serials_valid", err)
	}
	return nil
}

func (r *PostgresRepository) SelectByToken(ctx context.Context, token string) ([]*models.MasterRecord, error) {
	query := `
		SELECT id, barcode, name, advanced_name, unit, serial
		FROM masterdata
		WHERE token = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to select masterdata: %w", err)
	}
	defer rows.Close()

	var result []*models.MasterRecord
	for rows.Next() {
		var (
			rec          models.MasterRecord
			advancedName sql.NullString
			unit         sql.NullString
			serial       sql.NullBool
		)
		if err := rows.Scan(&rec.ID, &rec.Barcode, &rec.Name, &advancedName, &unit, &serial); err != nil {
			return nil, err
		}
		rec.AdvancedName = stringPtr(advancedName)
		rec.Unit = stringPtr(unit)
		rec.Serial = serial.Valid && serial.Bool
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SelectValidSerials(ctx context.Context, token string) (map[int64][]string, error) {
	query := `
		SELECT sv.master, sv.serial
		FROM serials_valid sv
		JOIN masterdata m ON m.id = sv.master
		WHERE m.token = $1
		ORDER BY sv.id
	`
	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to select serials_valid: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]string)
	for rows.Next() {
		var (
			master int64
			serial string
		)
		if err := rows.Scan(&master, &serial); err != nil {
			return nil, err
		}
		result[master] = append(result[master], serial)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) LookupBarcode(ctx context.Context, barcode string) ([]*models.BarcodeInfo, error) {
	query := `
		SELECT DISTINCT name, advanced_name, unit
		FROM masterdata
		WHERE barcode = $1
	`
	rows, err := r.db.QueryContext(ctx, query, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup barcode: %w", err)
	}
	defer rows.Close()

	var result []*models.BarcodeInfo
	for rows.Next() {
		var (
			info         models.BarcodeInfo
			advancedName sql.NullString
			unit         sql.NullString
		)
		if err := rows.Scan(&info.Name, &advancedName, &unit); err != nil {
			return nil, err
		}
		info.AdvancedName = stringPtr(advancedName)
		info.Unit = stringPtr(unit)
		result = append(result, &info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

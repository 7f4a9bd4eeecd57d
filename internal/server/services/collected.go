package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
)

// CollectedService accepts exactly one submission of scan results per
// collection token.
type CollectedService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewCollectedService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *CollectedService {
	return &CollectedService{
		db:          db,
		repomanager: m,
		log:         log.With("service", "collected"),
	}
}

// inRange reports whether q fits the integer quantity columns. Negative
// quantities are corrections and are accepted.
func inRange(q int64) bool {
	return q >= math.MinInt32 && q <= math.MaxInt32
}

func validateCollectedItems(items []*models.CollectedItem) error {
	for i, it := range items {
		if it == nil || it.Barcode == "" {
			return fmt.Errorf("item %d: barcode: %w", i, common.ErrMissingRequiredField)
		}
		if !inRange(it.Quantity) {
			return fmt.Errorf("item %d: %w: %d", i, common.ErrInvalidQuantity, it.Quantity)
		}
		for j, sq := range it.Serials {
			if sq.Serial == "" {
				return fmt.Errorf("item %d serial %d: %w", i, j, common.ErrMissingRequiredField)
			}
			if !inRange(sq.Quantity) {
				return fmt.Errorf("item %d serial %d: %w: %d", i, j, common.ErrInvalidQuantity, sq.Quantity)
			}
		}
	}
	return nil
}

// SubmitCollectedData stores items under token and closes the token. The
// token must be an open collection token; otherwise
// common.ErrInvalidTokenState is returned and nothing is written.
func (s *CollectedService) SubmitCollectedData(ctx context.Context, token string, items []*models.CollectedItem) error {
	token, err := normalizeToken(token)
	if err != nil {
		return err
	}
	if err := validateCollectedItems(items); err != nil {
		s.log.Warn(ctx, "collected data rejected", "token", token, "error", err)
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Closing the token first takes its row lock: a concurrent submission
		// blocks here and then finds the token already closed.
		err := s.repomanager.Tokens(tx).Transition(ctx, token, models.TokenTypeCollectionOpen, models.TokenTypeCollectionClosed)
		if err != nil {
			return err
		}

		repo := s.repomanager.Collected(tx)
		for i, it := range items {
			id, err := repo.Create(ctx, token, it.Barcode, it.Quantity)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			for j := range it.Serials {
				if err := repo.AddSerial(ctx, id, &it.Serials[j]); err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		report(ctx, s.log, "collected data refused", err, "token", token)
		return err
	}

	s.log.Info(ctx, "collected data stored", "token", token, "items", len(items))
	return nil
}

// GetCollectedData returns the items submitted under token in submission
// order. Per-serial detail is attached only to items that have it.
func (s *CollectedService) GetCollectedData(ctx context.Context, token string) ([]*models.CollectedItemView, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return nil, err
	}

	var result []*models.CollectedItemView
	err = dbx.WithTx(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Collected(tx)

		owners, err := repo.SelectSerialOwners(ctx, token)
		if err != nil {
			return err
		}

		records, err := repo.SelectByToken(ctx, token)
		if err != nil {
			return err
		}

		result = make([]*models.CollectedItemView, 0, len(records))
		for _, r := range records {
			view := &models.CollectedItemView{Barcode: r.Barcode, Quantity: r.Quantity}
			if _, ok := owners[r.ID]; ok {
				view.Serial, err = repo.SelectSerials(ctx, r.ID)
				if err != nil {
					return err
				}
			}
			result = append(result, view)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "get collected data", "token", token, "error", err)
		return nil, err
	}
	return result, nil
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/cache"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CatalogService stores master catalogs and answers barcode lookups.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *QuotaGuard
	cache       cache.Cache
	cacheTTL    time.Duration
	log         logging.Logger
	newToken    func() string

	// gen counts invalidations. A lookup result is cached only if no
	// upload was invalidated while it was being read.
	genMu sync.Mutex
	gen   uint64
}

// NewCatalogService builds the service. c may be nil, which disables lookup
// caching.
func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, c cache.Cache, ttl time.Duration, log logging.Logger) *CatalogService {
	return &CatalogService{
		db:          db,
		repomanager: m,
		guard:       NewQuotaGuard(m),
		cache:       c,
		cacheTTL:    ttl,
		log:         log.With("service", "catalog"),
		newToken:    uuid.NewString,
	}
}

func validateMasterItems(items []*models.MasterItem) error {
	for i, it := range items {
		if it == nil {
			return fmt.Errorf("item %d: %w", i, common.ErrMissingRequiredField)
		}
		if it.Barcode == "" {
			return fmt.Errorf("item %d: barcode: %w", i, common.ErrMissingRequiredField)
		}
		if it.Name == "" {
			return fmt.Errorf("item %d: name: %w", i, common.ErrMissingRequiredField)
		}
	}
	return nil
}

// PutMasterData uploads a catalog under a freshly minted token and returns
// that token. The batch is stored atomically.
func (s *CatalogService) PutMasterData(ctx context.Context, key string, items []*models.MasterItem, ip string) (string, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	if err := validateMasterItems(items); err != nil {
		s.log.Warn(ctx, "master data rejected", "key", key, "error", err)
		return "", err
	}

	token := s.newToken()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.guard.MayIssue(ctx, tx, key); err != nil {
			return err
		}

		err := s.repomanager.Tokens(tx).Create(ctx, &models.Token{
			Token:  token,
			Key:    key,
			IPAddr: optional(ip),
			Type:   models.TokenTypeMasterData,
		})
		if err != nil {
			return err
		}

		repo := s.repomanager.MasterData(tx)
		for i, it := range items {
			id, err := repo.Create(ctx, token, it)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if !it.Serial {
				continue
			}
			for _, serial := range it.SerialsValid {
				if err := repo.AddValidSerial(ctx, id, serial); err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		report(ctx, s.log, "master data refused", err, "key", key)
		return "", err
	}

	s.invalidate(ctx, items)
	s.log.Info(ctx, "master data stored", "key", key, "token", token, "items", len(items))
	return token, nil
}

// GetMasterData returns the catalog uploaded under token. An unknown token
// yields an empty result.
func (s *CatalogService) GetMasterData(ctx context.Context, token string) ([]*models.MasterItem, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return nil, err
	}

	var result []*models.MasterItem
	err = dbx.WithTx(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.MasterData(tx)

		records, err := repo.SelectByToken(ctx, token)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		whitelists, err := repo.SelectValidSerials(ctx, token)
		if err != nil {
			return err
		}

		result = make([]*models.MasterItem, 0, len(records))
		for _, r := range records {
			item := r.MasterItem
			item.SerialsValid = nil
			if item.Serial {
				item.SerialsValid = whitelists[r.ID]
			}
			result = append(result, &item)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "get master data", "token", token, "error", err)
		return nil, err
	}
	return result, nil
}

// LookupBarcode returns every distinct naming recorded for barcode across
// all uploads.
func (s *CatalogService) LookupBarcode(ctx context.Context, barcode string) ([]*models.BarcodeInfo, error) {
	if barcode == "" {
		return nil, fmt.Errorf("barcode: %w", common.ErrMissingRequiredField)
	}

	if cached, ok := s.cached(ctx, barcode); ok {
		return cached, nil
	}

	gen := s.generation()
	result, err := s.repomanager.MasterData(s.db).LookupBarcode(ctx, barcode)
	if err != nil {
		s.log.Error(ctx, "lookup barcode", "barcode", barcode, "error", err)
		return nil, err
	}

	s.store(ctx, barcode, result, gen)
	return result, nil
}

func (s *CatalogService) cached(ctx context.Context, barcode string) ([]*models.BarcodeInfo, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, cache.BarcodeKey(barcode))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn(ctx, "barcode cache read", "barcode", barcode, "error", err)
		}
		return nil, false
	}

	var result []*models.BarcodeInfo
	if err := json.Unmarshal(raw, &result); err != nil {
		s.log.Warn(ctx, "barcode cache decode", "barcode", barcode, "error", err)
		return nil, false
	}
	return result, true
}

func (s *CatalogService) generation() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen
}

// store caches result unless an invalidation happened after gen was taken.
func (s *CatalogService) store(ctx context.Context, barcode string, result []*models.BarcodeInfo, gen uint64) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.log.Warn(ctx, "barcode cache encode", "barcode", barcode, "error", err)
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gen != gen {
		s.log.Debug(ctx, "barcode cache write skipped, catalog changed", "barcode", barcode)
		return
	}
	if err := s.cache.Set(ctx, cache.BarcodeKey(barcode), raw, s.cacheTTL); err != nil {
		s.log.Warn(ctx, "barcode cache write", "barcode", barcode, "error", err)
	}
}

func (s *CatalogService) invalidate(ctx context.Context, items []*models.MasterItem) {
	if s.cache == nil || len(items) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(items))
	keys := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Barcode]; ok {
			continue
		}
		seen[it.Barcode] = struct{}{}
		keys = append(keys, cache.BarcodeKey(it.Barcode))
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen++
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn(ctx, "barcode cache invalidate", "error", err)
	}
}

package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
)

// KeyService performs key administration needed at startup.
type KeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewKeyService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *KeyService {
	return &KeyService{
		db:          db,
		repomanager: m,
		log:         log.With("service", "keys"),
	}
}

// EnsureMasterKey creates key as an unlimited key without ad removal unless
// it already exists. An existing key is left untouched.
func (s *KeyService) EnsureMasterKey(ctx context.Context, key string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return fmt.Errorf("master key %q: %w", key, common.ErrInvalidToken)
	}

	var unlimited int64
	err = s.repomanager.Keys(s.db).EnsureExists(ctx, &models.Key{
		Key:         k,
		TokensLimit: &unlimited,
		RemoveAds:   false,
	})
	if err != nil {
		return fmt.Errorf("ensure master key: %w", err)
	}

	s.log.Info(ctx, "master key ensured", "key", k)
	return nil
}

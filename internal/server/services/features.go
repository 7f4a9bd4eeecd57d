package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
)

// FeatureService resolves per-key feature flags from a token.
type FeatureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewFeatureService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *FeatureService {
	return &FeatureService{
		db:          db,
		repomanager: m,
		log:         log.With("service", "features"),
	}
}

// RemoveAdsEnabled reports the removeads flag of the key owning token. A
// token or key that cannot be resolved yields false.
func (s *FeatureService) RemoveAdsEnabled(ctx context.Context, token string) (bool, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return false, nil
	}

	enabled, err := s.repomanager.Keys(s.db).RemoveAdsByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		s.log.Error(ctx, "resolve removeads", "token", token, "error", err)
		return false, err
	}
	return enabled, nil
}

package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
)

// StagingService keeps one opaque payload per staging token.
type StagingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *QuotaGuard
	log         logging.Logger
}

func NewStagingService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *StagingService {
	return &StagingService{
		db:          db,
		repomanager: m,
		guard:       NewQuotaGuard(m),
		log:         log.With("service", "staging"),
	}
}

// PutXmlStaging stores payload under token, replacing any earlier payload.
// The token is registered on first use.
func (s *StagingService) PutXmlStaging(ctx context.Context, key, token, payload, ip string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	token, err = normalizeToken(token)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.guard.MayIssue(ctx, tx, key); err != nil {
			return err
		}

		_, err := s.repomanager.Tokens(tx).CreateIfAbsent(ctx, &models.Token{
			Token:  token,
			Key:    key,
			IPAddr: optional(ip),
			Type:   models.TokenTypeXMLStaging,
		})
		if err != nil {
			return err
		}

		return s.repomanager.XMLStaging(tx).Upsert(ctx, &models.XMLStaging{
			Token:   token,
			Payload: payload,
			IPAddr:  optional(ip),
		})
	})
	if err != nil {
		report(ctx, s.log, "xml staging refused", err, "key", key, "token", token)
		return err
	}

	s.log.Info(ctx, "xml staged", "key", key, "token", token, "bytes", len(payload))
	return nil
}

// GetXmlStaging returns the payload staged under token, or
// common.ErrorNotFound.
func (s *StagingService) GetXmlStaging(ctx context.Context, token string) (string, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return "", err
	}

	payload, err := s.repomanager.XMLStaging(s.db).Get(ctx, token)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "get xml staging", "token", token, "error", err)
		}
		return "", err
	}
	return payload, nil
}

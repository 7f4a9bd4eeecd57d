package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenService issues collection and staging tokens.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *QuotaGuard
	log         logging.Logger
	newToken    func() string
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		guard:       NewQuotaGuard(m),
		log:         log.With("service", "tokens"),
		newToken:    uuid.NewString,
	}
}

// IssueCollectionToken mints a fresh token in the open collection state.
func (s *TokenService) IssueCollectionToken(ctx context.Context, key, ip string) (string, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}

	token := s.newToken()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.guard.MayIssue(ctx, tx, key); err != nil {
			return err
		}
		return s.repomanager.Tokens(tx).Create(ctx, &models.Token{
			Token:  token,
			Key:    key,
			IPAddr: optional(ip),
			Type:   models.TokenTypeCollectionOpen,
		})
	})
	if err != nil {
		report(ctx, s.log, "collection token refused", err, "key", key)
		return "", err
	}

	s.log.Info(ctx, "collection token issued", "key", key, "token", token)
	return token, nil
}

// IssueStagingToken registers a caller-chosen token for payload staging.
// Repeating the call with the same token is a no-op.
func (s *TokenService) IssueStagingToken(ctx context.Context, key, token, ip string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	token, err = normalizeToken(token)
	if err != nil {
		return err
	}

	var created bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.guard.MayIssue(ctx, tx, key); err != nil {
			return err
		}
		var err error
		created, err = s.repomanager.Tokens(tx).CreateIfAbsent(ctx, &models.Token{
			Token:  token,
			Key:    key,
			IPAddr: optional(ip),
			Type:   models.TokenTypeXMLStaging,
		})
		return err
	})
	if err != nil {
		report(ctx, s.log, "staging token refused", err, "key", key, "token", token)
		return err
	}

	s.log.Info(ctx, "staging token registered", "key", key, "token", token, "created", created)
	return nil
}

// report logs denials at info and everything else at error.
func report(ctx context.Context, log logging.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if common.IsDenial(err) {
		log.Info(ctx, msg, args...)
		return
	}
	log.Error(ctx, msg, args...)
}

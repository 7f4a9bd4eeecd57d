package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
)

// QuotaGuard decides whether a key may receive another token.
type QuotaGuard struct {
	repomanager repomanager.RepositoryManager
}

func NewQuotaGuard(m repomanager.RepositoryManager) *QuotaGuard {
	return &QuotaGuard{repomanager: m}
}

// MayIssue must run inside the transaction that inserts the token: it locks
// the key row, so concurrent issuances for one key are serialized until that
// transaction ends. Returns common.ErrUnknownKey or common.ErrQuotaExceeded
// on denial.
func (g *QuotaGuard) MayIssue(ctx context.Context, tx dbx.DBTX, key string) error {
	k, err := g.repomanager.Keys(tx).LockKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnknownKey
		}
		return fmt.Errorf("lock key: %w", err)
	}

	if k.Unlimited() {
		return nil
	}

	n, err := g.repomanager.Tokens(tx).CountByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}

	if n >= *k.TokensLimit {
		return common.ErrQuotaExceeded
	}
	return nil
}

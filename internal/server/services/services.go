// Package services contains server-side business logic: token issuance under
// per-key quotas, catalog uploads, one-shot collected-data submission, payload
// staging and feature flags. Every public method runs as one transaction.
package services

import (
	"fmt"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/google/uuid"
)

// normalizeToken parses a token id and returns its canonical form.
func normalizeToken(token string) (string, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidToken, token)
	}
	return id.String(), nil
}

// normalizeKey parses a key. A malformed key cannot exist, so it is reported
// as unknown.
func normalizeKey(key string) (string, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return "", common.ErrUnknownKey
	}
	return id.String(), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

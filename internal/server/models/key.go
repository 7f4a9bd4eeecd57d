// Package models defines server-side data models persisted in the database
// and the views returned to callers.
package models

// Key is a tenant credential. A nil or zero TokensLimit means unlimited.
type Key struct {
	Key         string
	TokensLimit *int64
	RemoveAds   bool
}

// Unlimited reports whether the key may receive any number of tokens.
func (k *Key) Unlimited() bool {
	return k.TokensLimit == nil || *k.TokensLimit == 0
}

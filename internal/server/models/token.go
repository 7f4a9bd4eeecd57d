package models

import "time"

// TokenType is the state tag stored in tokens.type.
type TokenType int

const (
	// TokenTypeMasterData marks a token minted implicitly by a catalog upload.
	TokenTypeMasterData TokenType = 0
	// TokenTypeCollectionOpen marks a collection token awaiting its submission.
	TokenTypeCollectionOpen TokenType = 1
	// TokenTypeCollectionClosed marks a consumed collection token. Terminal.
	TokenTypeCollectionClosed TokenType = 2
	// TokenTypeXMLStaging marks a token owning a staged payload.
	TokenTypeXMLStaging TokenType = 11
)

type Token struct {
	Token   string
	Key     string
	ModTime time.Time
	IPAddr  *string
	Type    TokenType
}

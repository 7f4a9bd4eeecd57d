package models

// XMLStaging is the opaque payload staged under a token.
type XMLStaging struct {
	Token   string
	Payload string
	IPAddr  *string
}

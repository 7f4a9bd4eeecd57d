package models

// MasterItem is one catalog product as uploaded and as returned by
// GetMasterData. Optional fields are omitted from JSON when unset; serial is
// always present.
type MasterItem struct {
	Barcode      string   `json:"barcode"`
	Name         string   `json:"name"`
	AdvancedName *string  `json:"advanced_name,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	Serial       bool     `json:"serial"`
	SerialsValid []string `json:"serials_valid,omitempty"`
}

// MasterRecord is a stored masterdata row together with its primary key.
type MasterRecord struct {
	ID int64
	MasterItem
}

// BarcodeInfo is one distinct naming of a barcode across all uploads.
type BarcodeInfo struct {
	Name         string  `json:"name"`
	AdvancedName *string `json:"advanced_name,omitempty"`
	Unit         *string `json:"unit,omitempty"`
}

package models

// SerialQuantity is a per-serial count inside a collected item.
type SerialQuantity struct {
	Serial   string `json:"serial"`
	Quantity int64  `json:"quantity"`
}

// CollectedItem is one scan result as submitted by a client.
type CollectedItem struct {
	Barcode  string           `json:"barcode"`
	Quantity int64            `json:"quantity"`
	Serials  []SerialQuantity `json:"serials,omitempty"`
}

// CollectedItemView is one scan result as returned by GetCollectedData.
// Serial is present only for items that carry per-serial detail.
type CollectedItemView struct {
	Barcode  string           `json:"barcode"`
	Quantity int64            `json:"quantity"`
	Serial   []SerialQuantity `json:"serial,omitempty"`
}

// CollectedRecord is a stored collected row together with its primary key.
type CollectedRecord struct {
	ID       int64
	Barcode  string
	Quantity int64
}

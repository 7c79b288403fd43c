package submit

// SaveResult is the backend's acknowledgement for a submitted text.
// ScanID is absent when the backend could not correlate a structured
// record with the text.
type SaveResult struct {
	OK     bool   `json:"ok"`
	ScanID string `json:"scan_id,omitempty"`
}

// UploadItem is one decoded payload from an uploaded image.
type UploadItem struct {
	Text   string `json:"text,omitempty"`
	ScanID string `json:"scan_id,omitempty"`
}

// UploadResult is the backend's response to an image upload.
type UploadResult struct {
	Found int          `json:"found"`
	Items []UploadItem `json:"items"`
}

// ScanMeta carries the header fields of a parsed receipt. All fields
// are optional.
type ScanMeta struct {
	StoreName    string `json:"store_name,omitempty"`
	CNPJ         string `json:"cnpj,omitempty"`
	PurchaseDate string `json:"purchase_date,omitempty"`
}

// LineItem is one receipt line. Pointers distinguish an absent value
// from a real zero.
type LineItem struct {
	Name       string   `json:"name,omitempty"`
	Qty        *float64 `json:"qty,omitempty"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
}

// ScanDetail is the full structured record for a correlated scan.
type ScanDetail struct {
	Scan  ScanMeta   `json:"scan"`
	Items []LineItem `json:"items"`
}

// ScanRecord is one row of the backend's scan history.
type ScanRecord struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp,omitempty"`
	Source    string `json:"source,omitempty"`
	DataRaw   string `json:"data_raw"`
}

// ScanList is the backend's scan history page.
type ScanList struct {
	Count int          `json:"count"`
	Items []ScanRecord `json:"items"`
}

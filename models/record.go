package models

// Record holds all scraped data for a single procurement opportunity.
// Description is nil when the card renders no description element at all,
// which serializes as null to keep output lines self-describing.
type Record struct {
	Title       string  `json:"Title"`
	URL         string  `json:"URL"`
	Description *string `json:"Description"`
}

// Fingerprint identifies whatever is currently the first listing card on the
// page. It is an opaque change-detection token, never a source of data. The
// zero value is the "no content observed" sentinel.
type Fingerprint struct {
	Title string
	URL   string
}

// IsZero reports whether fp is the sentinel fingerprint.
func (fp Fingerprint) IsZero() bool {
	return fp == Fingerprint{}
}

// PageResult records how many rows one result page contributed.
type PageResult struct {
	Page  int
	Count int
}

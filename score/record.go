package score

// Record is one individual's entry for a single calendar day. At most one
// record per (OwnerID, Day) pair is meaningful; an amended submission
// replaces the record for that key rather than mutating it. Composite is
// always derived from the record's own SubScores via Compute, never authored
// independently.
type Record struct {
	OwnerID   string    `json:"ownerId"`
	Day       Day       `json:"date"`
	SubScores SubScores `json:"subScores"`
	Composite int       `json:"compositeScore"`
	Note      string    `json:"note,omitempty"`
}

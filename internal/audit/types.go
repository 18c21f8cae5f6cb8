package audit

import "time"

// Entry is one redacted entity in the audit trail. The original value
// never appears here; only its salted digest is kept so two jobs
// redacting the same value can be correlated without recovering it.
// The replacement that went into the output is recorded verbatim.
type Entry struct {
	ID            int64     `db:"id" json:"id,omitempty"`
	JobID         string    `db:"job_id" json:"job_id"`
	EntityType    string    `db:"entity_type" json:"entity_type"`
	Strategy      string    `db:"strategy" json:"strategy"`
	Source        string    `db:"source" json:"source"`
	Confidence    float64   `db:"confidence" json:"confidence"`
	Locator       string    `db:"locator" json:"locator"`
	ValueHash     string    `db:"value_hash" json:"value_hash"`
	RedactedValue string    `db:"redacted_value" json:"redacted_value"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

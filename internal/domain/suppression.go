package domain

import "time"

// SuppressionReason enumerates why an email address was suppressed.
type SuppressionReason string

const (
	ReasonBounceHard SuppressionReason = "bounce_hard"
	ReasonComplaint  SuppressionReason = "complaint"
	ReasonManual     SuppressionReason = "manual"
)

// SuppressionSource indicates which pipeline produced the suppression signal.
type SuppressionSource string

const (
	SourceSESBounce    SuppressionSource = "ses-bounce"
	SourceSESComplaint SuppressionSource = "ses-complaint"
	SourceManual       SuppressionSource = "manual"
)

// Suppression represents a single entry in the suppression list. Only the
// hash of the normalized address is stored, never the raw address.
type Suppression struct {
	ID        string            `json:"id" db:"id"`
	EmailHash string            `json:"email_hash" db:"email_hash"`
	Reason    SuppressionReason `json:"reason" db:"reason"`
	Source    SuppressionSource `json:"source" db:"source"`
	Notes     string            `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

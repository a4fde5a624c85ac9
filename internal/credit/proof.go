package credit

import (
	"errors"
	"fmt"
	"time"

	"github.com/tglc-labs/liquidity-service/internal/models"
)

// ErrStaleProof marks a proof whose timestamp is older than the verifier's
// maximum age.
var ErrStaleProof = errors.New("credit: proof timestamp too old")

// DefaultProofMaxAge is the default freshness window for proof timestamps.
const DefaultProofMaxAge = 60 * time.Minute

// Verifier validates supplementary proof payloads and converts them into a
// confidence score. Its output is advisory input to policy, never itself a
// gating decision.
type Verifier struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier initializes a proof verifier. A non-positive maxAge selects the
// default 60 minute window.
func NewVerifier(maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultProofMaxAge
	}
	return &Verifier{maxAge: maxAge, now: time.Now}
}

// Verify validates a proof payload and computes its confidence score.
func (v *Verifier) Verify(proof *models.ProofPayload) (*models.ProofResult, error) {
	if proof == nil {
		return nil, fmt.Errorf("credit: proof payload is nil")
	}
	if proof.DefaultRate < 0 || proof.DefaultRate > 1 {
		return nil, fmt.Errorf("credit: default rate must be between 0 and 1, got %v", proof.DefaultRate)
	}
	if proof.Timestamp != nil {
		age := v.now().UTC().Sub(proof.Timestamp.UTC())
		if age > v.maxAge {
			return nil, fmt.Errorf("%w: age %s exceeds %s", ErrStaleProof, age.Round(time.Second), v.maxAge)
		}
	}

	// Ordered thresholds; first match wins.
	confidence := 50
	switch {
	case proof.DefaultRate < 0.05:
		confidence = 100
	case proof.DefaultRate < 0.10:
		confidence = 75
	}

	reason := "Moderate default rate"
	if confidence >= 75 {
		reason = "Low default rate"
	}

	return &models.ProofResult{
		Valid:       confidence >= 50,
		Confidence:  confidence,
		DefaultRate: proof.DefaultRate,
		Reason:      reason,
	}, nil
}

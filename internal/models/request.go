package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Risk metric defaults exported by the risk model when a request carries no
// proof payload.
const (
	DefaultRiskDefaultRate = 0.004
	DefaultRiskVolatility  = 0.12
)

// RiskMetrics are the derived metrics attached to a liquidity request.
type RiskMetrics struct {
	DefaultRate float64 `json:"default_rate"`
	Volatility  float64 `json:"volatility"`
}

// ProofPayload is an optional supplementary performance proof submitted with
// a request.
type ProofPayload struct {
	DefaultRate float64    `json:"default_rate"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// ProofResult is the verifier's assessment of a ProofPayload.
type ProofResult struct {
	Valid       bool    `json:"valid"`
	Confidence  int     `json:"confidence_score"`
	DefaultRate float64 `json:"default_rate"`
	Reason      string  `json:"reason"`
}

// LiquidityRequest is a borrower's request to draw short-term liquidity.
// Immutable once constructed.
type LiquidityRequest struct {
	// RequestID is the client-side idempotency key. Retries of the same
	// logical draw must carry the same ID so the orchestrator can refuse
	// to create a second escrow for it.
	RequestID    string          `json:"request_id"`
	BusinessID   string          `json:"business_id"`
	Address      string          `json:"principal_address"`
	Amount       decimal.Decimal `json:"amount_xrp"`
	DurationDays int             `json:"duration_days"`
	UnlockTime   time.Time       `json:"unlock_time"`
	Proof        *ProofPayload   `json:"proof_data,omitempty"`
	Metrics      RiskMetrics     `json:"metrics"`
}

// NewLiquidityRequest constructs a request with derived defaults: a fresh
// request ID when the caller supplied none, a DID for the address as
// business ID, an unlock time escrowDays out, and the risk model's default
// metrics.
func NewLiquidityRequest(requestID, address string, amount decimal.Decimal, durationDays int, unlock *time.Time, proof *ProofPayload, escrowDays int) *LiquidityRequest {
	unlockTime := time.Now().UTC().AddDate(0, 0, escrowDays)
	if unlock != nil {
		unlockTime = unlock.UTC()
	}
	if durationDays <= 0 {
		durationDays = 7
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &LiquidityRequest{
		RequestID:    requestID,
		BusinessID:   fmt.Sprintf("did:xrpl:%s", address),
		Address:      address,
		Amount:       amount,
		DurationDays: durationDays,
		UnlockTime:   unlockTime,
		Proof:        proof,
		Metrics: RiskMetrics{
			DefaultRate: DefaultRiskDefaultRate,
			Volatility:  DefaultRiskVolatility,
		},
	}
}

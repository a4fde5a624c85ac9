package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditScore is the borrower's derived on-ledger creditworthiness.
// Computed fresh per request, never persisted.
type CreditScore struct {
	Score       int             `json:"score"`
	Rating      string          `json:"rating"`
	MaxEligible decimal.Decimal `json:"max_eligible"`
	Factors     ScoreFactors    `json:"factors"`
}

// ScoreFactors are the inputs that contributed to a credit score.
type ScoreFactors struct {
	TrustLines         int     `json:"trust_lines"`
	SuccessfulPayments int     `json:"successful_payments"`
	DefaultRate        float64 `json:"default_rate"`
	Volatility         float64 `json:"volatility"`
}

// DecisionStatus is the terminal outcome of a credit decision.
type DecisionStatus string

const (
	// DecisionApproved means the escrow was committed cleanly.
	DecisionApproved DecisionStatus = "approved"
	// DecisionRejected is a normal business outcome, not a system fault.
	DecisionRejected DecisionStatus = "rejected"
	// DecisionPartialFailure means the escrow exists on the ledger but the
	// protective clawback right was not registered. Collateral protection
	// is missing and operators must be told.
	DecisionPartialFailure DecisionStatus = "partial_failure"
	// DecisionIndeterminate means the ledger write could not be confirmed
	// either way; reconciliation against the ledger history is required
	// before any retry.
	DecisionIndeterminate DecisionStatus = "indeterminate"
)

// CreditDecision is the final outcome of the decision pipeline.
type CreditDecision struct {
	ID              string          `json:"decision_id"`
	BusinessID      string          `json:"business_id"`
	Status          DecisionStatus  `json:"status"`
	Approved        bool            `json:"approved"`
	ApprovedAmount  decimal.Decimal `json:"approved_amount"`
	Rate            string          `json:"rate,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	TxHash          string          `json:"tx_hash,omitempty"`
	ClawbackTxHash  string          `json:"clawback_tx_hash,omitempty"`
	ExplorerURL     string          `json:"explorer_url,omitempty"`
	BankID          string          `json:"bank_id,omitempty"`
	BankName        string          `json:"bank_name,omitempty"`
	Credit          *CreditScore    `json:"credit,omitempty"`
	UnlockTimestamp int64           `json:"unlock_timestamp,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EscrowRecord links a decision to the escrow it created on the ledger.
// Needed to reconcile partial failures after the fact.
type EscrowRecord struct {
	DecisionID       string          `json:"decision_id"`
	TxHash           string          `json:"tx_hash"`
	Owner            string          `json:"owner"`
	Destination      string          `json:"destination"`
	Amount           decimal.Decimal `json:"amount_xrp"`
	FinishAfter      int64           `json:"finish_after"`
	ClawbackAttached bool            `json:"clawback_attached"`
	ClawbackTxHash   string          `json:"clawback_tx_hash,omitempty"`
	Fingerprint      string          `json:"fingerprint"`
	CreatedAt        time.Time       `json:"created_at"`
}

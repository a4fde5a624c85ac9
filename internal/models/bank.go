package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default policy values applied when a bank record omits them.
const (
	DefaultMinScore           = 500
	DefaultRiskScoreThreshold = 300
	DefaultMaxDurationDays    = 30
	DefaultMaxDefaultRate     = 0.05
)

// CreditPolicy holds a bank's lending rules.
type CreditPolicy struct {
	MinScore           int             `json:"min_score"`
	MaxAmount          decimal.Decimal `json:"max_amount"`
	MaxDurationDays    int             `json:"max_duration_days"`
	MaxDefaultRate     float64         `json:"max_default_rate"`
	MaxExposure        decimal.Decimal `json:"max_exposure"`
	RiskScoreThreshold int             `json:"risk_score_threshold"`
}

// Normalize fills in defaults for fields an imported bank record omitted.
func (p *CreditPolicy) Normalize() {
	if p.MinScore == 0 {
		p.MinScore = DefaultMinScore
	}
	if p.RiskScoreThreshold == 0 {
		p.RiskScoreThreshold = DefaultRiskScoreThreshold
	}
	if p.MaxDurationDays == 0 {
		p.MaxDurationDays = DefaultMaxDurationDays
	}
	if p.MaxDefaultRate == 0 {
		p.MaxDefaultRate = DefaultMaxDefaultRate
	}
	if p.MaxExposure.IsZero() {
		p.MaxExposure = p.MaxAmount
	}
}

// Bank represents a participating lending bank.
type Bank struct {
	ID            string          `json:"bank_id"`
	Name          string          `json:"bank_name"`
	WalletAddress string          `json:"wallet_address"`
	SigningSeed   string          `json:"-"` // Present only when the platform signs on the bank's behalf
	Policy        CreditPolicy    `json:"credit_policy"`
	Balance       decimal.Decimal `json:"balance_xrp"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanSign reports whether the bank signs its own escrows. When false the
// platform acts as sole issuer and must attach a clawback right.
func (b *Bank) CanSign() bool {
	return b.SigningSeed != ""
}

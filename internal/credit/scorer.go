package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/models"
	"github.com/tglc-labs/liquidity-service/internal/xrpl"
)

// ErrDataUnavailable marks a score that could not be computed because the
// borrower's ledger history was not retrievable. Approving without a reliable
// score would break the exposure-safety invariant, so callers must treat this
// as a hard rejection.
var ErrDataUnavailable = errors.New("credit: scoring inputs unavailable")

const (
	baseScore = 500
	minScore  = 300
	maxScore  = 850

	trustLineBonus    = 25
	trustLineBonusCap = 100
	paymentBonus      = 15
	paymentBonusCap   = 200

	historyLimit = 50
)

// Scorer derives a credit score from a borrower's on-ledger history.
// Reputation is built from trust lines and successful payments; no trust line
// with the platform is required.
type Scorer struct {
	gw  xrpl.Gateway
	log *logrus.Logger
}

// NewScorer initializes a new credit scorer.
func NewScorer(gw xrpl.Gateway, log *logrus.Logger) *Scorer {
	return &Scorer{gw: gw, log: log}
}

// Score computes the credit score for a ledger address.
func (s *Scorer) Score(ctx context.Context, address string) (*models.CreditScore, error) {
	lines, err := s.gw.AccountLines(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: account lines for %s: %v", ErrDataUnavailable, address, err)
	}
	txs, err := s.gw.AccountTransactions(ctx, address, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction history for %s: %v", ErrDataUnavailable, address, err)
	}

	payments := countSuccessfulPayments(txs)

	score := baseScore
	score += min(trustLineBonusCap, len(lines)*trustLineBonus)
	score += min(paymentBonusCap, payments*paymentBonus)
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}

	result := &models.CreditScore{
		Score:       score,
		Rating:      Rating(score),
		MaxEligible: MaxEligible(score),
		Factors: models.ScoreFactors{
			TrustLines:         len(lines),
			SuccessfulPayments: payments,
			DefaultRate:        models.DefaultRiskDefaultRate,
			Volatility:         models.DefaultRiskVolatility,
		},
	}
	s.log.Infof("Credit score for %s: %d (%s), max eligible %s XRP", address, score, result.Rating, result.MaxEligible)
	return result, nil
}

func countSuccessfulPayments(txs []xrpl.TxRecord) int {
	count := 0
	for _, tx := range txs {
		if tx.Type == "Payment" && tx.Result == "tesSUCCESS" {
			count++
		}
	}
	return count
}

// Rating maps a score onto its rating band.
func Rating(score int) string {
	switch {
	case score >= 750:
		return "Excellent"
	case score >= 650:
		return "Good"
	case score >= 500:
		return "Fair"
	default:
		return "Poor"
	}
}

// MaxEligible is the step function from score to maximum eligible XRP amount.
func MaxEligible(score int) decimal.Decimal {
	switch {
	case score >= 750:
		return decimal.NewFromInt(10000)
	case score >= 650:
		return decimal.NewFromInt(5000)
	case score >= 500:
		return decimal.NewFromInt(2000)
	default:
		return decimal.NewFromInt(500)
	}
}

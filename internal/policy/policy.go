// Package policy evaluates liquidity requests against a bank's credit policy.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tglc-labs/liquidity-service/internal/models"
)

// Result is the outcome of a policy evaluation. Rejections are normal
// business outcomes carrying a structured reason, not faults.
type Result struct {
	Allowed bool
	Reason  string
}

// Engine checks duration, default-rate and exposure rules. The checks are
// independent; the first failing check determines the rejection reason, in
// duration, risk, exposure priority order for deterministic messaging.
type Engine struct{}

// NewEngine initializes a policy engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate checks a request against a bank's policy given the business's
// current exposure to that bank. It never mutates state.
func (e *Engine) Evaluate(req *models.LiquidityRequest, pol models.CreditPolicy, currentExposure decimal.Decimal, score int) Result {
	if req.DurationDays > pol.MaxDurationDays {
		return Result{Reason: fmt.Sprintf(
			"requested duration %d days exceeds bank maximum of %d days",
			req.DurationDays, pol.MaxDurationDays)}
	}

	if req.Metrics.DefaultRate > pol.MaxDefaultRate {
		return Result{Reason: fmt.Sprintf(
			"default rate %.4f exceeds bank maximum of %.4f",
			req.Metrics.DefaultRate, pol.MaxDefaultRate)}
	}

	if currentExposure.Add(req.Amount).GreaterThan(pol.MaxExposure) {
		return Result{Reason: fmt.Sprintf(
			"exposure limit exceeded: current %s + requested %s > maximum %s",
			currentExposure, req.Amount, pol.MaxExposure)}
	}

	if score < pol.RiskScoreThreshold {
		return Result{Reason: fmt.Sprintf(
			"credit score %d below bank risk threshold %d",
			score, pol.RiskScoreThreshold)}
	}

	return Result{Allowed: true}
}

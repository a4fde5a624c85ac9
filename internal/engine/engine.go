// Package engine composes scoring, policy, matching, exposure and escrow
// settlement into the final credit decision.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/bank"
	"github.com/tglc-labs/liquidity-service/internal/credit"
	"github.com/tglc-labs/liquidity-service/internal/escrow"
	"github.com/tglc-labs/liquidity-service/internal/exposure"
	"github.com/tglc-labs/liquidity-service/internal/models"
	"github.com/tglc-labs/liquidity-service/internal/policy"
)

// maxBankAttempts caps how far down the sorted match list the engine walks
// after permanent submission failures before giving up.
const maxBankAttempts = 3

// ScoreProvider derives a borrower's credit score from ledger history.
type ScoreProvider interface {
	Score(ctx context.Context, address string) (*models.CreditScore, error)
}

// ProofChecker validates supplementary proof payloads.
type ProofChecker interface {
	Verify(proof *models.ProofPayload) (*models.ProofResult, error)
}

// PolicyEvaluator checks a request against a bank's credit policy.
type PolicyEvaluator interface {
	Evaluate(req *models.LiquidityRequest, pol models.CreditPolicy, currentExposure decimal.Decimal, score int) policy.Result
}

// EscrowSubmitter settles an approved decision on the ledger.
type EscrowSubmitter interface {
	Execute(ctx context.Context, decisionID string, req *models.LiquidityRequest, b models.Bank) *escrow.Outcome
	ExplorerURL(txHash string) string
}

// BankSource lists the participating banks.
type BankSource interface {
	List() []models.Bank
}

// RateSource prices the interest rate applied to approved draws.
type RateSource interface {
	LendingRate() (float64, error)
}

// Notifier surfaces decisions that need operator attention.
type Notifier interface {
	AlertDecision(decision *models.CreditDecision) error
}

// Engine runs the decision pipeline. Each stage can short-circuit to a
// rejection; only the escrow stage performs irreversible external side
// effects, and no later gate undoes a committed ledger write.
type Engine struct {
	scorer    ScoreProvider
	verifier  ProofChecker
	policies  PolicyEvaluator
	banks     BankSource
	exposures *exposure.Tracker
	submitter EscrowSubmitter
	rates     RateSource
	notifier  Notifier
	log       *logrus.Logger
}

// NewEngine initializes a decision engine. rates and notifier may be nil;
// the engine then prices with the fallback rate and skips alerts.
func NewEngine(
	scorer ScoreProvider,
	verifier ProofChecker,
	policies PolicyEvaluator,
	banks BankSource,
	exposures *exposure.Tracker,
	submitter EscrowSubmitter,
	rates RateSource,
	notifier Notifier,
	log *logrus.Logger,
) *Engine {
	return &Engine{
		scorer:    scorer,
		verifier:  verifier,
		policies:  policies,
		banks:     banks,
		exposures: exposures,
		submitter: submitter,
		rates:     rates,
		notifier:  notifier,
		log:       log,
	}
}

// fallbackRate is used when the base-rate feed is unavailable. Pricing must
// never block a decision.
const fallbackRate = 5.0

// Decide runs the full pipeline for a liquidity request.
func (e *Engine) Decide(ctx context.Context, req *models.LiquidityRequest) *models.CreditDecision {
	decisionID := uuid.NewString()

	// Scoring. An unretrievable history is a hard rejection, never a
	// silent zero score.
	score, err := e.scorer.Score(ctx, req.Address)
	if err != nil {
		if errors.Is(err, credit.ErrDataUnavailable) {
			return e.reject(decisionID, req, nil, fmt.Sprintf("credit history unavailable for %s", req.Address))
		}
		return e.reject(decisionID, req, nil, fmt.Sprintf("scoring failed: %v", err))
	}

	if req.Amount.GreaterThan(score.MaxEligible) {
		return e.reject(decisionID, req, score, fmt.Sprintf(
			"requested amount (%s XRP) exceeds maximum eligible (%s XRP) for credit score %d",
			req.Amount, score.MaxEligible, score.Score))
	}

	// Proof verification is advisory: a verified proof refines the default
	// rate fed into policy, a failed one is logged and ignored.
	if req.Proof != nil {
		if result, err := e.verifier.Verify(req.Proof); err != nil {
			e.log.Warnf("Proof verification failed for %s: %v", req.BusinessID, err)
		} else {
			req.Metrics.DefaultRate = result.DefaultRate
			e.log.Infof("Proof verified for %s: confidence %d", req.BusinessID, result.Confidence)
		}
	}

	matches := bank.Match(e.banks.List(), req.Amount, score.Score)
	if len(matches) == 0 {
		return e.reject(decisionID, req, score, "no eligible bank for the requested amount and credit score")
	}

	return e.settle(ctx, decisionID, req, score, matches)
}

// settle walks the sorted match list. Policy or reservation failures move on
// to the next bank; permanent submission failures count against the attempt
// cap; an indeterminate outcome stops the walk immediately, since retrying a
// possibly-succeeded escrow against another bank could fund the draw twice.
func (e *Engine) settle(ctx context.Context, decisionID string, req *models.LiquidityRequest, score *models.CreditScore, matches []models.Bank) *models.CreditDecision {
	var lastReason string
	attempts := 0

	for _, b := range matches {
		res := e.policies.Evaluate(req, b.Policy, e.exposures.Exposure(req.BusinessID, b.ID), score.Score)
		if !res.Allowed {
			if lastReason == "" {
				lastReason = res.Reason
			}
			e.log.Infof("Bank %s rejected request %s: %s", b.Name, decisionID, res.Reason)
			continue
		}

		if err := e.exposures.Reserve(req.BusinessID, b.ID, req.Amount, b.Policy.MaxExposure); err != nil {
			if lastReason == "" {
				lastReason = fmt.Sprintf("exposure limit reached at %s", b.Name)
			}
			e.log.Infof("Reservation failed at bank %s for request %s: %v", b.Name, decisionID, err)
			continue
		}

		attempts++
		outcome := e.submitter.Execute(ctx, decisionID, req, b)

		// A replayed outcome means an earlier attempt already holds (or
		// settled) the capacity; the reservation made above is surplus.
		if outcome.Replayed {
			e.exposures.Release(req.BusinessID, b.ID, req.Amount)
		}

		switch outcome.State {
		case escrow.StateCommitted:
			if !outcome.Replayed {
				e.exposures.Commit(req.BusinessID, b.ID, req.Amount)
			}
			return e.approve(decisionID, req, score, b, outcome, models.DecisionApproved, "")

		case escrow.StatePartiallyFailed:
			// The escrow exists and funds are locked, so exposure is
			// real even though collateral protection is missing.
			if !outcome.Replayed {
				e.exposures.Commit(req.BusinessID, b.ID, req.Amount)
			}
			d := e.approve(decisionID, req, score, b, outcome, models.DecisionPartialFailure,
				fmt.Sprintf("escrow committed but clawback registration failed: %v", outcome.Err))
			e.alert(d)
			return d

		case escrow.StateIndeterminate:
			// Reservation is deliberately held: capacity stays blocked
			// until an operator reconciles against the ledger.
			d := &models.CreditDecision{
				ID:             decisionID,
				BusinessID:     req.BusinessID,
				Status:         models.DecisionIndeterminate,
				ApprovedAmount: decimal.Zero,
				Reason: fmt.Sprintf(
					"ledger submission outcome unknown (fingerprint %s); reconcile before retrying", outcome.Fingerprint),
				BankID:    b.ID,
				BankName:  b.Name,
				Credit:    score,
				CreatedAt: time.Now().UTC(),
			}
			e.alert(d)
			return d

		default: // StateFailed
			e.exposures.Release(req.BusinessID, b.ID, req.Amount)
			lastReason = fmt.Sprintf("ledger submission failed at %s: %v", b.Name, outcome.Err)
			e.log.Warnf("Submission failed at bank %s for request %s (attempt %d): %v", b.Name, decisionID, attempts, outcome.Err)
			if attempts >= maxBankAttempts {
				return e.reject(decisionID, req, score, lastReason)
			}
		}
	}

	if lastReason == "" {
		lastReason = "no eligible bank for the requested amount and credit score"
	}
	return e.reject(decisionID, req, score, lastReason)
}

func (e *Engine) approve(decisionID string, req *models.LiquidityRequest, score *models.CreditScore, b models.Bank, outcome *escrow.Outcome, status models.DecisionStatus, reason string) *models.CreditDecision {
	d := &models.CreditDecision{
		ID:              decisionID,
		BusinessID:      req.BusinessID,
		Status:          status,
		Approved:        status == models.DecisionApproved,
		ApprovedAmount:  req.Amount,
		Rate:            e.priceRate(),
		Reason:          reason,
		TxHash:          outcome.EscrowHash,
		ClawbackTxHash:  outcome.ClawbackHash,
		ExplorerURL:     e.submitter.ExplorerURL(outcome.EscrowHash),
		BankID:          b.ID,
		BankName:        b.Name,
		Credit:          score,
		UnlockTimestamp: req.UnlockTime.Unix(),
		CreatedAt:       time.Now().UTC(),
	}
	e.log.Infof("Decision %s: %s, amount %s XRP via %s, tx %s", decisionID, status, req.Amount, b.Name, outcome.EscrowHash)
	return d
}

func (e *Engine) reject(decisionID string, req *models.LiquidityRequest, score *models.CreditScore, reason string) *models.CreditDecision {
	e.log.Infof("Decision %s: rejected: %s", decisionID, reason)
	return &models.CreditDecision{
		ID:             decisionID,
		BusinessID:     req.BusinessID,
		Status:         models.DecisionRejected,
		ApprovedAmount: decimal.Zero,
		Reason:         reason,
		Credit:         score,
		CreatedAt:      time.Now().UTC(),
	}
}

func (e *Engine) priceRate() string {
	rate := fallbackRate
	if e.rates != nil {
		r, err := e.rates.LendingRate()
		if err != nil {
			e.log.Warnf("Base rate feed unavailable, using fallback: %v", err)
		} else {
			rate = r
		}
	}
	return fmt.Sprintf("%.2f%%", rate)
}

func (e *Engine) alert(d *models.CreditDecision) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.AlertDecision(d); err != nil {
		e.log.Errorf("Failed to send operator alert for decision %s: %v", d.ID, err)
	}
}

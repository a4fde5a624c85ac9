// Package escrow sequences the ledger writes that settle an approved credit
// decision.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/models"
	"github.com/tglc-labs/liquidity-service/internal/utils"
	"github.com/tglc-labs/liquidity-service/internal/xrpl"
)

// State is a stage of the settlement state machine.
type State string

const (
	StatePreparing         State = "preparing"
	StateSubmitting        State = "submitting"
	StateEscrowed          State = "escrowed"
	StateAttachingClawback State = "attaching_clawback"
	// StateCommitted is the terminal success state; exposure may be
	// committed only once it is reached.
	StateCommitted State = "committed"
	// StateFailed means the escrow submission definitively did not apply.
	// Nothing exists on the ledger; the attempt may be retried elsewhere.
	StateFailed State = "failed"
	// StatePartiallyFailed means the escrow exists on the ledger but the
	// clawback right was not registered. Irreversible, and distinct from
	// a clean approval: collateral protection is missing.
	StatePartiallyFailed State = "partially_failed"
	// StateIndeterminate means the submission outcome is unknown. Manual
	// reconciliation against the ledger history is required before retry.
	StateIndeterminate State = "indeterminate"
)

// Outcome is the terminal result of one settlement attempt.
type Outcome struct {
	State        State
	Fingerprint  string
	EscrowHash   string
	ClawbackHash string
	Record       *models.EscrowRecord
	Err          error
	ErrCode      string
	// Replayed is true when this outcome was recorded by an earlier
	// attempt with the same fingerprint and no new submission happened.
	Replayed bool
}

// Orchestrator issues the escrow-create transaction and, when the platform
// acts as sole issuer, the companion clawback-rights transaction.
//
// Submissions are idempotent at this boundary: each attempt carries a
// deterministic fingerprint, and any fingerprint that already reached the
// ledger (or whose outcome is unknown) replays its recorded outcome instead
// of being resubmitted.
type Orchestrator struct {
	gw      xrpl.Gateway
	issuer  xrpl.Wallet
	network string
	secret  string
	log     *logrus.Logger

	mu       sync.Mutex
	outcomes map[string]*Outcome
}

// NewOrchestrator initializes an escrow orchestrator. issuer is the platform
// wallet used when a matched bank cannot sign for itself.
func NewOrchestrator(gw xrpl.Gateway, issuer xrpl.Wallet, network, hmacSecret string, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		gw:       gw,
		issuer:   issuer,
		network:  network,
		secret:   hmacSecret,
		log:      log,
		outcomes: make(map[string]*Outcome),
	}
}

// fingerprint derives the idempotency key for a (request, bank) submission.
// The client request ID keeps two distinct draws with identical parameters
// apart while retries of one draw collapse onto the same fingerprint.
func (o *Orchestrator) fingerprint(req *models.LiquidityRequest, bank models.Bank) string {
	return utils.Fingerprint(o.secret,
		req.RequestID,
		req.BusinessID,
		bank.ID,
		req.Amount.String(),
		strconv.FormatInt(req.UnlockTime.Unix(), 10),
	)
}

// Execute runs the settlement state machine for an approved request against
// the selected bank. It returns a terminal Outcome and never rolls back a
// write that reached the ledger.
func (o *Orchestrator) Execute(ctx context.Context, decisionID string, req *models.LiquidityRequest, bank models.Bank) *Outcome {
	fp := o.fingerprint(req, bank)

	o.mu.Lock()
	if prev, ok := o.outcomes[fp]; ok {
		o.mu.Unlock()
		o.log.Infof("Replaying recorded outcome %s for fingerprint %s", prev.State, fp)
		replay := *prev
		replay.Replayed = true
		return &replay
	}
	o.mu.Unlock()

	outcome := o.run(ctx, decisionID, req, bank, fp)

	// Memoize everything except definite failures: a failed submission
	// never reached the ledger, so retrying it cannot create a duplicate.
	if outcome.State != StateFailed {
		o.mu.Lock()
		o.outcomes[fp] = outcome
		o.mu.Unlock()
	}
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, decisionID string, req *models.LiquidityRequest, bank models.Bank, fp string) *Outcome {
	// Preparing
	drops, err := xrpl.XRPToDrops(req.Amount)
	if err != nil {
		return &Outcome{State: StateFailed, Fingerprint: fp, Err: fmt.Errorf("failed to prepare escrow: %w", err)}
	}

	wallet := o.issuer
	soleIssuer := true
	if bank.CanSign() {
		wallet = xrpl.Wallet{Address: bank.WalletAddress, Seed: bank.SigningSeed}
		soleIssuer = false
	}

	finishAfter := req.UnlockTime.Unix()
	create := &xrpl.EscrowCreate{
		Account:     wallet.Address,
		Destination: req.Address,
		AmountDrops: drops,
		FinishAfter: finishAfter,
	}
	o.log.Infof("Prepared EscrowCreate from %s to %s, amount %s XRP, finish after %d",
		wallet.Address, req.Address, req.Amount, finishAfter)

	// Submitting
	result, err := o.gw.Submit(ctx, create, wallet)
	if err != nil {
		if errors.Is(err, xrpl.ErrTimeout) {
			o.log.Errorf("EscrowCreate outcome unknown for fingerprint %s: %v", fp, err)
			return &Outcome{State: StateIndeterminate, Fingerprint: fp, Err: err}
		}
		out := &Outcome{State: StateFailed, Fingerprint: fp, Err: err}
		var se *xrpl.SubmissionError
		if errors.As(err, &se) {
			out.ErrCode = se.Code
		}
		o.log.Errorf("EscrowCreate failed for fingerprint %s: %v", fp, err)
		return out
	}

	// Escrowed
	record := &models.EscrowRecord{
		DecisionID:  decisionID,
		TxHash:      result.Hash,
		Owner:       wallet.Address,
		Destination: req.Address,
		Amount:      req.Amount,
		FinishAfter: finishAfter,
		Fingerprint: fp,
		CreatedAt:   time.Now().UTC(),
	}
	o.log.Infof("Escrow created: hash=%s owner=%s destination=%s", result.Hash, record.Owner, record.Destination)

	if !soleIssuer {
		// The bank signed its own escrow and carries its own protection.
		return &Outcome{State: StateCommitted, Fingerprint: fp, EscrowHash: result.Hash, Record: record}
	}

	// AttachingClawback: the platform is the sole issuer, so it registers
	// the right to reclaim funds if the loan is not repaid.
	clawback := &xrpl.Clawback{
		Issuer: o.issuer.Address,
		Holder: req.Address,
		Amount: req.Amount.String(),
	}
	clawbackResult, err := o.gw.Submit(ctx, clawback, o.issuer)
	if err != nil {
		// The escrow already exists on the ledger and cannot be undone.
		o.log.Errorf("Clawback attachment failed for escrow %s: %v", result.Hash, err)
		out := &Outcome{
			State:       StatePartiallyFailed,
			Fingerprint: fp,
			EscrowHash:  result.Hash,
			Record:      record,
			Err:         fmt.Errorf("escrow %s committed but clawback attachment failed: %w", result.Hash, err),
		}
		var se *xrpl.SubmissionError
		if errors.As(err, &se) {
			out.ErrCode = se.Code
		}
		return out
	}

	record.ClawbackAttached = true
	record.ClawbackTxHash = clawbackResult.Hash
	o.log.Infof("Clawback attached: hash=%s", clawbackResult.Hash)

	return &Outcome{
		State:        StateCommitted,
		Fingerprint:  fp,
		EscrowHash:   result.Hash,
		ClawbackHash: clawbackResult.Hash,
		Record:       record,
	}
}

// Reconcile clears the recorded outcome for a fingerprint after an operator
// has verified the ledger's transaction history, allowing a fresh attempt.
func (o *Orchestrator) Reconcile(fingerprint string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.outcomes, fingerprint)
}

// ExplorerURL returns the explorer link for a transaction on the configured
// network.
func (o *Orchestrator) ExplorerURL(txHash string) string {
	return xrpl.ExplorerURL(o.network, txHash)
}

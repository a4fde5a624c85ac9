package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/credit"
	"github.com/tglc-labs/liquidity-service/internal/escrow"
	"github.com/tglc-labs/liquidity-service/internal/exposure"
	"github.com/tglc-labs/liquidity-service/internal/models"
	"github.com/tglc-labs/liquidity-service/internal/policy"
	"github.com/tglc-labs/liquidity-service/internal/xrpl"
)

const borrowerAddr = "rBorrower1234567890123456789"

// mockGateway backs the whole pipeline: scoring reads and escrow writes.
type mockGateway struct {
	mu        sync.Mutex
	lines     int
	payments  int
	linesErr  error
	submitErr map[string]error // keyed by source account
	txTypeErr map[string]error // keyed by transaction type
	submits   int
	hashes    int
}

func newMockGateway(lines, payments int) *mockGateway {
	return &mockGateway{
		lines:     lines,
		payments:  payments,
		submitErr: make(map[string]error),
		txTypeErr: make(map[string]error),
	}
}

func (g *mockGateway) failSubmitsFrom(account string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitErr[account] = err
}

func (g *mockGateway) failSubmitsOfType(txType string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.txTypeErr[txType] = err
}

func (g *mockGateway) escrowSubmits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submits
}

func (g *mockGateway) Submit(ctx context.Context, tx xrpl.Transaction, w xrpl.Wallet) (*xrpl.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tx.TransactionType() == "EscrowCreate" {
		g.submits++
	}
	if err := g.submitErr[w.Address]; err != nil {
		return nil, err
	}
	if err := g.txTypeErr[tx.TransactionType()]; err != nil {
		return nil, err
	}
	g.hashes++
	return &xrpl.SubmitResult{Hash: fmt.Sprintf("HASH%04d", g.hashes), ResultCode: "tesSUCCESS"}, nil
}

func (g *mockGateway) AccountInfo(ctx context.Context, address string) (*xrpl.AccountState, error) {
	return &xrpl.AccountState{Address: address, Balance: decimal.NewFromInt(50000)}, nil
}

func (g *mockGateway) AccountLines(ctx context.Context, address string) ([]xrpl.TrustLine, error) {
	if g.linesErr != nil {
		return nil, g.linesErr
	}
	return make([]xrpl.TrustLine, g.lines), nil
}

func (g *mockGateway) AccountTransactions(ctx context.Context, address string, limit int) ([]xrpl.TxRecord, error) {
	txs := make([]xrpl.TxRecord, g.payments)
	for i := range txs {
		txs[i] = xrpl.TxRecord{Type: "Payment", Result: "tesSUCCESS"}
	}
	return txs, nil
}

type staticBanks []models.Bank

func (s staticBanks) List() []models.Bank { return s }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.CreditDecision
}

func (n *recordingNotifier) AlertDecision(d *models.CreditDecision) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, d)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testBank(id, wallet string, minScore int, signing bool) models.Bank {
	seed := ""
	if signing {
		seed = "sSeed" + id
	}
	return models.Bank{
		ID:            id,
		Name:          "Bank " + id,
		WalletAddress: wallet,
		SigningSeed:   seed,
		Active:        true,
		Policy: models.CreditPolicy{
			MinScore:           minScore,
			MaxAmount:          decimal.NewFromInt(10000),
			MaxDurationDays:    30,
			MaxDefaultRate:     0.05,
			MaxExposure:        decimal.NewFromInt(20000),
			RiskScoreThreshold: 300,
		},
		Balance: decimal.NewFromInt(50000),
	}
}

type fixture struct {
	engine    *Engine
	gw        *mockGateway
	exposures *exposure.Tracker
	notifier  *recordingNotifier
}

// newFixture wires a full pipeline over the mock gateway. 4 trust lines and
// 12 successful payments score the borrower at 780.
func newFixture(banks ...models.Bank) *fixture {
	gw := newMockGateway(4, 12)
	log := testLogger()
	tracker := exposure.NewTracker()
	notifier := &recordingNotifier{}
	issuer := xrpl.Wallet{Address: "rIssuerWallet123456789012345", Seed: "sIssuerSeed"}
	orch := escrow.NewOrchestrator(gw, issuer, "testnet", "test-secret", log)

	eng := NewEngine(
		credit.NewScorer(gw, log),
		credit.NewVerifier(0),
		policy.NewEngine(),
		staticBanks(banks),
		tracker,
		orch,
		nil,
		notifier,
		log,
	)
	return &fixture{engine: eng, gw: gw, exposures: tracker, notifier: notifier}
}

func request(id string, amount int64) *models.LiquidityRequest {
	unlock := time.Unix(1900000000, 0).UTC()
	req := models.NewLiquidityRequest(id, borrowerAddr, decimal.NewFromInt(amount), 7, &unlock, nil, 30)
	return req
}

func TestDecide_ApprovesEligibleRequest(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))

	d := f.engine.Decide(context.Background(), request("r1", 4000))
	if d.Status != models.DecisionApproved || !d.Approved {
		t.Fatalf("status = %s, want approved (reason %q)", d.Status, d.Reason)
	}
	if !d.ApprovedAmount.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("approved amount = %s, want 4000", d.ApprovedAmount)
	}
	if d.TxHash == "" {
		t.Error("expected a ledger transaction reference")
	}
	if d.Credit == nil || d.Credit.Score != 780 {
		t.Fatalf("credit score = %+v, want 780", d.Credit)
	}
	if d.Rate != "5.00%" {
		t.Errorf("rate = %q, want fallback 5.00%%", d.Rate)
	}
	if got := f.exposures.Exposure(d.BusinessID, "b1"); !got.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("exposure = %s, want 4000", got)
	}
}

func TestDecide_RejectsAmountAboveMaxEligible(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))

	d := f.engine.Decide(context.Background(), request("r1", 12000))
	if d.Status != models.DecisionRejected {
		t.Fatalf("status = %s, want rejected", d.Status)
	}
	if !d.ApprovedAmount.IsZero() {
		t.Errorf("approved amount = %s, want 0", d.ApprovedAmount)
	}
	if !strings.Contains(d.Reason, "maximum eligible") {
		t.Errorf("reason %q does not mention maximum eligible", d.Reason)
	}
	if f.gw.escrowSubmits() != 0 {
		t.Errorf("escrow submitted %d times for a rejected request", f.gw.escrowSubmits())
	}
}

func TestDecide_DataUnavailableIsHardRejection(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))
	f.gw.linesErr = fmt.Errorf("ledger unreachable")

	d := f.engine.Decide(context.Background(), request("r1", 4000))
	if d.Status != models.DecisionRejected {
		t.Fatalf("status = %s, want rejected", d.Status)
	}
	if !strings.Contains(d.Reason, "credit history unavailable") {
		t.Errorf("reason %q does not mention unavailable history", d.Reason)
	}
}

func TestDecide_NoEligibleBank(t *testing.T) {
	f := newFixture()

	d := f.engine.Decide(context.Background(), request("r1", 4000))
	if d.Status != models.DecisionRejected {
		t.Fatalf("status = %s, want rejected", d.Status)
	}
	if !strings.Contains(d.Reason, "no eligible bank") {
		t.Errorf("reason %q does not mention missing bank", d.Reason)
	}
}

func TestDecide_SequentialDrawsStopAtExposureLimit(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))

	// Five draws of 4000 fill the 20000 exposure cap exactly.
	for i := 0; i < 5; i++ {
		d := f.engine.Decide(context.Background(), request(fmt.Sprintf("r%d", i), 4000))
		if d.Status != models.DecisionApproved {
			t.Fatalf("draw %d: status = %s, want approved (reason %q)", i+1, d.Status, d.Reason)
		}
	}

	d := f.engine.Decide(context.Background(), request("r-last", 4000))
	if d.Status != models.DecisionRejected {
		t.Fatalf("status = %s, want rejected", d.Status)
	}
	if !strings.Contains(d.Reason, "exposure") {
		t.Errorf("reason %q does not mention exposure", d.Reason)
	}
	if got := f.exposures.Exposure(d.BusinessID, "b1"); !got.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("exposure = %s, want 20000", got)
	}
}

func TestDecide_ConcurrentDrawsNeverOvercommit(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]*models.CreditDecision, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.engine.Decide(context.Background(), request(fmt.Sprintf("r%d", i), 4000))
		}(i)
	}
	wg.Wait()

	approved := 0
	for _, d := range results {
		if d.Status == models.DecisionApproved {
			approved++
		}
	}
	if approved != 5 {
		t.Errorf("approved = %d, want exactly 5 within the 20000 cap", approved)
	}
	if got := f.exposures.Exposure("did:xrpl:"+borrowerAddr, "b1"); got.GreaterThan(decimal.NewFromInt(20000)) {
		t.Errorf("exposure %s exceeds the bank limit", got)
	}
}

func TestDecide_TimeoutIsIndeterminateAndHoldsReservation(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))
	f.gw.failSubmitsFrom("rBankWalletA1234567890123456", fmt.Errorf("submit: %w", xrpl.ErrTimeout))

	req := request("r1", 4000)
	d := f.engine.Decide(context.Background(), req)
	if d.Status != models.DecisionIndeterminate {
		t.Fatalf("status = %s, want indeterminate", d.Status)
	}
	if got := f.exposures.Exposure(req.BusinessID, "b1"); !got.IsZero() {
		t.Errorf("committed exposure = %s after timeout, want 0", got)
	}
	if got := f.exposures.Outstanding(req.BusinessID, "b1"); !got.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("outstanding = %s, want the reservation held at 4000", got)
	}
	if f.notifier.count() != 1 {
		t.Errorf("operator alerts = %d, want 1", f.notifier.count())
	}

	// Retrying the same idempotency key must not submit a second escrow,
	// even though the gateway has recovered.
	f.gw.failSubmitsFrom("rBankWalletA1234567890123456", nil)
	retry := f.engine.Decide(context.Background(), request("r1", 4000))
	if retry.Status != models.DecisionIndeterminate {
		t.Fatalf("retry status = %s, want indeterminate", retry.Status)
	}
	if f.gw.escrowSubmits() != 1 {
		t.Errorf("escrow submitted %d times, want 1", f.gw.escrowSubmits())
	}
	if got := f.exposures.Outstanding(retry.BusinessID, "b1"); !got.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("outstanding after retry = %s, want 4000 (no reservation leak)", got)
	}
}

func TestDecide_FallsBackToNextBankOnPermanentFailure(t *testing.T) {
	lenient := testBank("b1", "rBankWalletA1234567890123456", 400, true)
	strict := testBank("b2", "rBankWalletB1234567890123456", 600, true)
	f := newFixture(lenient, strict)
	f.gw.failSubmitsFrom(lenient.WalletAddress, &xrpl.SubmissionError{Code: "tecUNFUNDED", Message: "insufficient balance"})

	d := f.engine.Decide(context.Background(), request("r1", 4000))
	if d.Status != models.DecisionApproved {
		t.Fatalf("status = %s, want approved via fallback (reason %q)", d.Status, d.Reason)
	}
	if d.BankID != "b2" {
		t.Errorf("settled via %s, want b2", d.BankID)
	}
	if got := f.exposures.Outstanding(d.BusinessID, "b1"); !got.IsZero() {
		t.Errorf("failed bank still holds %s of exposure", got)
	}
	if got := f.exposures.Exposure(d.BusinessID, "b2"); !got.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("exposure at fallback bank = %s, want 4000", got)
	}
}

func TestDecide_AllBanksFailingRejects(t *testing.T) {
	b := testBank("b1", "rBankWalletA1234567890123456", 500, true)
	f := newFixture(b)
	f.gw.failSubmitsFrom(b.WalletAddress, &xrpl.SubmissionError{Code: "tecUNFUNDED", Message: "insufficient balance"})

	d := f.engine.Decide(context.Background(), request("r1", 4000))
	if d.Status != models.DecisionRejected {
		t.Fatalf("status = %s, want rejected", d.Status)
	}
	if !strings.Contains(d.Reason, "ledger submission failed") {
		t.Errorf("reason %q does not mention the submission failure", d.Reason)
	}
	if got := f.exposures.Outstanding(d.BusinessID, "b1"); !got.IsZero() {
		t.Errorf("outstanding = %s after release, want 0", got)
	}
}

func TestDecide_PartialFailureIsSurfacedDistinctly(t *testing.T) {
	// A bank without signing capability puts the platform in sole issuer
	// mode, where the clawback companion transaction applies.
	b := testBank("b1", "rBankWalletA1234567890123456", 500, false)
	f := newFixture(b)
	f.gw.failSubmitsOfType("Clawback", &xrpl.SubmissionError{Code: "tecNO_PERMISSION", Message: "no permission"})

	d := f.engine.Decide(context.Background(), request("r1", 4000))
	if d.Status != models.DecisionPartialFailure {
		t.Fatalf("status = %s, want partial_failure (reason %q)", d.Status, d.Reason)
	}
	if d.Approved {
		t.Error("partial failure must not report as a clean approval")
	}
	if d.TxHash == "" {
		t.Error("the committed escrow hash must be reported")
	}
	// Funds are locked on the ledger, so exposure is committed.
	if got := f.exposures.Exposure(d.BusinessID, "b1"); !got.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("exposure = %s, want 4000", got)
	}
	if f.notifier.count() != 1 {
		t.Errorf("operator alerts = %d, want 1", f.notifier.count())
	}
}

func TestDecide_ProofFeedsPolicyDefaultRate(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))

	req := request("r1", 4000)
	req.Proof = &models.ProofPayload{DefaultRate: 0.5}
	d := f.engine.Decide(context.Background(), req)
	if d.Status != models.DecisionRejected {
		t.Fatalf("status = %s, want rejected on the proof's default rate", d.Status)
	}
	if !strings.Contains(d.Reason, "default rate") {
		t.Errorf("reason %q does not mention the default rate", d.Reason)
	}
}

func TestDecide_InvalidProofIsAdvisoryOnly(t *testing.T) {
	f := newFixture(testBank("b1", "rBankWalletA1234567890123456", 500, true))

	stale := time.Now().UTC().Add(-2 * time.Hour)
	req := request("r1", 4000)
	req.Proof = &models.ProofPayload{DefaultRate: 0.5, Timestamp: &stale}
	d := f.engine.Decide(context.Background(), req)
	if d.Status != models.DecisionApproved {
		t.Fatalf("status = %s, want approved with the proof ignored (reason %q)", d.Status, d.Reason)
	}
}

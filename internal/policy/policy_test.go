package policy

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tglc-labs/liquidity-service/internal/models"
)

func testPolicy() models.CreditPolicy {
	return models.CreditPolicy{
		MinScore:           500,
		MaxAmount:          decimal.NewFromInt(10000),
		MaxDurationDays:    30,
		MaxDefaultRate:     0.05,
		MaxExposure:        decimal.NewFromInt(20000),
		RiskScoreThreshold: 300,
	}
}

func testRequest(amount int64, duration int, defaultRate float64) *models.LiquidityRequest {
	return &models.LiquidityRequest{
		BusinessID:   "did:xrpl:rBorrower1234567890123456789",
		Address:      "rBorrower1234567890123456789",
		Amount:       decimal.NewFromInt(amount),
		DurationDays: duration,
		Metrics:      models.RiskMetrics{DefaultRate: defaultRate},
	}
}

func TestEngine_Evaluate(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		req      *models.LiquidityRequest
		exposure int64
		score    int
		allowed  bool
		reason   string
	}{
		{"compliant request", testRequest(4000, 7, 0.004), 0, 700, true, ""},
		{"duration too long", testRequest(4000, 60, 0.004), 0, 700, false, "duration"},
		{"default rate too high", testRequest(4000, 7, 0.10), 0, 700, false, "default rate"},
		{"exposure limit exceeded", testRequest(4000, 7, 0.004), 17000, 700, false, "exposure limit"},
		{"score below risk threshold", testRequest(4000, 7, 0.004), 0, 250, false, "risk threshold"},
		{"exposure exactly at limit passes", testRequest(4000, 7, 0.004), 16000, 700, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(tt.req, testPolicy(), decimal.NewFromInt(tt.exposure), tt.score)
			if res.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v (reason %q)", res.Allowed, tt.allowed, res.Reason)
			}
			if !tt.allowed && !strings.Contains(res.Reason, tt.reason) {
				t.Errorf("reason %q does not mention %q", res.Reason, tt.reason)
			}
		})
	}
}

// The first failing check determines the reason, in duration, risk, exposure
// priority order.
func TestEngine_ReasonPriority(t *testing.T) {
	e := NewEngine()

	req := testRequest(4000, 60, 0.10) // violates duration and default rate
	res := e.Evaluate(req, testPolicy(), decimal.NewFromInt(19000), 700)
	if res.Allowed {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(res.Reason, "duration") {
		t.Errorf("expected duration to win reason priority, got %q", res.Reason)
	}
}

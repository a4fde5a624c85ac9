package bank

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tglc-labs/liquidity-service/internal/models"
)

func testBank(id string, minScore int, maxAmount, balance int64, active bool) models.Bank {
	return models.Bank{
		ID:     id,
		Name:   id,
		Active: active,
		Policy: models.CreditPolicy{
			MinScore:  minScore,
			MaxAmount: decimal.NewFromInt(maxAmount),
		},
		Balance: decimal.NewFromInt(balance),
	}
}

func TestMatch_FiltersIneligibleBanks(t *testing.T) {
	banks := []models.Bank{
		testBank("fits", 500, 10000, 50000, true),
		testBank("amount-too-small", 500, 1000, 50000, true),
		testBank("score-too-strict", 800, 10000, 50000, true),
		testBank("underfunded", 500, 10000, 100, true),
		testBank("inactive", 500, 10000, 50000, false),
	}

	matches := Match(banks, decimal.NewFromInt(4000), 700)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].ID != "fits" {
		t.Errorf("matched %s, want fits", matches[0].ID)
	}
}

func TestMatch_SortsByPermissiveness(t *testing.T) {
	banks := []models.Bank{
		testBank("strict", 700, 10000, 50000, true),
		testBank("lenient", 400, 10000, 50000, true),
		testBank("middle", 550, 10000, 50000, true),
	}

	matches := Match(banks, decimal.NewFromInt(4000), 750)
	want := []string{"lenient", "middle", "strict"}
	if len(matches) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(matches))
	}
	for i, id := range want {
		if matches[i].ID != id {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].ID, id)
		}
	}
}

func TestMatch_EmptyRegistry(t *testing.T) {
	if matches := Match(nil, decimal.NewFromInt(4000), 700); len(matches) != 0 {
		t.Errorf("expected empty match list, got %d entries", len(matches))
	}
}

func TestMatch_BoundaryValues(t *testing.T) {
	banks := []models.Bank{testBank("exact", 700, 4000, 4000, true)}

	// Amount equal to policy max and balance is eligible; score equal to
	// policy min is eligible.
	matches := Match(banks, decimal.NewFromInt(4000), 700)
	if len(matches) != 1 {
		t.Fatalf("expected exact-boundary bank to match, got %d matches", len(matches))
	}
	if matches := Match(banks, decimal.NewFromInt(4000), 699); len(matches) != 0 {
		t.Errorf("expected no match below minimum score, got %d", len(matches))
	}
}

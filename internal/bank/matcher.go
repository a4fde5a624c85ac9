package bank

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tglc-labs/liquidity-service/internal/models"
)

// Match filters banks to those that can serve the request and orders them by
// permissiveness: ascending minimum credit score, so marginal borrowers are
// routed to the banks most likely to accept them.
func Match(banks []models.Bank, amount decimal.Decimal, score int) []models.Bank {
	matches := make([]models.Bank, 0, len(banks))
	for _, b := range banks {
		if !b.Active {
			continue
		}
		if b.Policy.MaxAmount.LessThan(amount) {
			continue
		}
		if b.Policy.MinScore > score {
			continue
		}
		if b.Balance.LessThan(amount) {
			continue
		}
		matches = append(matches, b)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Policy.MinScore < matches[j].Policy.MinScore
	})
	return matches
}

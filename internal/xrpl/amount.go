package xrpl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// dropsPerXRP is the fixed multiplier between the user-facing unit and the
// ledger's smallest indivisible unit. All internal ledger amounts are drops.
var dropsPerXRP = decimal.NewFromInt(1_000_000)

// rippleEpochOffset is the Unix timestamp of the ripple epoch (2000-01-01).
const rippleEpochOffset int64 = 946684800

// XRPToDrops converts an XRP amount to a drops string. The amount must be a
// whole number of drops; sub-drop precision is rejected rather than rounded.
func XRPToDrops(amount decimal.Decimal) (string, error) {
	drops := amount.Mul(dropsPerXRP)
	if !drops.IsInteger() {
		return "", fmt.Errorf("amount %s has sub-drop precision", amount)
	}
	if drops.Sign() <= 0 {
		return "", fmt.Errorf("amount %s is not positive", amount)
	}
	return drops.String(), nil
}

// DropsToXRP converts a drops string from the ledger to an XRP amount.
func DropsToXRP(drops string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(drops)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid drops value %q: %w", drops, err)
	}
	return d.Div(dropsPerXRP), nil
}

// UnixToRippleTime converts a Unix timestamp to seconds since the ripple
// epoch, the unit FinishAfter is expressed in on the wire.
func UnixToRippleTime(unix int64) int64 {
	return unix - rippleEpochOffset
}

// ExplorerURL returns the transaction explorer link for a hash on the given
// network.
func ExplorerURL(network, txHash string) string {
	base := map[string]string{
		"mainnet": "https://livenet.xrpl.org/transactions",
		"testnet": "https://testnet.xrpl.org/transactions",
		"devnet":  "https://devnet.xrpl.org/transactions",
	}
	u, ok := base[network]
	if !ok {
		u = base["testnet"]
	}
	return fmt.Sprintf("%s/%s", u, txHash)
}

package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// MaxXRPAmount caps user-facing request amounts.
var MaxXRPAmount = decimal.NewFromInt(1_000_000_000)

var addressPattern = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{25,34}$`)

// ValidateAddress checks a classic XRPL address.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("invalid XRPL address format: %q", address)
	}
	return nil
}

// ValidateAmount checks that an XRP amount is positive and within bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive, got %s", amount)
	}
	if amount.GreaterThan(MaxXRPAmount) {
		return fmt.Errorf("amount %s exceeds maximum of %s XRP", amount, MaxXRPAmount)
	}
	return nil
}

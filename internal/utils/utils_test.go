package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "classic address", address: "rBorrower1234567890123456789"},
		{name: "missing r prefix", address: "xBorrower1234567890123456789", wantErr: true},
		{name: "too short", address: "rShort", wantErr: true},
		{name: "forbidden base58 characters", address: "rBorrower12345678901234567O0", wantErr: true},
		{name: "empty", address: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.address, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(decimal.NewFromInt(4000)); err != nil {
		t.Errorf("ValidateAmount(4000): %v", err)
	}
	if err := ValidateAmount(decimal.Zero); err == nil {
		t.Error("expected an error for zero")
	}
	if err := ValidateAmount(decimal.NewFromInt(-1)); err == nil {
		t.Error("expected an error for a negative amount")
	}
	if err := ValidateAmount(MaxXRPAmount.Add(decimal.NewFromInt(1))); err == nil {
		t.Error("expected an error above the maximum")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("secret", "req-1", "biz", "bank", "4000")
	b := Fingerprint("secret", "req-1", "biz", "bank", "4000")
	if a != b {
		t.Error("identical inputs must produce identical fingerprints")
	}

	if Fingerprint("secret", "req-2", "biz", "bank", "4000") == a {
		t.Error("a different request must produce a different fingerprint")
	}
	if Fingerprint("other", "req-1", "biz", "bank", "4000") == a {
		t.Error("a different secret must produce a different fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex characters", len(a))
	}
}

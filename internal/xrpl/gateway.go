package xrpl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrTimeout marks a submission whose outcome is unknown: the ledger may or
// may not have applied the transaction. Callers must not treat it as either
// success or failure.
var ErrTimeout = errors.New("xrpl: request timed out")

// SubmissionError is a definite ledger-side rejection of a transaction.
type SubmissionError struct {
	Code      string // engine result code, e.g. tecUNFUNDED
	Message   string
	Retryable bool
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("xrpl: submission failed: %s (%s)", e.Message, e.Code)
}

// IsRetryable reports whether a submission error is transient. Timeouts are
// deliberately excluded: they are indeterminate, not retryable as-is.
func IsRetryable(err error) bool {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// classifyResult maps an engine result code onto success / retryable /
// permanent. ter and tel class codes may succeed on a later ledger; tec and
// tem class codes are final.
func classifyResult(code string) (success, retryable bool) {
	if strings.HasPrefix(code, "tes") {
		return true, false
	}
	if strings.HasPrefix(code, "ter") || strings.HasPrefix(code, "tel") {
		return false, true
	}
	return false, false
}

// Wallet identifies a signing account. The gateway passes the seed to the
// ledger's sign-and-submit endpoint; key management beyond that is out of
// scope here.
type Wallet struct {
	Address string
	Seed    string
}

// SubmitResult is the outcome of a successful transaction submission.
type SubmitResult struct {
	Hash       string
	ResultCode string
	Raw        []byte
}

// AccountState is the validated state of a ledger account.
type AccountState struct {
	Address  string
	Balance  decimal.Decimal // XRP
	Sequence uint32
}

// TrustLine is a credit relationship between two accounts.
type TrustLine struct {
	Account  string
	Currency string
	Balance  string
	Limit    string
}

// TxRecord is a single entry from an account's transaction history.
type TxRecord struct {
	Type   string
	Result string
	Hash   string
}

// Gateway is the narrow ledger contract the orchestrator consumes. RPC
// endpoint selection, transport retries and signing live behind it.
type Gateway interface {
	Submit(ctx context.Context, tx Transaction, w Wallet) (*SubmitResult, error)
	AccountInfo(ctx context.Context, address string) (*AccountState, error)
	AccountLines(ctx context.Context, address string) ([]TrustLine, error)
	AccountTransactions(ctx context.Context, address string, limit int) ([]TxRecord, error)
}

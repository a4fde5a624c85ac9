// Package exposure tracks outstanding lending exposure per (business, bank)
// pair.
package exposure

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrLimitExceeded is returned when a reservation would push the pair's
// exposure past the bank's limit.
var ErrLimitExceeded = errors.New("exposure: limit exceeded")

type pairKey struct {
	businessID string
	bankID     string
}

// Tracker holds committed and reserved exposure per (business, bank) pair.
//
// Concurrent requests against the same bank must not both pass the capacity
// check and then both commit. Reserve performs check-and-hold under a single
// lock; a successful reservation is either committed after a confirmed escrow
// submission or released when a later step fails. Indeterminate submissions
// keep their reservation until an operator reconciles against the ledger.
type Tracker struct {
	mu        sync.Mutex
	committed map[pairKey]decimal.Decimal
	reserved  map[pairKey]decimal.Decimal
}

// NewTracker initializes an empty exposure tracker.
func NewTracker() *Tracker {
	return &Tracker{
		committed: make(map[pairKey]decimal.Decimal),
		reserved:  make(map[pairKey]decimal.Decimal),
	}
}

// CanLend reports whether the pair could absorb amount without exceeding
// limit. Read-only; a true answer is advisory and can go stale, so callers
// about to submit must use Reserve.
func (t *Tracker) CanLend(businessID, bankID string, amount, limit decimal.Decimal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outstanding(pairKey{businessID, bankID}).Add(amount).LessThanOrEqual(limit)
}

// Reserve atomically checks the limit and holds amount against the pair.
func (t *Tracker) Reserve(businessID, bankID string, amount, limit decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("exposure: reservation amount %s is not positive", amount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{businessID, bankID}
	if t.outstanding(key).Add(amount).GreaterThan(limit) {
		return fmt.Errorf("%w: business %s at bank %s", ErrLimitExceeded, businessID, bankID)
	}
	t.reserved[key] = t.reserved[key].Add(amount)
	return nil
}

// Commit converts a reservation into committed exposure. Called only after a
// confirmed escrow submission.
func (t *Tracker) Commit(businessID, bankID string, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{businessID, bankID}
	t.reserved[key] = t.reserved[key].Sub(amount)
	if t.reserved[key].Sign() <= 0 {
		delete(t.reserved, key)
	}
	t.committed[key] = t.committed[key].Add(amount)
}

// Release drops a reservation, compensating for a failed downstream step.
func (t *Tracker) Release(businessID, bankID string, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{businessID, bankID}
	t.reserved[key] = t.reserved[key].Sub(amount)
	if t.reserved[key].Sign() <= 0 {
		delete(t.reserved, key)
	}
}

// Settle reduces committed exposure after a repayment or escrow resolution.
func (t *Tracker) Settle(businessID, bankID string, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{businessID, bankID}
	t.committed[key] = t.committed[key].Sub(amount)
	if t.committed[key].Sign() <= 0 {
		delete(t.committed, key)
	}
}

// Exposure returns the committed exposure for a pair, excluding holds.
func (t *Tracker) Exposure(businessID, bankID string) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed[pairKey{businessID, bankID}]
}

// Outstanding returns committed plus reserved exposure for a pair.
func (t *Tracker) Outstanding(businessID, bankID string) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outstanding(pairKey{businessID, bankID})
}

// outstanding must be called with the lock held.
func (t *Tracker) outstanding(key pairKey) decimal.Decimal {
	return t.committed[key].Add(t.reserved[key])
}

// Package bank holds the registry of participating banks and the matcher
// that selects eligible banks for a request.
package bank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/models"
	"github.com/tglc-labs/liquidity-service/internal/utils"
	"github.com/tglc-labs/liquidity-service/internal/xrpl"
)

// Store persists bank records. The registry only needs to load the full list
// at startup and write back individual records.
type Store interface {
	ListBanks() ([]models.Bank, error)
	SaveBank(bank models.Bank) error
	UpdateBankBalance(bankID string, balance decimal.Decimal) error
}

// Registry is the in-memory system of record for banks at runtime. It is
// initialized from the store at startup and protects its map against
// concurrent mutation. Banks are never deleted, only deactivated.
type Registry struct {
	mu    sync.RWMutex
	banks map[string]models.Bank

	store Store
	gw    xrpl.Gateway
	log   *logrus.Logger
}

// NewRegistry loads all persisted banks into memory.
func NewRegistry(store Store, gw xrpl.Gateway, log *logrus.Logger) (*Registry, error) {
	banks, err := store.ListBanks()
	if err != nil {
		return nil, fmt.Errorf("failed to load banks: %w", err)
	}

	r := &Registry{
		banks: make(map[string]models.Bank, len(banks)),
		store: store,
		gw:    gw,
		log:   log,
	}
	for _, b := range banks {
		b.Policy.Normalize()
		r.banks[b.ID] = b
	}
	log.Infof("Loaded %d banks from store", len(r.banks))
	return r, nil
}

// Register adds a new bank, fetching its initial balance from the ledger.
func (r *Registry) Register(ctx context.Context, name, walletAddress string, policy models.CreditPolicy, signingSeed string) (models.Bank, error) {
	if err := utils.ValidateAddress(walletAddress); err != nil {
		return models.Bank{}, err
	}
	policy.Normalize()

	state, err := r.gw.AccountInfo(ctx, walletAddress)
	if err != nil {
		return models.Bank{}, fmt.Errorf("failed to fetch bank account info: %w", err)
	}

	now := time.Now().UTC()
	b := models.Bank{
		ID:            uuid.NewString(),
		Name:          name,
		WalletAddress: walletAddress,
		SigningSeed:   signingSeed,
		Policy:        policy,
		Balance:       state.Balance,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.store.SaveBank(b); err != nil {
		return models.Bank{}, fmt.Errorf("failed to persist bank: %w", err)
	}

	r.mu.Lock()
	r.banks[b.ID] = b
	r.mu.Unlock()

	r.log.Infof("Bank registered: %s (%s), balance %s XRP", b.Name, b.WalletAddress, b.Balance)
	return b, nil
}

// List returns a snapshot of all banks.
func (r *Registry) List() []models.Bank {
	r.mu.RLock()
	defer r.mu.RUnlock()

	banks := make([]models.Bank, 0, len(r.banks))
	for _, b := range r.banks {
		banks = append(banks, b)
	}
	return banks
}

// Get returns a bank by ID.
func (r *Registry) Get(bankID string) (models.Bank, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.banks[bankID]
	return b, ok
}

// Deactivate marks a bank as inactive so the matcher skips it.
func (r *Registry) Deactivate(bankID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.banks[bankID]
	if !ok {
		return fmt.Errorf("bank %s not found", bankID)
	}
	b.Active = false
	b.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveBank(b); err != nil {
		return fmt.Errorf("failed to persist bank: %w", err)
	}
	r.banks[bankID] = b
	return nil
}

// RefreshBalances re-queries every bank's on-ledger balance. Individual
// failures are logged and skipped; a refresh run is never fatal.
func (r *Registry) RefreshBalances(ctx context.Context) {
	for _, b := range r.List() {
		state, err := r.gw.AccountInfo(ctx, b.WalletAddress)
		if err != nil {
			r.log.Warnf("Failed to refresh balance for %s (%s): %v", b.Name, b.WalletAddress, err)
			continue
		}
		r.setBalance(b.ID, state.Balance)
	}
}

func (r *Registry) setBalance(bankID string, balance decimal.Decimal) {
	r.mu.Lock()
	b, ok := r.banks[bankID]
	if ok {
		b.Balance = balance
		b.UpdatedAt = time.Now().UTC()
		r.banks[bankID] = b
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := r.store.UpdateBankBalance(bankID, balance); err != nil {
		r.log.Warnf("Failed to persist balance for bank %s: %v", bankID, err)
	}
}

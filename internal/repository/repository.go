package repository

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tglc-labs/liquidity-service/internal/models"
)

// Repository provides database operations for the bank registry store and
// API users. It is a thin persistence layer; the in-memory registry remains
// the runtime system of record.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListBanks loads all persisted bank records.
func (r *Repository) ListBanks() ([]models.Bank, error) {
	query := `
		SELECT bank_id, bank_name, wallet_address, COALESCE(signing_seed, ''),
		       min_score, max_amount, max_duration_days, max_default_rate,
		       max_exposure, risk_score_threshold, balance_xrp, active,
		       created_at, updated_at
		FROM liquidity.banks`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	defer rows.Close()

	var banks []models.Bank
	for rows.Next() {
		var b models.Bank
		var maxAmount, maxExposure, balance string
		if err := rows.Scan(
			&b.ID, &b.Name, &b.WalletAddress, &b.SigningSeed,
			&b.Policy.MinScore, &maxAmount, &b.Policy.MaxDurationDays,
			&b.Policy.MaxDefaultRate, &maxExposure, &b.Policy.RiskScoreThreshold,
			&balance, &b.Active, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		if b.Policy.MaxAmount, err = decimal.NewFromString(maxAmount); err != nil {
			return nil, fmt.Errorf("invalid max_amount for bank %s: %w", b.ID, err)
		}
		if b.Policy.MaxExposure, err = decimal.NewFromString(maxExposure); err != nil {
			return nil, fmt.Errorf("invalid max_exposure for bank %s: %w", b.ID, err)
		}
		if b.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("invalid balance for bank %s: %w", b.ID, err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// SaveBank inserts or updates a bank record.
func (r *Repository) SaveBank(b models.Bank) error {
	query := `
		INSERT INTO liquidity.banks (
			bank_id, bank_name, wallet_address, signing_seed,
			min_score, max_amount, max_duration_days, max_default_rate,
			max_exposure, risk_score_threshold, balance_xrp, active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (bank_id) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			signing_seed = EXCLUDED.signing_seed,
			min_score = EXCLUDED.min_score,
			max_amount = EXCLUDED.max_amount,
			max_duration_days = EXCLUDED.max_duration_days,
			max_default_rate = EXCLUDED.max_default_rate,
			max_exposure = EXCLUDED.max_exposure,
			risk_score_threshold = EXCLUDED.risk_score_threshold,
			balance_xrp = EXCLUDED.balance_xrp,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.Exec(query,
		b.ID, b.Name, b.WalletAddress, b.SigningSeed,
		b.Policy.MinScore, b.Policy.MaxAmount.String(), b.Policy.MaxDurationDays,
		b.Policy.MaxDefaultRate, b.Policy.MaxExposure.String(), b.Policy.RiskScoreThreshold,
		b.Balance.String(), b.Active, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save bank: %w", err)
	}
	return nil
}

// UpdateBankBalance persists a refreshed on-ledger balance.
func (r *Repository) UpdateBankBalance(bankID string, balance decimal.Decimal) error {
	query := `
		UPDATE liquidity.banks
		SET balance_xrp = $2, updated_at = CURRENT_TIMESTAMP
		WHERE bank_id = $1`
	result, err := r.db.Exec(query, bankID, balance.String())
	if err != nil {
		return fmt.Errorf("failed to update bank balance: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bank %s not found", bankID)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO liquidity.users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM liquidity.users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

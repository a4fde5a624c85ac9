package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/bank"
	"github.com/tglc-labs/liquidity-service/internal/engine"
	"github.com/tglc-labs/liquidity-service/internal/models"
	"github.com/tglc-labs/liquidity-service/internal/service"
	"github.com/tglc-labs/liquidity-service/internal/utils"
	"github.com/tglc-labs/liquidity-service/internal/xrpl"
)

// Handler exposes the HTTP API. It owns no decision logic: requests are
// validated, converted to domain types and handed to the engine.
type Handler struct {
	auth     *service.AuthService
	engine   *engine.Engine
	scorer   engine.ScoreProvider
	verifier engine.ProofChecker
	registry *bank.Registry
	log      *logrus.Logger

	escrowDays int
}

// NewHandler initializes the HTTP handler.
func NewHandler(auth *service.AuthService, eng *engine.Engine, scorer engine.ScoreProvider, verifier engine.ProofChecker, registry *bank.Registry, escrowDays int, log *logrus.Logger) *Handler {
	return &Handler{
		auth:       auth,
		engine:     eng,
		scorer:     scorer,
		verifier:   verifier,
		registry:   registry,
		log:        log,
		escrowDays: escrowDays,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var p registerPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Username == "" || p.Email == "" || p.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.auth.Register(p.Username, p.Email, p.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var p loginPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(p.Email, p.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type liquidityPayload struct {
	PrincipalAddress string               `json:"principal_address"`
	AmountXRP        decimal.Decimal      `json:"amount_xrp"`
	DurationDays     int                  `json:"duration_days"`
	UnlockTime       *time.Time           `json:"unlock_time,omitempty"`
	ProofData        *models.ProofPayload `json:"proof_data,omitempty"`
}

// RequestLiquidity runs the full credit decision pipeline for a request.
func (h *Handler) RequestLiquidity(w http.ResponseWriter, r *http.Request) {
	var p liquidityPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateAddress(p.PrincipalAddress); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateAmount(p.AmountXRP); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := models.NewLiquidityRequest(r.Header.Get("Idempotency-Key"), p.PrincipalAddress, p.AmountXRP, p.DurationDays, p.UnlockTime, p.ProofData, h.escrowDays)
	decision := h.engine.Decide(r.Context(), req)
	writeJSON(w, http.StatusOK, decision)
}

// CreditScore returns the credit score for an XRPL address.
func (h *Handler) CreditScore(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if err := utils.ValidateAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	score, err := h.scorer.Score(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// VerifyProof is a standalone endpoint to verify proof data.
func (h *Handler) VerifyProof(w http.ResponseWriter, r *http.Request) {
	var p models.ProofPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.verifier.Verify(&p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type finishEscrowPayload struct {
	BorrowerWallet string `json:"borrower_wallet"`
	OwnerWallet    string `json:"owner_wallet"`
	EscrowSequence uint32 `json:"escrow_sequence"`
}

// FinishEscrow prepares an EscrowFinish transaction for borrower signing.
func (h *Handler) FinishEscrow(w http.ResponseWriter, r *http.Request) {
	var p finishEscrowPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateAddress(p.BorrowerWallet); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateAddress(p.OwnerWallet); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.EscrowSequence == 0 {
		writeError(w, http.StatusBadRequest, "escrow_sequence must be positive")
		return
	}

	tx := &xrpl.EscrowFinish{
		Account:       p.BorrowerWallet,
		Owner:         p.OwnerWallet,
		OfferSequence: p.EscrowSequence,
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ready_to_sign",
		"message":     "EscrowFinish prepared. Sign with your wallet to receive funds.",
		"transaction": tx.TxJSON(),
	})
}

// ListBanks returns all registered banks.
func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

type registerBankPayload struct {
	BankName      string              `json:"bank_name"`
	WalletAddress string              `json:"wallet_address"`
	SigningSeed   string              `json:"signing_seed,omitempty"`
	CreditPolicy  models.CreditPolicy `json:"credit_policy"`
}

// RegisterBank registers a new participating bank.
func (h *Handler) RegisterBank(w http.ResponseWriter, r *http.Request) {
	var p registerBankPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.BankName == "" {
		writeError(w, http.StatusBadRequest, "bank_name is required")
		return
	}
	if err := utils.ValidateAddress(p.WalletAddress); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.registry.Register(r.Context(), p.BankName, p.WalletAddress, p.CreditPolicy, p.SigningSeed)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// DeactivateBank marks a bank inactive.
func (h *Handler) DeactivateBank(w http.ResponseWriter, r *http.Request) {
	bankID := mux.Vars(r)["id"]
	if err := h.registry.Deactivate(bankID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

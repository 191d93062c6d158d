package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Officialbobos/hometownpas-sub000/configs"
	"github.com/Officialbobos/hometownpas-sub000/internal/approval"
	"github.com/Officialbobos/hometownpas-sub000/internal/httputil"
	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	appmw "github.com/Officialbobos/hometownpas-sub000/internal/middleware"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/Officialbobos/hometownpas-sub000/internal/money"
	"github.com/Officialbobos/hometownpas-sub000/internal/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Store     ledger.Store
	Transfers *transfer.Service
	Approvals *approval.Service
}

func NewHandler(store ledger.Store, transfers *transfer.Service, approvals *approval.Service) *Handler {
	return &Handler{Store: store, Transfers: transfers, Approvals: approvals}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func callerID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(appmw.UserIDContextKey).(uint)
	return id, ok
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if user.Status != models.UserActive {
		httputil.WriteError(w, http.StatusForbidden, "account suspended")
		return
	}

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"id":                 user.ID,
		"name":               user.Name,
		"email":              user.Email,
		"role":               user.Role,
		"status":             user.Status,
		"preferred_currency": user.PreferredCurrency,
	})
}

func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accounts, err := h.Store.AccountsByUser(r.Context(), userID)
	if err != nil {
		logger.Log.Error("failed to fetch accounts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch accounts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.Store.AccountByID(r.Context(), uint(id))
	if err != nil || account.UserID != userID {
		httputil.WriteError(w, http.StatusNotFound, "account not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account_id": account.ID,
		"number":     account.Number,
		"currency":   account.Currency,
		"symbol":     money.SymbolFor(account.Currency),
		"balance":    account.Balance,
	})
}

// Transactions serves statements: the caller's transaction history,
// optionally narrowed by account and status.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var f ledger.TransactionFilter
	if v := r.URL.Query().Get("account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid account_id")
			return
		}
		f.AccountID = uint(id)
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.Status(v)
		if !st.Valid() {
			httputil.WriteError(w, http.StatusBadRequest, "invalid status")
			return
		}
		f.Status = st
	}

	txns, err := h.Store.TransactionsByUser(r.Context(), userID, f)
	if err != nil {
		logger.Log.Error("failed to fetch transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, txns)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req transfer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Transfers.Initiate(r.Context(), userID, req)
	if err != nil {
		writeTransferError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, result)
}

func writeTransferError(w http.ResponseWriter, err error) {
	var currencyErr *transfer.CurrencyNotAllowedError
	switch {
	case errors.As(err, &currencyErr):
		httputil.WriteErrorDetails(w, http.StatusUnprocessableEntity, "currency not allowed", map[string]any{
			"currency": currencyErr.Currency,
			"allowed":  currencyErr.Allowed,
		})
	case errors.Is(err, transfer.ErrAccountNotFound):
		httputil.WriteError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, transfer.ErrRecipientNotFound):
		httputil.WriteError(w, http.StatusNotFound, "recipient not found")
	case errors.Is(err, transfer.ErrInvalidAmount),
		errors.Is(err, transfer.ErrInvalidDestination),
		errors.Is(err, transfer.ErrCurrencyMismatch),
		errors.Is(err, transfer.ErrInvalidRecipientFormat),
		errors.Is(err, transfer.ErrInsufficientFunds):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrConcurrentModification):
		httputil.WriteError(w, http.StatusConflict, "account busy, retry the transfer")
	default:
		logger.Log.Error("transfer failed", zap.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "temporarily unavailable, try again later")
	}
}

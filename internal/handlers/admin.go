package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Officialbobos/hometownpas-sub000/internal/approval"
	"github.com/Officialbobos/hometownpas-sub000/internal/httputil"
	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ResolveRequest struct {
	Action approval.Action `json:"action"`
	Reason string          `json:"reason"`
}

type UserStatusRequest struct {
	Status models.UserStatus `json:"status"`
}

func (h *Handler) PendingTransfers(w http.ResponseWriter, r *http.Request) {
	txns, err := h.Store.PendingTransactions(r.Context())
	if err != nil {
		logger.Log.Error("failed to fetch pending transfers", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch pending transfers")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txns)
}

func (h *Handler) ResolveTransfer(w http.ResponseWriter, r *http.Request) {
	adminID, ok := callerID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Approvals.Resolve(r.Context(), adminID, uint(id), req.Action, req.Reason)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, approval.ErrNotPending),
		errors.Is(err, approval.ErrUnknownAction),
		errors.Is(err, approval.ErrInvalidActionForMethod):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, approval.ErrRecipientAccountMissing):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrConcurrentModification):
		httputil.WriteError(w, http.StatusConflict, "resolution raced another writer, retry")
	default:
		logger.Log.Error("resolution failed", zap.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "temporarily unavailable, try again later")
	}
}

func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UserStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != models.UserActive && req.Status != models.UserSuspended {
		httputil.WriteError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.Store.SetUserStatus(r.Context(), uint(id), req.Status); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Log.Error("failed to update user status", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update user status")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

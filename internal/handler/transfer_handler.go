package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chenwei-lan/ledger-service/internal/errors"
	"github.com/chenwei-lan/ledger-service/internal/httpjson"
	"github.com/chenwei-lan/ledger-service/internal/models"
	"github.com/chenwei-lan/ledger-service/internal/service"
)

type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

func NewTransferHandler(transferService service.TransferService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

func (h *TransferHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transfers", h.CreateTransfer).Methods(http.MethodPost)
}

func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid transfer request", "error", err.Error())
		httpjson.WriteError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	transaction, err := h.transferService.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, transaction)
}

func (h *TransferHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsValidation(err), errors.IsNotFound(err), errors.IsInsufficientFunds(err):
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("internal server error during transfer", "error", err.Error())
		httpjson.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

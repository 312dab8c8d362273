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

type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/deposit", h.Deposit).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/withdraw", h.Withdraw).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/transactions", h.GetTransactions).Methods(http.MethodGet)
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create account request", "error", err.Error())
		httpjson.WriteError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), req.Name, req.InitialBalance)
	if err != nil {
		h.handleServiceError(w, err, "create account")
		return
	}

	httpjson.WriteJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, err, "get account")
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list accounts")
		return
	}

	if accounts == nil {
		accounts = []*models.Account{}
	}
	httpjson.WriteJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	var req models.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid deposit request", "account_id", accountID, "error", err.Error())
		httpjson.WriteError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	account, err := h.accountService.Deposit(r.Context(), accountID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err, "deposit")
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	var req models.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid withdraw request", "account_id", accountID, "error", err.Error())
		httpjson.WriteError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	account, err := h.accountService.Withdraw(r.Context(), accountID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err, "withdraw")
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	transactions, err := h.accountService.GetTransactions(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, err, "get transactions")
		return
	}

	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	httpjson.WriteJSON(w, http.StatusOK, transactions)
}

// Domain failures carry their message to the caller as a 400; anything
// unclassified is logged and reported as a generic 500.
func (h *AccountHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.IsValidation(err), errors.IsNotFound(err), errors.IsInsufficientFunds(err):
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("internal server error during "+operation, "error", err.Error())
		httpjson.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

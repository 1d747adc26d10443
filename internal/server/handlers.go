package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bokbank/server/internal/domain"
)

// urlParam returns the named route parameter, unescaped so identifiers
// containing a slash can be addressed as a single path segment.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}
	accounts, err := st.Accounts(r.Context())
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	sendJSON(w, http.StatusOK, accounts)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}
	account, err := st.Account(r.Context(), urlParam(r, "account"))
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if account == nil {
		sendError(w, http.StatusNotFound, "account not found")
		return
	}
	sendJSON(w, http.StatusOK, account)
}

func (s *Server) listAccountTransactions(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}

	accountID := urlParam(r, "account")
	account, err := st.Account(r.Context(), accountID)
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if account == nil {
		sendError(w, http.StatusNotFound, "account not found")
		return
	}

	transactions, err := st.AccountTransactions(r.Context(), accountID)
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	sendJSON(w, http.StatusOK, transactions)
}

func (s *Server) listMerchants(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}
	merchants, err := st.Merchants(r.Context())
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if merchants == nil {
		merchants = []domain.Merchant{}
	}
	sendJSON(w, http.StatusOK, merchants)
}

func (s *Server) getMerchant(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}
	merchant, err := st.Merchant(r.Context(), urlParam(r, "merchant"))
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if merchant == nil {
		sendError(w, http.StatusNotFound, "merchant not found")
		return
	}
	sendJSON(w, http.StatusOK, merchant)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}
	transactions, err := st.Transactions(r.Context())
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	sendJSON(w, http.StatusOK, transactions)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	st, ok := s.partition(w, r)
	if !ok {
		return
	}
	transaction, err := st.Transaction(r.Context(), urlParam(r, "transaction"))
	if err != nil {
		sendStorageError(w, err)
		return
	}
	if transaction == nil {
		sendError(w, http.StatusNotFound, "transaction not found")
		return
	}
	sendJSON(w, http.StatusOK, transaction)
}

// transferRequest is a request from a user to make a transfer between two
// of their accounts.
type transferRequest struct {
	FromAccount string       `json:"fromAccount"`
	ToAccount   string       `json:"toAccount"`
	Amount      domain.Money `json:"amount"`
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}

	details, err := s.transfers.Transfer(
		r.Context(),
		tenantFromContext(r.Context()),
		req.FromAccount,
		req.ToAccount,
		req.Amount,
	)
	if err != nil {
		sendStorageError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, details)
}

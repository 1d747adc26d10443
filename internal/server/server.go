// Package server exposes the ledger over HTTP: JSON routes for reads and
// transfers, and a websocket /sync stream of live changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bokbank/server/internal/domain"
	"github.com/bokbank/server/internal/store"
)

// userIDHeader identifies the calling tenant. Presence of the header is
// the entire authentication scheme, as in the demo this serves.
const userIDHeader = "X-BokBank-User-ID"

// tenantKey carries the authenticated tenant in the request context.
type tenantKey struct{}

// Server wires the storage layer to the HTTP surface.
type Server struct {
	registry  *store.Registry
	transfers *domain.TransferService
}

// New creates a Server over the given partition registry and transfer
// service.
func New(registry *store.Registry, transfers *domain.TransferService) *Server {
	return &Server{
		registry:  registry,
		transfers: transfers,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)

	r.Get("/accounts", s.listAccounts)
	r.Get("/accounts/{account}", s.getAccount)
	r.Get("/accounts/{account}/transactions", s.listAccountTransactions)
	r.Get("/merchants", s.listMerchants)
	r.Get("/merchants/{merchant}", s.getMerchant)
	r.Get("/transactions", s.listTransactions)
	r.Get("/transactions/{transaction}", s.getTransaction)
	r.Post("/transfer", s.transfer)
	r.Get("/sync", s.sync)

	return r
}

// authenticate rejects requests without a user header and stashes the
// tenant and the caller's trace marker in the request context.
// TODO: Add some security or something
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			sendError(w, http.StatusUnauthorized, "missing user header")
			return
		}

		ctx := context.WithValue(r.Context(), tenantKey{}, userID)
		if traceparent := r.Header.Get("traceparent"); traceparent != "" {
			ctx = domain.WithUpdatedBy(ctx, traceparent)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tenantFromContext(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey{}).(string)
	return tenant
}

// partition resolves the caller's partition store, writing the error
// response itself on failure.
func (s *Server) partition(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	st, err := s.registry.Store(r.Context(), tenantFromContext(r.Context()))
	if err != nil {
		sendStorageError(w, err)
		return nil, false
	}
	return st, true
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, errorResponse{Error: message})
}

// sendStorageError maps an error from the storage or domain layer to a
// response. Validation errors carry their reason; anything else is a 500
// with no internal detail leaked.
func sendStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidTenant):
		sendError(w, http.StatusBadRequest, "invalid user identifier")
	case errors.Is(err, domain.ErrInvalidSourceAccount),
		errors.Is(err, domain.ErrInvalidTargetAccount),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrCurrencyMismatch):
		sendError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
	}
}

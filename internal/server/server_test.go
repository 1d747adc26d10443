package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bokbank/server/internal/domain"
	"github.com/bokbank/server/internal/server"
	"github.com/bokbank/server/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := store.NewRegistry(t.TempDir())
	t.Cleanup(func() { registry.Close() })

	transfers := domain.NewTransferService(registry, nil)
	ts := httptest.NewServer(server.New(registry, transfers).Router())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, user, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if user != "" {
		req.Header.Set("X-BokBank-User-ID", user)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestRequiresUserHeader(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/accounts", "/merchants", "/transactions", "/sync"} {
		resp := doRequest(t, ts, http.MethodGet, path, "", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without user header: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestRejectsUnsafeUserIdentifier(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/accounts", "../evil", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unsafe user identifier, got %d", resp.StatusCode)
	}
}

func TestListAccounts(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/accounts", "demo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var accounts []domain.Account
	decodeBody(t, resp, &accounts)
	if len(accounts) != 2 {
		t.Errorf("expected 2 demo accounts, got %d", len(accounts))
	}
}

func TestListAccountsEmptyTenant(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/accounts", "someone-else", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var accounts []domain.Account
	decodeBody(t, resp, &accounts)
	if accounts == nil || len(accounts) != 0 {
		t.Errorf("expected an empty JSON array, got %v", accounts)
	}
}

func TestGetAccount(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/accounts/888-888%2F999999999", "demo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var account domain.Account
	decodeBody(t, resp, &account)
	if account.ID != "888-888/999999999" {
		t.Errorf("expected the transacting account, got %q", account.ID)
	}

	resp = doRequest(t, ts, http.MethodGet, "/accounts/missing", "demo", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown account, got %d", resp.StatusCode)
	}
}

func TestListAccountTransactions(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/accounts/888-888%2F999999999/transactions", "demo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var transactions []domain.Transaction
	decodeBody(t, resp, &transactions)
	if len(transactions) == 0 {
		t.Error("expected seeded transactions on the demo account")
	}
	for _, txn := range transactions {
		if txn.AccountID != "888-888/999999999" {
			t.Errorf("expected only the account's own transactions, got one for %q", txn.AccountID)
		}
	}

	resp = doRequest(t, ts, http.MethodGet, "/accounts/missing/transactions", "demo", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown account, got %d", resp.StatusCode)
	}
}

func TestGetMerchant(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/merchants", "demo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var merchants []domain.Merchant
	decodeBody(t, resp, &merchants)
	if len(merchants) == 0 {
		t.Fatal("expected seeded merchants")
	}

	resp = doRequest(t, ts, http.MethodGet, "/merchants/"+merchants[0].ID, "demo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var merchant domain.Merchant
	decodeBody(t, resp, &merchant)
	if merchant.ID != merchants[0].ID {
		t.Errorf("expected merchant %q, got %q", merchants[0].ID, merchant.ID)
	}

	resp = doRequest(t, ts, http.MethodGet, "/merchants/missing", "demo", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown merchant, got %d", resp.StatusCode)
	}
}

func TestTransfer(t *testing.T) {
	ts := newTestServer(t)

	body := `{"fromAccount":"888-888/999999999","toAccount":"888-888/999999998","amount":{"amount":"40.00","currency":"AUD"}}`
	resp := doRequest(t, ts, http.MethodPost, "/transfer", "demo", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var details domain.TransferDetails
	decodeBody(t, resp, &details)
	if details.ReceiptNumber == "" {
		t.Error("expected a receipt number")
	}

	resp = doRequest(t, ts, http.MethodGet, "/accounts/888-888%2F999999998", "demo", "")
	var account domain.Account
	decodeBody(t, resp, &account)
	if !account.Balance.Equal(domain.MustMoney("40.00", "AUD")) {
		t.Errorf("expected target balance 40.00 AUD, got %s", account.Balance)
	}
}

func TestTransferValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "insufficient funds",
			body: `{"fromAccount":"888-888/999999999","toAccount":"888-888/999999998","amount":{"amount":"1000.00","currency":"AUD"}}`,
		},
		{
			name: "same account",
			body: `{"fromAccount":"888-888/999999999","toAccount":"888-888/999999999","amount":{"amount":"1.00","currency":"AUD"}}`,
		},
		{
			name: "negative amount",
			body: `{"fromAccount":"888-888/999999999","toAccount":"888-888/999999998","amount":{"amount":"-1.00","currency":"AUD"}}`,
		},
		{
			name: "unknown source",
			body: `{"fromAccount":"missing","toAccount":"888-888/999999998","amount":{"amount":"1.00","currency":"AUD"}}`,
		},
		{
			name: "malformed body",
			body: `{"fromAccount":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/transfer", "demo", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			var response struct {
				Error string `json:"error"`
			}
			decodeBody(t, resp, &response)
			if response.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestSyncStreamsInitialSnapshot(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sync"
	header := http.Header{"X-BokBank-User-ID": []string{"demo"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to dial sync socket: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// 2 accounts + 3 merchants + 3 transactions seeded in the demo tenant.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	counts := map[string]int{}
	for i := 0; i < 8; i++ {
		var event struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("failed to read event %d: %v", i, err)
		}
		counts[event.Type]++
	}
	if counts["account-updated"] != 2 || counts["merchant-updated"] != 3 || counts["transaction-updated"] != 3 {
		t.Errorf("unexpected initial snapshot: %v", counts)
	}
}

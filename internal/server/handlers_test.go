package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nikhil/splitledger/internal/cache"
	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/service"
	"github.com/nikhil/splitledger/internal/storage/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.NewMemoryClient(), logger)

	api := NewAPIHandlers(logger,
		service.NewSocialService(store, store, c, logger),
		service.NewExpenseService(store, store, c, logger),
		service.NewLedgerService(store, c, logger),
	)
	return NewRouter(logger, RouterDependencies{API: api})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createUser(t *testing.T, handler http.Handler, name string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/users", map[string]string{
		"name": name, "email": name + "@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user %s: status %d, body %s", name, rec.Code, rec.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return user.ID
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExpenseEndToEnd(t *testing.T) {
	handler := newTestRouter(t)
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")

	rec := doJSON(t, handler, http.MethodPost, "/expenses", map[string]any{
		"description":     "Dinner",
		"amount":          60.0,
		"currency":        "USD",
		"payer_id":        alice,
		"participant_ids": []string{alice, bob},
		"method":          "equal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet,
		fmt.Sprintf("/balances/between?user=%s&other=%s", alice, bob), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pairwise balance: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if resp.Balance != 30 {
		t.Errorf("expected bob to owe alice 30, got %.2f", resp.Balance)
	}
}

func TestCreateExpenseRejectsInvalidSplit(t *testing.T) {
	handler := newTestRouter(t)
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")

	rec := doJSON(t, handler, http.MethodPost, "/expenses", map[string]any{
		"description":     "Broken",
		"amount":          100.0,
		"payer_id":        alice,
		"participant_ids": []string{alice, bob},
		"method":          "percentage",
		"percentages":     map[string]float64{alice: 50, bob: 30},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for percentages summing to 80, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSplitPreviewDoesNotPersist(t *testing.T) {
	handler := newTestRouter(t)
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")

	rec := doJSON(t, handler, http.MethodPost, "/split/preview", map[string]any{
		"amount":          90.0,
		"payer_id":        alice,
		"participant_ids": []string{alice, bob},
		"method":          "equal",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/expenses/user/"+alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list expenses: status %d", rec.Code)
	}
	var expenses []models.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &expenses); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("preview must not persist, found %d expenses", len(expenses))
	}
}

func TestSimplifyGroupEndpoint(t *testing.T) {
	handler := newTestRouter(t)
	alice := createUser(t, handler, "alice")
	bob := createUser(t, handler, "bob")

	rec := doJSON(t, handler, http.MethodPost, "/groups", map[string]any{
		"name": "Trip", "created_by": alice, "member_ids": []string{bob},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: status %d, body %s", rec.Code, rec.Body.String())
	}
	var group models.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &group); err != nil {
		t.Fatalf("decode group: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/expenses", map[string]any{
		"description":     "Fuel",
		"amount":          50.0,
		"payer_id":        alice,
		"participant_ids": []string{alice, bob},
		"group_id":        group.ID,
		"method":          "equal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/simplify/group/"+group.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("simplify: status %d, body %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Transfers []struct {
			From   string  `json:"From"`
			To     string  `json:"To"`
			Amount float64 `json:"Amount"`
		}
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(result.Transfers))
	}
	if result.Transfers[0].From != bob || result.Transfers[0].To != alice || result.Transfers[0].Amount != 25 {
		t.Errorf("unexpected transfer: %+v", result.Transfers[0])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodDelete, "/users", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow == "" {
		t.Error("expected Allow header on 405")
	}
}

func TestMissingUserIsNotFound(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodGet, "/users/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

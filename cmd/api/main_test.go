package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/extension"
	"github.com/mcclellann/keepcard/pkg/models"
)

func setupTestServer() (*Server, *mux.Router) {
	server := NewServer(calendar.Default(), 15, 1, zap.NewNop())
	return server, server.routes()
}

func postJSON(t *testing.T, router *mux.Router, path string, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAPI_CreateTransactionAndListStatements(t *testing.T) {
	_, router := setupTestServer()

	rr := postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "250.00",
		"effective_date": "2025-01-20",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var snapshot models.LedgerSnapshot
	json.Unmarshal(rr.Body.Bytes(), &snapshot)
	if !snapshot.Balance.Equal(decimal.RequireFromString("250.00")) {
		t.Errorf("Expected balance 250.00, got %s", snapshot.Balance)
	}

	req := httptest.NewRequest("GET", "/statements", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var statements []models.Statement
	json.Unmarshal(rr.Body.Bytes(), &statements)
	if len(statements) == 0 {
		t.Fatal("Expected at least one statement")
	}
}

func TestAPI_CreateTransactionRejectsBadInput(t *testing.T) {
	_, router := setupTestServer()

	// Non-positive amount
	rr := postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "0",
		"effective_date": "2025-01-20",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	// Malformed date
	rr = postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "100.00",
		"effective_date": "20-01-2025",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestAPI_BalanceDue(t *testing.T) {
	_, router := setupTestServer()

	postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "400.00",
		"effective_date": "2025-01-20",
	})

	req := httptest.NewRequest("GET", "/balance-due?date=2025-03-01", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		BalanceDue decimal.Decimal `json:"balance_due"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.BalanceDue.Equal(decimal.RequireFromString("400.00")) {
		t.Errorf("Expected balance due 400.00, got %s", resp.BalanceDue)
	}

	// Missing date parameter
	req = httptest.NewRequest("GET", "/balance-due", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestAPI_Cycles(t *testing.T) {
	_, router := setupTestServer()

	req := httptest.NewRequest("GET", "/cycles?start=2025-01-15&grace=21&count=3", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var cycles []models.Cycle
	json.Unmarshal(rr.Body.Bytes(), &cycles)
	if len(cycles) != 3 {
		t.Fatalf("Expected 3 cycles, got %d", len(cycles))
	}

	// Anchor days that drift across months are rejected.
	req = httptest.NewRequest("GET", "/cycles?start=2025-01-31&grace=21&count=3", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestAPI_ExtensionLifecycle(t *testing.T) {
	_, router := setupTestServer()

	postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "1500.00",
		"effective_date": "2025-01-10",
	})

	rr := postJSON(t, router, "/extensions", map[string]interface{}{
		"amount":         "1000.00",
		"effective_date": "2025-01-15",
		"term_months":    3,
		"apr":            "36.0",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var created extension.Extension
	json.Unmarshal(rr.Body.Bytes(), &created)
	if !created.TotalInterest.Equal(decimal.RequireFromString("90")) {
		t.Errorf("Expected total interest 90, got %s", created.TotalInterest)
	}
	if len(created.Schedule) != 3 {
		t.Fatalf("Expected 3 installments, got %d", len(created.Schedule))
	}

	// Fetch it back
	req := httptest.NewRequest("GET", "/extensions/"+created.ID.String(), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	// Pay the first installment
	rr = postJSON(t, router, "/extensions/"+created.ID.String()+"/payments", map[string]interface{}{
		"amount": "363.33",
		"date":   "2025-02-15",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var payment models.ExtensionPayment
	json.Unmarshal(rr.Body.Bytes(), &payment)
	if !payment.PrincipalPaid.Equal(decimal.RequireFromString("333.33")) {
		t.Errorf("Expected principal paid 333.33, got %s", payment.PrincipalPaid)
	}
	if !payment.InterestPaid.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("Expected interest paid 30.00, got %s", payment.InterestPaid)
	}
}

func TestAPI_ExtensionNotFound(t *testing.T) {
	_, router := setupTestServer()

	req := httptest.NewRequest("GET", "/extensions/"+uuid.New().String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	rr = postJSON(t, router, "/extensions/"+uuid.New().String()+"/payments", map[string]interface{}{
		"amount": "100.00",
		"date":   "2025-02-15",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestAPI_AllocatePayment(t *testing.T) {
	_, router := setupTestServer()

	postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "3000.00",
		"effective_date": "2025-01-10",
	})
	postJSON(t, router, "/extensions", map[string]interface{}{
		"amount":         "1000.00",
		"effective_date": "2025-01-15",
		"term_months":    2,
		"apr":            "36.0",
	})
	postJSON(t, router, "/extensions", map[string]interface{}{
		"amount":         "2000.00",
		"effective_date": "2025-01-15",
		"term_months":    3,
		"apr":            "36.0",
	})

	rr := postJSON(t, router, "/extensions/payments", map[string]interface{}{
		"amount": "1200.00",
		"date":   "2025-03-15",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var result models.Allocation
	json.Unmarshal(rr.Body.Bytes(), &result)
	if len(result.Payments) != 2 {
		t.Fatalf("Expected 2 payments, got %d", len(result.Payments))
	}
	if !result.RemainingAmount.Equal(decimal.Zero) {
		t.Errorf("Expected no remainder, got %s", result.RemainingAmount)
	}

	// Past and next due totals reflect the allocation.
	req := httptest.NewRequest("GET", "/extensions/due?date=2025-03-15", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var due struct {
		PastDue decimal.Decimal `json:"past_due"`
	}
	json.Unmarshal(rr.Body.Bytes(), &due)
	if !due.PastDue.Equal(decimal.RequireFromString("56.67")) {
		t.Errorf("Expected past due 56.67, got %s", due.PastDue)
	}
}

func TestAPI_ConcurrentTransactions(t *testing.T) {
	_, router := setupTestServer()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				body, _ := json.Marshal(map[string]interface{}{
					"kind":           "PURCHASE",
					"amount":         "1.00",
					"effective_date": "2025-01-20",
				})
				req := httptest.NewRequest("POST", "/transactions", bytes.NewBuffer(body))
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, req)
				if rr.Code != http.StatusCreated {
					t.Errorf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
				}
			}
		}()
	}
	wg.Wait()

	req := httptest.NewRequest("GET", "/transactions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var txs []models.Transaction
	json.Unmarshal(rr.Body.Bytes(), &txs)
	if len(txs) != workers*perWorker {
		t.Fatalf("Expected %d transactions, got %d", workers*perWorker, len(txs))
	}
	if !txs[len(txs)-1].Balance.Equal(decimal.NewFromInt(workers * perWorker)) {
		t.Errorf("Expected final balance %d, got %s", workers*perWorker, txs[len(txs)-1].Balance)
	}
}

func TestAPI_ExportStatements(t *testing.T) {
	_, router := setupTestServer()

	postJSON(t, router, "/transactions", map[string]interface{}{
		"kind":           "PURCHASE",
		"amount":         "250.00",
		"effective_date": "2025-01-20",
	})

	req := httptest.NewRequest("GET", "/statements/export", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("Expected workbook bytes in response")
	}
}

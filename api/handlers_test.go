package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docketware/debt-engine/ledger"
	"github.com/docketware/debt-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func setupTest(t *testing.T) (*chi.Mux, *Handler) {
	t.Helper()
	eng := ledger.NewEngine(store.NewMemory())
	eng.Now = func() ledger.Date { return ledger.NewDate(2024, time.June, 1) }

	h := NewHandler(eng)
	h.Cache = NewMemoryCache()
	return NewRouter(h, []string{"*"}), h
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func createTestCase(t *testing.T, router http.Handler) CaseDTO {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/cases", CreateCaseRequest{
		Name:            "Acme Corp v. Smith",
		CourtName:       "Superior Court",
		CourtCaseNumber: "2024-CV-00123",
		JudgmentAmount:  "10000",
		InterestRate:    "10",
		JudgmentDate:    "2024-01-01",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating case, got %d: %s", w.Code, w.Body.String())
	}
	return decode[CaseDTO](t, w)
}

func appendTestEntry(t *testing.T, router http.Handler, caseID, typ, amount, date string) EntryDTO {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/cases/"+caseID+"/entries", AppendEntryRequest{
		Type: typ, Amount: amount, Date: date,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 appending entry, got %d: %s", w.Code, w.Body.String())
	}
	return decode[EntryDTO](t, w)
}

// =============================================================================
// CASE ENDPOINTS
// =============================================================================

func TestCreateAndGetCase(t *testing.T) {
	router, _ := setupTest(t)
	created := createTestCase(t, router)

	if created.PayoffAmount != "10000.00" {
		t.Errorf("expected payoff 10000.00, got %s", created.PayoffAmount)
	}
	if created.JudgmentDate != "2024-01-01" {
		t.Errorf("expected judgment date 2024-01-01, got %s", created.JudgmentDate)
	}
	// 152 days of projection from judgment to the pinned "today".
	if created.TodayPayoff != "10416.44" {
		t.Errorf("expected today payoff 10416.44, got %s", created.TodayPayoff)
	}

	w := doJSON(t, router, "GET", "/api/cases/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[CaseDTO](t, w)
	if got.ID != created.ID || got.TotalPayments != "0.00" {
		t.Errorf("unexpected case: %+v", got)
	}
}

func TestCreateCase_ValidationFailure(t *testing.T) {
	router, _ := setupTest(t)

	w := doJSON(t, router, "POST", "/api/cases", CreateCaseRequest{
		Name: "Missing everything else",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if len(resp.Fields) == 0 {
		t.Errorf("expected field errors, got %+v", resp)
	}
}

func TestGetCase_NotFound(t *testing.T) {
	router, _ := setupTest(t)
	w := doJSON(t, router, "GET", "/api/cases/no-such-case", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteCase(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)

	w := doJSON(t, router, "DELETE", "/api/cases/"+c.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Soft-deleted cases read as gone, and their ledgers are frozen.
	w = doJSON(t, router, "GET", "/api/cases/"+c.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
	w = doJSON(t, router, "POST", "/api/cases/"+c.ID+"/entries", AppendEntryRequest{
		Type: "COST", Amount: "100", Date: "2024-02-01",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 appending to deleted case, got %d", w.Code)
	}
}

// =============================================================================
// ENTRY ENDPOINTS
// =============================================================================

func TestLedgerFlow(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)

	cost := appendTestEntry(t, router, c.ID, "COST", "500", "2024-02-01")
	if cost.AccruedInterest != "84.93" {
		t.Errorf("expected cost interest 84.93, got %s", cost.AccruedInterest)
	}
	// The statement's running balance column shows the combined figure.
	if cost.PrincipalBalance != "10584.93" {
		t.Errorf("expected cost balance 10584.93, got %s", cost.PrincipalBalance)
	}

	payment := appendTestEntry(t, router, c.ID, "PAYMENT", "600", "2024-03-01")
	if payment.AccruedInterest != "0.00" {
		t.Errorf("expected payment to clear interest, got %s", payment.AccruedInterest)
	}
	if payment.PrincipalBalance != "10068.36" {
		t.Errorf("expected balance 10068.36, got %s", payment.PrincipalBalance)
	}

	w := doJSON(t, router, "GET", "/api/cases/"+c.ID, nil)
	got := decode[CaseDTO](t, w)
	if got.TotalPayments != "600.00" {
		t.Errorf("expected total payments 600.00, got %s", got.TotalPayments)
	}
	if got.PayoffAmount != "10068.36" {
		t.Errorf("expected payoff 10068.36, got %s", got.PayoffAmount)
	}
	if got.LastPaymentDate == nil || *got.LastPaymentDate != "2024-03-01" {
		t.Errorf("expected last payment 2024-03-01, got %v", got.LastPaymentDate)
	}
	if got.TodayPayoff != "10322.13" {
		t.Errorf("expected today payoff 10322.13, got %s", got.TodayPayoff)
	}

	w = doJSON(t, router, "GET", "/api/cases/"+c.ID+"/entries", nil)
	entries := decode[[]EntryDTO](t, w)
	if len(entries) != 2 || entries[0].Type != "COST" || entries[1].Type != "PAYMENT" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestEditEntry_RecomputesDownstream(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)
	cost := appendTestEntry(t, router, c.ID, "COST", "500", "2024-02-01")
	appendTestEntry(t, router, c.ID, "PAYMENT", "600", "2024-03-01")

	amount := "300"
	w := doJSON(t, router, "PUT", "/api/entries/"+cost.ID, EditEntryRequest{Amount: &amount})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 editing entry, got %d: %s", w.Code, w.Body.String())
	}
	edited := decode[EntryDTO](t, w)
	if edited.Amount != "300.00" {
		t.Errorf("expected amount 300.00, got %s", edited.Amount)
	}

	// The downstream payment's snapshot follows the corrected chain.
	w = doJSON(t, router, "GET", "/api/cases/"+c.ID+"/entries", nil)
	entries := decode[[]EntryDTO](t, w)
	if entries[1].PrincipalBalance != "9866.77" {
		t.Errorf("expected downstream balance 9866.77, got %s", entries[1].PrincipalBalance)
	}
}

func TestEditEntry_NotFound(t *testing.T) {
	router, _ := setupTest(t)
	amount := "1"
	w := doJSON(t, router, "PUT", "/api/entries/no-such-entry", EditEntryRequest{Amount: &amount})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteEntry(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)
	cost := appendTestEntry(t, router, c.ID, "COST", "500", "2024-02-01")
	appendTestEntry(t, router, c.ID, "PAYMENT", "600", "2024-03-01")

	w := doJSON(t, router, "DELETE", "/api/entries/"+cost.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/cases/"+c.ID+"/entries", nil)
	entries := decode[[]EntryDTO](t, w)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after delete, got %d", len(entries))
	}
	// Re-anchored on the judgment baseline: 60 days then the waterfall.
	if entries[0].PrincipalBalance != "9564.38" {
		t.Errorf("expected balance 9564.38, got %s", entries[0].PrincipalBalance)
	}
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAppendEntry_DuplicateDateConflict(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)
	appendTestEntry(t, router, c.ID, "COST", "500", "2024-02-01")

	w := doJSON(t, router, "POST", "/api/cases/"+c.ID+"/entries", AppendEntryRequest{
		Type: "PAYMENT", Amount: "100", Date: "2024-02-01",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAppendEntry_OverpaymentBadRequest(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)

	w := doJSON(t, router, "POST", "/api/cases/"+c.ID+"/entries", AppendEntryRequest{
		Type: "PAYMENT", Amount: "50000", Date: "2024-02-01",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// The rejected payment must not leave an entry behind.
	w = doJSON(t, router, "GET", "/api/cases/"+c.ID+"/entries", nil)
	entries := decode[[]EntryDTO](t, w)
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestAppendEntry_UnknownTypeRejected(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)

	w := doJSON(t, router, "POST", "/api/cases/"+c.ID+"/entries", AppendEntryRequest{
		Type: "REFUND", Amount: "100", Date: "2024-02-01",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAppendEntry_BadDate(t *testing.T) {
	router, _ := setupTest(t)
	c := createTestCase(t, router)

	w := doJSON(t, router, "POST", "/api/cases/"+c.ID+"/entries", AppendEntryRequest{
		Type: "COST", Amount: "100", Date: "02/01/2024",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// =============================================================================
// CACHING
// =============================================================================

func TestCaseCache_InvalidatedOnMutation(t *testing.T) {
	router, h := setupTest(t)
	c := createTestCase(t, router)
	cache := h.Cache.(*MemoryCache)

	// First read populates the cache.
	doJSON(t, router, "GET", "/api/cases/"+c.ID, nil)
	if _, ok := cache.Get(context.Background(), caseKey(ledger.CaseID(c.ID))); !ok {
		t.Fatal("expected case key cached after read")
	}

	// A mutation drops the keys so the next read sees the new ledger.
	appendTestEntry(t, router, c.ID, "PAYMENT", "600", "2024-03-01")
	if _, ok := cache.Get(context.Background(), caseKey(ledger.CaseID(c.ID))); ok {
		t.Fatal("expected case key invalidated after append")
	}

	w := doJSON(t, router, "GET", "/api/cases/"+c.ID, nil)
	got := decode[CaseDTO](t, w)
	if got.TotalPayments != "600.00" {
		t.Errorf("expected fresh aggregates after invalidation, got %s", got.TotalPayments)
	}
}

func TestEntriesCache_ServesRepeatReads(t *testing.T) {
	router, h := setupTest(t)
	c := createTestCase(t, router)
	appendTestEntry(t, router, c.ID, "COST", "500", "2024-02-01")
	cache := h.Cache.(*MemoryCache)

	first := doJSON(t, router, "GET", "/api/cases/"+c.ID+"/entries", nil)
	if _, ok := cache.Get(context.Background(), entriesKey(ledger.CaseID(c.ID))); !ok {
		t.Fatal("expected entries key cached after read")
	}

	second := doJSON(t, router, "GET", "/api/cases/"+c.ID+"/entries", nil)
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached read differs: %s vs %s", first.Body.String(), second.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router, _ := setupTest(t)
	w := doJSON(t, router, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

/*
handlers.go - HTTP API handlers for the debt ledger engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine.

ENDPOINTS:
  Cases:
    GET    /api/cases                  List active cases
    POST   /api/cases                  Create case (judgment baseline)
    GET    /api/cases/{id}             Case aggregates incl. today's payoff
    DELETE /api/cases/{id}             Soft-delete case (freezes its ledger)

  Entries:
    POST   /api/cases/{id}/entries     Append a payment/cost/interest entry
    GET    /api/cases/{id}/entries     Ordered active entry snapshots
    PUT    /api/entries/{id}           Edit an entry (replays the suffix)
    DELETE /api/entries/{id}           Soft-delete an entry (replays the suffix)

REQUEST FLOW:
  1. Decode and validate input (validator tags, then date/amount parsing)
  2. Call the engine
  3. Serialize response at currency precision
  4. Map engine errors to HTTP statuses

ERROR HANDLING:
  - 400: Malformed input, invalid events, overpayments
  - 404: Missing or soft-deleted cases/entries
  - 409: Date already occupied by an active entry
  - 500: Storage failures

CACHING:
  Case summary and entry list responses are cached per case when a Cache
  is configured; every mutation of a case drops its keys before returning.

SECURITY NOTE:
  No authentication or authorization here. The engine assumes callers are
  already authorized; an outer layer owns identity.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/docketware/debt-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Cache  Cache // optional; nil disables read caching
}

// NewHandler creates a new handler around the given engine.
func NewHandler(engine *ledger.Engine) *Handler {
	return &Handler{Engine: engine}
}

func caseKey(id ledger.CaseID) string    { return "case:" + string(id) }
func entriesKey(id ledger.CaseID) string { return "entries:" + string(id) }

// =============================================================================
// CASE HANDLERS
// =============================================================================

// ListCases returns all active cases.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.Engine.Cases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cases", err)
		return
	}

	dtos := make([]CaseDTO, len(cases))
	for i, c := range cases {
		dtos[i] = toCaseDTO(c, h.Engine.Precision)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCase creates a new case at its judgment baseline.
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	amount, err := parseMoney(req.JudgmentAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid judgment_amount", err)
		return
	}
	rate, err := parseMoney(req.InterestRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interest_rate", err)
		return
	}
	date, err := ledger.ParseDate(req.JudgmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid judgment_date", err)
		return
	}

	c, err := h.Engine.CreateCase(r.Context(), ledger.CaseParams{
		Name:                req.Name,
		CourtName:           req.CourtName,
		CourtCaseNumber:     req.CourtCaseNumber,
		JudgmentAmount:      amount,
		InterestRatePercent: rate,
		JudgmentDate:        date,
	})
	if err != nil {
		h.engineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCaseDTO(c, h.Engine.Precision))
}

// GetCase returns a case's aggregates with today's payoff projection.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	id := ledger.CaseID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if cached, ok := h.cacheGet(ctx, caseKey(id)); ok {
		writeRawJSON(w, http.StatusOK, cached)
		return
	}

	c, err := h.Engine.Case(ctx, id)
	if err != nil {
		h.engineError(w, err)
		return
	}

	body, _ := json.Marshal(toCaseDTO(c, h.Engine.Precision))
	h.cacheSet(ctx, caseKey(id), string(body))
	writeRawJSON(w, http.StatusOK, string(body))
}

// DeleteCase soft-deletes a case; its ledger is frozen from then on.
func (h *Handler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	id := ledger.CaseID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if err := h.Engine.RemoveCase(ctx, id); err != nil {
		h.engineError(w, err)
		return
	}

	h.invalidate(ctx, id)
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": string(id)})
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// AppendEntry records a new ledger event for a case.
func (h *Handler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	caseID := ledger.CaseID(chi.URLParam(r, "id"))
	ctx := r.Context()

	var req AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	ev, err := parseEvent(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}

	entry, _, err := h.Engine.Append(ctx, caseID, ev)
	if err != nil {
		h.engineError(w, err)
		return
	}

	h.invalidate(ctx, caseID)
	writeJSON(w, http.StatusCreated, toEntryDTO(entry, h.Engine.Precision))
}

// ListEntries returns the ordered active entries of a case.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	caseID := ledger.CaseID(chi.URLParam(r, "id"))
	ctx := r.Context()

	if cached, ok := h.cacheGet(ctx, entriesKey(caseID)); ok {
		writeRawJSON(w, http.StatusOK, cached)
		return
	}

	entries, err := h.Engine.Entries(ctx, caseID)
	if err != nil {
		h.engineError(w, err)
		return
	}

	body, _ := json.Marshal(toEntryDTOs(entries, h.Engine.Precision))
	h.cacheSet(ctx, entriesKey(caseID), string(body))
	writeRawJSON(w, http.StatusOK, string(body))
}

// EditEntry mutates an entry in place and replays the downstream suffix.
// The response carries the edited entry only; callers needing the
// recomputed suffix list the entries again.
func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	entryID := ledger.EntryID(chi.URLParam(r, "id"))
	ctx := r.Context()

	var req EditEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	changes, err := parseChanges(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}

	entry, c, err := h.Engine.Edit(ctx, entryID, changes)
	if err != nil {
		h.engineError(w, err)
		return
	}

	h.invalidate(ctx, c.ID)
	writeJSON(w, http.StatusOK, toEntryDTO(entry, h.Engine.Precision))
}

// DeleteEntry soft-deletes an entry and replays the remaining suffix.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID := ledger.EntryID(chi.URLParam(r, "id"))
	ctx := r.Context()

	c, err := h.Engine.Remove(ctx, entryID)
	if err != nil {
		h.engineError(w, err)
		return
	}

	h.invalidate(ctx, c.ID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": string(entryID)})
}

// =============================================================================
// PARSING
// =============================================================================

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q", s)
	}
	return d, nil
}

func parseEvent(req AppendEntryRequest) (ledger.Event, error) {
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return ledger.Event{}, err
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		return ledger.Event{}, err
	}
	return ledger.Event{
		Type:        ledger.EntryType(req.Type),
		Amount:      amount,
		Date:        date,
		Description: req.Description,
	}, nil
}

func parseChanges(req EditEntryRequest) (ledger.EntryChanges, error) {
	var ch ledger.EntryChanges
	if req.Type != nil {
		t := ledger.EntryType(*req.Type)
		ch.Type = &t
	}
	if req.Amount != nil {
		amount, err := parseMoney(*req.Amount)
		if err != nil {
			return ch, err
		}
		ch.Amount = &amount
	}
	if req.Date != nil {
		date, err := ledger.ParseDate(*req.Date)
		if err != nil {
			return ch, err
		}
		ch.Date = &date
	}
	ch.Description = req.Description
	return ch, nil
}

// =============================================================================
// CACHING
// =============================================================================

func (h *Handler) cacheGet(ctx context.Context, key string) (string, bool) {
	if h.Cache == nil {
		return "", false
	}
	return h.Cache.Get(ctx, key)
}

func (h *Handler) cacheSet(ctx context.Context, key, value string) {
	if h.Cache == nil {
		return
	}
	// A failed cache write only costs the next reader a store round trip.
	_ = h.Cache.Set(ctx, key, value)
}

func (h *Handler) invalidate(ctx context.Context, caseID ledger.CaseID) {
	if h.Cache == nil {
		return
	}
	_ = h.Cache.Delete(ctx, caseKey(caseID), entriesKey(caseID))
}

// =============================================================================
// RESPONSES
// =============================================================================

// engineError maps the engine's error taxonomy to HTTP statuses.
func (h *Handler) engineError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err) || errors.Is(err, ledger.ErrCaseInactive):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrDuplicateDate):
		writeError(w, http.StatusConflict, "An active entry already exists on that date", err)
	case errors.Is(err, ledger.ErrOverpayment):
		writeError(w, http.StatusBadRequest, "Payment exceeds outstanding balance", err)
	case errors.Is(err, ledger.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeRawJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  "Validation failed",
		Fields: fieldErrors(err),
	})
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All monetary values cross the API as strings, rounded to currency
  precision here and nowhere earlier. The engine's internal snapshots stay
  at full precision; rounding is strictly a presentation concern.

DISPLAY BALANCE:
  EntryDTO.PrincipalBalance carries the entry's combined balance
  (principal + interest): statements historically present the running
  combined figure under that label.

VALIDATION:
  Request structs carry validate tags, checked by the handler layer via
  go-playground/validator before any parsing or engine call.
*/
package api

import (
	"time"

	"github.com/docketware/debt-engine/ledger"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CaseDTO represents a case and its derived aggregates.
type CaseDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	CourtName       string  `json:"court_name,omitempty"`
	CourtCaseNumber string  `json:"court_case_number,omitempty"`
	JudgmentAmount  string  `json:"judgment_amount"`
	InterestRate    string  `json:"interest_rate"`
	JudgmentDate    string  `json:"judgment_date"`
	TotalPayments   string  `json:"total_payments"`
	AccruedInterest string  `json:"accrued_interest"`
	PayoffAmount    string  `json:"payoff_amount"`
	TodayPayoff     string  `json:"today_payoff"`
	LastPaymentDate *string `json:"last_payment_date,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// EntryDTO represents one ledger entry snapshot.
type EntryDTO struct {
	ID               string `json:"id"`
	CaseID           string `json:"case_id"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	Description      string `json:"description,omitempty"`
	AccruedInterest  string `json:"accrued_interest"`
	PrincipalBalance string `json:"principal_balance"`
}

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateCaseRequest creates a case at its judgment baseline.
type CreateCaseRequest struct {
	Name            string `json:"name" validate:"required"`
	CourtName       string `json:"court_name"`
	CourtCaseNumber string `json:"court_case_number"`
	JudgmentAmount  string `json:"judgment_amount" validate:"required"`
	InterestRate    string `json:"interest_rate" validate:"required"`
	JudgmentDate    string `json:"judgment_date" validate:"required"`
}

// AppendEntryRequest records a new ledger event on a case.
type AppendEntryRequest struct {
	Type        string `json:"type" validate:"required,oneof=PAYMENT COST INTEREST"`
	Amount      string `json:"amount" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Description string `json:"description"`
}

// EditEntryRequest partially updates an entry. Omitted fields are unchanged.
type EditEntryRequest struct {
	Type        *string `json:"type,omitempty" validate:"omitempty,oneof=PAYMENT COST INTEREST"`
	Amount      *string `json:"amount,omitempty"`
	Date        *string `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCaseDTO(c *ledger.Case, prec ledger.Precision) CaseDTO {
	dto := CaseDTO{
		ID:              string(c.ID),
		Name:            c.Name,
		CourtName:       c.CourtName,
		CourtCaseNumber: c.CourtCaseNumber,
		JudgmentAmount:  c.JudgmentAmount.StringFixed(prec.Currency),
		InterestRate:    c.InterestRatePercent.String(),
		JudgmentDate:    c.JudgmentDate.String(),
		TotalPayments:   c.TotalPayments.StringFixed(prec.Currency),
		AccruedInterest: c.AccruedInterest.StringFixed(prec.Currency),
		PayoffAmount:    c.PayoffAmount.StringFixed(prec.Currency),
		TodayPayoff:     c.TodayPayoff.StringFixed(prec.Currency),
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
	if c.LastPaymentDate != nil {
		s := c.LastPaymentDate.String()
		dto.LastPaymentDate = &s
	}
	return dto
}

func toEntryDTO(e *ledger.Entry, prec ledger.Precision) EntryDTO {
	return EntryDTO{
		ID:               string(e.ID),
		CaseID:           string(e.CaseID),
		Type:             string(e.Type),
		Amount:           e.Amount.StringFixed(prec.Currency),
		Date:             e.Date.String(),
		Description:      e.Description,
		AccruedInterest:  e.AccruedInterest.StringFixed(prec.Currency),
		PrincipalBalance: e.CombinedBalance.StringFixed(prec.Currency),
	}
}

func toEntryDTOs(entries []*ledger.Entry, prec ledger.Precision) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e, prec)
	}
	return dtos
}

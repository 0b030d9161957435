package service

import "pmconsole/internal/models"

// Decision is the terminal state of one availability check. Exactly one of
// the types below is returned; switch on the concrete type.
type Decision interface {
	Kind() string
}

type Available struct {
	Rate  *models.RatePlanResult
	Price float64
}

type Blocked struct{ Message string }

type MinStayViolated struct{ Message string }

type DatesUnavailable struct{ Message string }

// IncompleteData is a success envelope without a usable price.
type IncompleteData struct{ Message string }

// Rejected is any other business failure reported by the backend.
type Rejected struct{ Message string }

type TransportFailed struct {
	StatusCode int
	Message    string
}

// Invalid is a validation or session failure detected before any call.
type Invalid struct {
	Field   string
	Message string
}

func (Available) Kind() string        { return "available" }
func (Blocked) Kind() string          { return "blocked" }
func (MinStayViolated) Kind() string  { return "min_stay_violated" }
func (DatesUnavailable) Kind() string { return "dates_unavailable" }
func (IncompleteData) Kind() string   { return "incomplete_data" }
func (Rejected) Kind() string         { return "rejected" }
func (TransportFailed) Kind() string  { return "transport_failed" }
func (Invalid) Kind() string          { return "invalid" }

package api

import (
	"net/http"
	"strings"

	"pmconsole/internal/models"
	"pmconsole/internal/session"
)

// handleRatePlan keeps the dashboard's original contract: 200 when a priced
// plan came back, 400 for every other outcome, including session problems.
func (s *HTTPServer) handleRatePlan(w http.ResponseWriter, r *http.Request) {
	var q models.RatePlanQuery
	if err := decodeJSON(w, r, &q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(q.StartDate) == "" || strings.TrimSpace(q.EndDate) == "" || strings.TrimSpace(q.PropertyID) == "" {
		writeError(w, http.StatusBadRequest, "startDate, endDate and propertyId are required")
		return
	}

	result, decision := s.svc.RatePlans.CheckAvailability(r.Context(), session.FromRequest(r), q)
	s.logger.Debug().
		Str("request_id", RequestID(r.Context())).
		Str("property_id", q.PropertyID).
		Str("decision", decision.Kind()).
		Msg("rate plan checked")

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

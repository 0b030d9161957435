package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"pmconsole/internal/backend"
	"pmconsole/internal/domain"
	"pmconsole/internal/logging"
	"pmconsole/internal/models"
	"pmconsole/internal/reconcile"

	"github.com/rs/zerolog"
)

var ratePlanOptions = reconcile.Options{
	Policy:         reconcile.BlockedFails,
	SuccessMessage: models.MsgRatePlanFetched,
	FailureMessage: backend.RatePlanMessages.Fallback,
}

// RatePlanService prices a candidate stay and decides whether it can be booked.
type RatePlanService struct {
	caller
}

func NewRatePlanService(b domain.Backend, logger *zerolog.Logger) *RatePlanService {
	return &RatePlanService{caller: caller{backend: b, logger: logging.Component(logger, "rate_plan")}}
}

type ratePlanRequest struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	PropertyID  string `json:"propertyId"`
	IsPmBooking bool   `json:"isPmBooking"`
}

// CheckAvailability validates the query, asks the backend for a rate plan and
// classifies the answer. Nothing is retried.
func (s *RatePlanService) CheckAvailability(ctx context.Context, token string, q models.RatePlanQuery) (models.Result[*models.RatePlanResult], Decision) {
	if msg, ok := authorize(token); !ok {
		return invalid[*models.RatePlanResult]("token", msg)
	}

	start, end, field, msg := validateQuery(q)
	if msg != "" {
		return invalid[*models.RatePlanResult](field, msg)
	}

	out, te := s.fetch(ctx, token, "rate_plan", backend.Request{
		Name:   "property_rate",
		Method: http.MethodPost,
		Path:   "/property/rate",
		Body: ratePlanRequest{
			StartDate:   start.String(),
			EndDate:     end.String(),
			PropertyID:  strings.TrimSpace(q.PropertyID),
			IsPmBooking: true,
		},
	}, ratePlanOptions, backend.RatePlanMessages)

	if te != nil {
		return models.Fail[*models.RatePlanResult](out.Message, models.ErrorGeneral),
			TransportFailed{StatusCode: te.StatusCode, Message: out.Message}
	}

	switch out.Verdict {
	case reconcile.VerdictOK:
	case reconcile.VerdictBlocked:
		return failFrom(out), Blocked{Message: out.Message}
	case reconcile.VerdictMinStay:
		return failFrom(out), MinStayViolated{Message: out.Message}
	case reconcile.VerdictUnavailable:
		return failFrom(out), DatesUnavailable{Message: out.Message}
	default:
		return failFrom(out), Rejected{Message: out.Message}
	}

	rate, ok := decodeRatePlan(out.Payload)
	price, priced := rate.Price()
	if !ok || !priced {
		s.logger.Warn().Str("property_id", q.PropertyID).Msg("rate plan without price")
		r := models.Fail[*models.RatePlanResult](models.MsgIncompleteRate, models.ErrorIncompleteData)
		return r, IncompleteData{Message: r.Message}
	}

	return models.Ok(rate, out.Message), Available{Rate: rate, Price: price}
}

func validateQuery(q models.RatePlanQuery) (start, end models.CalendarDate, field, msg string) {
	switch {
	case strings.TrimSpace(q.PropertyID) == "":
		return start, end, "propertyId", "Property ID is required"
	case strings.TrimSpace(q.StartDate) == "":
		return start, end, "startDate", "Check-in date is required"
	case strings.TrimSpace(q.EndDate) == "":
		return start, end, "endDate", "Check-out date is required"
	}

	var err error
	if start, err = models.ParseCalendarDate(q.StartDate); err != nil {
		return start, end, "startDate", "Invalid check-in date format"
	}
	if end, err = models.ParseCalendarDate(q.EndDate); err != nil {
		return start, end, "endDate", "Invalid check-out date format"
	}
	if !start.Before(end) {
		return start, end, "endDate", "Check-out date must be after check-in date"
	}
	return start, end, "", ""
}

// decodeRatePlan re-decodes the reconciled object into the typed result.
func decodeRatePlan(payload any) (*models.RatePlanResult, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	var rate models.RatePlanResult
	if err := json.Unmarshal(raw, &rate); err != nil {
		// tolerate odd field types; only the price matters here
		rate = models.RatePlanResult{}
		if v, ok := reconcile.AsFloat(obj["totalRate"]); ok {
			rate.TotalRate = &v
		}
		if v, ok := reconcile.AsFloat(obj["totalPrice"]); ok {
			rate.TotalPrice = &v
		}
		if n, ok := reconcile.AsInt(obj["stayingDurationNight"]); ok {
			rate.StayingDurationNight = n
		}
	}
	return &rate, true
}

func invalid[T any](field, msg string) (models.Result[T], Decision) {
	return models.Fail[T](msg, models.ErrorGeneral), Invalid{Field: field, Message: msg}
}

func failFrom(out reconcile.Outcome) models.Result[*models.RatePlanResult] {
	r := models.Fail[*models.RatePlanResult](out.Message, out.ErrorType)
	r.IsBlocked = out.IsBlocked
	return r
}

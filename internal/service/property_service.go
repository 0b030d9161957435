package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"pmconsole/internal/backend"
	"pmconsole/internal/domain"
	"pmconsole/internal/logging"
	"pmconsole/internal/models"
	"pmconsole/internal/reconcile"

	"github.com/rs/zerolog"
)

const billingDateLayout = "02/Jan/2006"

var propertyOptions = reconcile.Options{
	Policy:         reconcile.BlockedPassThrough,
	FailureMessage: backend.PropertyMessages.Fallback,
}

// PropertyService reads the owner's properties and manages unit calendars.
type PropertyService struct {
	caller
}

func NewPropertyService(b domain.Backend, logger *zerolog.Logger) *PropertyService {
	return &PropertyService{caller: caller{backend: b, logger: logging.Component(logger, "properties")}}
}

func (s *PropertyService) ListProperties(ctx context.Context, token string) models.Result[[]map[string]any] {
	out, _ := s.fetch(ctx, token, "list_properties", backend.Request{
		Name:      "property_list",
		Method:    http.MethodGet,
		Path:      "/property/list",
		Cacheable: true,
	}, reconcile.Options{Policy: reconcile.BlockedPassThrough, FailureMessage: "Failed to load properties", AllowEmpty: true}, backend.PropertyMessages)
	return listResult(out)
}

// Cities returns the distinct cities of the owner's properties in listing order.
func (s *PropertyService) Cities(ctx context.Context, token string) models.Result[[]string] {
	return s.distinct(ctx, token, "address.city")
}

// Neighbourhoods returns the distinct address_3 values.
func (s *PropertyService) Neighbourhoods(ctx context.Context, token string) models.Result[[]string] {
	return s.distinct(ctx, token, "address.address_3")
}

func (s *PropertyService) distinct(ctx context.Context, token, path string) models.Result[[]string] {
	list := s.ListProperties(ctx, token)
	if !list.Success {
		return models.FailAs[[]string](list)
	}
	seen := make(map[string]struct{})
	values := []string{}
	for _, p := range list.Data {
		v, ok := reconcile.FirstString(p, reconcile.Path(path))
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return models.Ok(values, list.Message)
}

// PropertyDetails fetches one property and adds display-ready billing dates.
func (s *PropertyService) PropertyDetails(ctx context.Context, token, propertyID string) models.Result[map[string]any] {
	propertyID = strings.TrimSpace(propertyID)
	if msg, ok := authorize(token); !ok {
		return models.Fail[map[string]any](msg, models.ErrorGeneral)
	}
	if propertyID == "" {
		return models.Fail[map[string]any]("Property ID is required", models.ErrorGeneral)
	}

	out, _ := s.fetch(ctx, token, "property_details", backend.Request{
		Name:      "property_details",
		Method:    http.MethodGet,
		Path:      "/property/details/" + url.PathEscape(propertyID),
		Cacheable: true,
	}, propertyOptions, backend.PropertyMessages)

	res := objectResult(out)
	if !res.Success {
		return res
	}

	// copy so the cached decode is never mutated
	detail := make(map[string]any, len(res.Data)+1)
	for k, v := range res.Data {
		detail[k] = v
	}
	next := formatBillingDate(detail)
	detail["formattedDates"] = map[string]any{
		"renewalDate":     next,
		"nextPaymentDate": next,
		"billingEndDate":  next,
	}
	res.Data = detail
	return res
}

func formatBillingDate(detail map[string]any) string {
	v, ok := reconcile.Path("subscriptionId.nextBillingDate").Extract(detail)
	if !ok {
		return "N/A"
	}
	t, ok := reconcile.AsTime(v)
	if !ok {
		return "N/A"
	}
	return t.Local().Format(billingDateLayout)
}

type availabilityUpdate struct {
	FromDate string   `json:"fromDate"`
	ToDate   string   `json:"toDate"`
	Rate     *float64 `json:"rate,omitempty"`
	Note     string   `json:"note"`
}

// BlockUnitDates closes a unit's calendar for the given ranges.
func (s *PropertyService) BlockUnitDates(ctx context.Context, token, propertyID string, blocks []models.BlockDatesInput) models.Result[map[string]any] {
	if msg, ok := authorize(token); !ok {
		return models.Fail[map[string]any](msg, models.ErrorGeneral)
	}
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" || len(blocks) == 0 {
		return models.Fail[map[string]any]("Property and at least one date range are required.", models.ErrorGeneral)
	}

	ratePlanID := ""
	updates := make([]availabilityUpdate, 0, len(blocks))
	for _, b := range blocks {
		if err := models.Validate(b); err != nil {
			return models.Fail[map[string]any]("Each date range needs a rate plan, a start and an end date.", models.ErrorGeneral)
		}
		from, errFrom := models.ParseCalendarDate(b.FromDate)
		to, errTo := models.ParseCalendarDate(b.ToDate)
		if errFrom != nil || errTo != nil {
			return models.Fail[map[string]any]("Invalid date selection. Please choose different dates.", models.ErrorGeneral)
		}
		if to.Before(from) {
			return models.Fail[map[string]any]("End date must not be before start date.", models.ErrorGeneral)
		}
		if ratePlanID == "" {
			ratePlanID = b.RatePlanID
		}
		updates = append(updates, availabilityUpdate{FromDate: from.String(), ToDate: to.String(), Rate: b.Rate, Note: b.Note})
	}

	out, _ := s.fetch(ctx, token, "block_dates", backend.Request{
		Name:   "availability_update",
		Method: http.MethodPost,
		Path:   "/property/availability/update",
		Body: map[string]any{
			"propertyId": propertyID,
			"ratePlanId": ratePlanID,
			"update":     updates,
		},
	}, reconcile.Options{
		Policy:         reconcile.BlockedPassThrough,
		SuccessMessage: "Unit dates updated successfully",
		FailureMessage: "Failed to block unit dates.",
		AcceptBare:     true,
	}, backend.PropertyMessages)

	if !out.OK() {
		return models.FailAs[map[string]any](out.Result())
	}
	obj, _ := out.Object()
	return models.Ok(obj, out.Message)
}

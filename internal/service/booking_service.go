package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"pmconsole/internal/backend"
	"pmconsole/internal/domain"
	"pmconsole/internal/logging"
	"pmconsole/internal/models"
	"pmconsole/internal/reconcile"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var bookingOptions = reconcile.Options{
	Policy:         reconcile.BlockedPassThrough,
	SuccessMessage: models.MsgBookingCreated,
	FailureMessage: "Failed to create booking. Please try again.",
	AcceptBare:     true,
}

var bookingIDResultRules = []reconcile.Rule{
	reconcile.Path("bookingId"),
	reconcile.Path("_id"),
	reconcile.Path("id"),
	reconcile.Path("booking.bookingId"),
	reconcile.Path("booking._id"),
}

// BookingService submits bookings made by the owner from the console.
type BookingService struct {
	caller
	notifier    domain.BookingNotifier
	notes       domain.NoteAdder
	countryCode string
	now         func() time.Time
}

func NewBookingService(b domain.Backend, notifier domain.BookingNotifier, notes domain.NoteAdder, defaultCountryCode string, logger *zerolog.Logger) *BookingService {
	if defaultCountryCode == "" {
		defaultCountryCode = models.DefaultCountryCode
	}
	return &BookingService{
		caller:      caller{backend: b, logger: logging.Component(logger, "booking")},
		notifier:    notifier,
		notes:       notes,
		countryCode: defaultCountryCode,
		now:         time.Now,
	}
}

type bookingRequest struct {
	PropertyID           string  `json:"propertyId"`
	StartDate            string  `json:"startDate"`
	EndDate              string  `json:"endDate"`
	Adults               int     `json:"adults"`
	Child                int     `json:"child"`
	Fname                string  `json:"fname"`
	Lname                string  `json:"lname"`
	Phone                string  `json:"phone"`
	CountryCode          string  `json:"countryCode"`
	StayingDurationNight int     `json:"stayingDurationNight"`
	ReservedByOwner      bool    `json:"reservedByOwner"`
	IsStayhubBooking     bool    `json:"isStayhubBooking"`
	TotalPrice           float64 `json:"totalPrice"`
}

// SubmitBooking validates the draft locally, then creates the booking. The
// first failed check wins and no request is made.
func (s *BookingService) SubmitBooking(ctx context.Context, token string, draft models.BookingDraft) models.Result[*models.BookingConfirmation] {
	fail := func(msg string) models.Result[*models.BookingConfirmation] {
		return models.Fail[*models.BookingConfirmation](msg, models.ErrorGeneral)
	}

	if msg, ok := authorize(token); !ok {
		return fail(msg)
	}
	draft = trimDraft(draft)

	if draft.Property.ID == "" {
		return fail("Property ID is required")
	}
	if draft.Stay.CheckIn == "" || draft.Stay.CheckOut == "" {
		return fail("Check-in and check-out dates are required")
	}
	checkIn, err := models.ParseCalendarDate(draft.Stay.CheckIn)
	if err != nil {
		return fail("Invalid check-in date format")
	}
	checkOut, err := models.ParseCalendarDate(draft.Stay.CheckOut)
	if err != nil {
		return fail("Invalid check-out date format")
	}
	if err := models.Validate(draft); err != nil {
		return fail(draftMessage(err))
	}

	price, ok := quotedPrice(draft, checkIn, checkOut)
	if !ok {
		return fail(models.MsgSelectDatesFirst)
	}

	if checkIn.Before(models.DateOf(s.now())) {
		return fail("Check-in date cannot be in the past")
	}
	if !checkIn.Before(checkOut) {
		return fail("Check-out date must be after check-in date")
	}

	nights := draft.Quote.Result.StayingDurationNight
	if nights <= 0 {
		nights = checkIn.NightsUntil(checkOut)
	}
	adults := draft.Guest.Adults
	if adults == 0 {
		adults = models.MinAdults
	}
	countryCode := draft.Guest.CountryCode
	if countryCode == "" {
		countryCode = s.countryCode
	}

	out, te := s.fetch(ctx, token, "create_booking", backend.Request{
		Name:   "property_book",
		Method: http.MethodPost,
		Path:   "/property/book",
		Body: bookingRequest{
			PropertyID:           draft.Property.ID,
			StartDate:            checkIn.String(),
			EndDate:              checkOut.String(),
			Adults:               adults,
			Child:                draft.Guest.Children,
			Fname:                draft.Guest.FirstName,
			Lname:                draft.Guest.LastName,
			Phone:                draft.Guest.MobileNumber,
			CountryCode:          countryCode,
			StayingDurationNight: nights,
			ReservedByOwner:      true,
			IsStayhubBooking:     true,
			TotalPrice:           price,
		},
	}, bookingOptions, backend.BookingMessages)

	if te != nil {
		errorType := models.ErrorGeneral
		if te.StatusCode == http.StatusConflict {
			errorType = models.ErrorDatesUnavailable
		}
		return models.Fail[*models.BookingConfirmation](out.Message, errorType)
	}
	if !out.OK() {
		if strings.Contains(out.Message, "already booked") {
			return models.Fail[*models.BookingConfirmation](models.MsgDatesUnavailable, models.ErrorDatesUnavailable)
		}
		r := models.Fail[*models.BookingConfirmation](out.Message, out.ErrorType)
		if r.ErrorType == "" {
			r.ErrorType = models.ErrorGeneral
		}
		return r
	}
	// a success flag next to "already booked" is not a booking
	if reconcile.ContainsUnavailable(out.EnvelopeMessage) {
		s.logger.Warn().Str("property_id", draft.Property.ID).Str("reason", out.EnvelopeMessage).Msg("booking refused despite success flag")
		return models.Fail[*models.BookingConfirmation](models.MsgDatesUnavailable, models.ErrorDatesUnavailable)
	}

	confirmation := &models.BookingConfirmation{
		Nights:   nights,
		CheckIn:  checkIn.String(),
		CheckOut: checkOut.String(),
	}
	if obj, ok := out.Object(); ok {
		confirmation.Raw = obj
		confirmation.BookingID, _ = reconcile.FirstString(obj, bookingIDResultRules...)
	}

	s.logger.Info().
		Str("property_id", draft.Property.ID).
		Str("booking_id", confirmation.BookingID).
		Str("check_in", confirmation.CheckIn).
		Msg("booking created")

	s.afterCreate(ctx, token, draft, confirmation)

	return models.Ok(confirmation, paymentMessage(draft.PaymentMethod))
}

func (s *BookingService) afterCreate(ctx context.Context, token string, draft models.BookingDraft, c *models.BookingConfirmation) {
	if c.BookingID == "" {
		s.logger.Warn().Msg("booking created without an id, list refresh is not coordinated")
		return
	}

	if draft.Note != "" && s.notes != nil {
		if res := s.notes.AddNote(ctx, token, c.BookingID, draft.Note); !res.Success {
			s.logger.Warn().Str("booking_id", c.BookingID).Str("reason", res.Message).Msg("attach booking note")
		}
	}

	if s.notifier == nil {
		return
	}
	title := draft.Property.Title
	if title == "" {
		title = "Property"
	}
	unit := draft.Property.UnitNo
	if unit == "" {
		unit = models.PlaceholderUnit
	}
	s.notifier.BookingCreated(ctx, token, models.NewBookingMarker{
		BookingID:     c.BookingID,
		PropertyID:    draft.Property.ID,
		CheckIn:       c.CheckIn,
		CheckOut:      c.CheckOut,
		GuestName:     strings.TrimSpace(draft.Guest.FirstName + " " + draft.Guest.LastName),
		PropertyTitle: title,
		UnitNo:        unit,
		CreatedAt:     s.now(),
	})
}

// quotedPrice accepts the draft's quote only when it was produced for this
// exact property and stay and carries a price.
func quotedPrice(draft models.BookingDraft, checkIn, checkOut models.CalendarDate) (float64, bool) {
	q := draft.Quote
	if q == nil || q.Result == nil {
		return 0, false
	}
	if strings.TrimSpace(q.Query.PropertyID) != draft.Property.ID {
		return 0, false
	}
	start, err := models.ParseCalendarDate(q.Query.StartDate)
	if err != nil || start != checkIn {
		return 0, false
	}
	end, err := models.ParseCalendarDate(q.Query.EndDate)
	if err != nil || end != checkOut {
		return 0, false
	}
	return q.Result.Price()
}

func paymentMessage(method models.PaymentMethod) string {
	if method == models.PayNow {
		return models.MsgBookingPaidNotice
	}
	return models.MsgBookingIDNotice
}

func trimDraft(d models.BookingDraft) models.BookingDraft {
	d.Property.ID = strings.TrimSpace(d.Property.ID)
	d.Stay.CheckIn = strings.TrimSpace(d.Stay.CheckIn)
	d.Stay.CheckOut = strings.TrimSpace(d.Stay.CheckOut)
	d.Guest.FirstName = strings.TrimSpace(d.Guest.FirstName)
	d.Guest.LastName = strings.TrimSpace(d.Guest.LastName)
	d.Guest.MobileNumber = strings.TrimSpace(d.Guest.MobileNumber)
	d.Guest.CountryCode = strings.TrimSpace(d.Guest.CountryCode)
	d.Note = strings.TrimSpace(d.Note)
	return d
}

var draftFieldMessages = map[string]string{
	"FirstName":     "Please enter your first name",
	"LastName":      "Please enter your last name",
	"MobileNumber":  "Please enter a valid mobile number",
	"CountryCode":   "Please select a valid country code",
	"Adults":        "Adults must be between 1 and 5",
	"Children":      "Children cannot be negative",
	"Note":          "Note must be 100 characters or less.",
	"PaymentMethod": "Please choose a payment method",
}

// draftMessage reports the first invalid field in form order.
func draftMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid booking data. Please check your information and try again."
	}
	if msg, ok := draftFieldMessages[verrs[0].Field()]; ok {
		return msg
	}
	return "Invalid booking data. Please check your information and try again."
}

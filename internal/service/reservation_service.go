package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pmconsole/internal/backend"
	"pmconsole/internal/domain"
	"pmconsole/internal/logging"
	"pmconsole/internal/metrics"
	"pmconsole/internal/models"
	"pmconsole/internal/reconcile"
	"pmconsole/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultEnrichConcurrency = 4

var reservationOptions = reconcile.Options{
	Policy:         reconcile.BlockedPassThrough,
	FailureMessage: backend.ReservationMessages.Fallback,
	AllowEmpty:     true,
}

// ReservationService lists the owner's bookings in a normalized shape.
type ReservationService struct {
	caller
	properties domain.PropertyLookup
	markers    domain.MarkerStore
	now        func() time.Time
	limit      int
}

func NewReservationService(b domain.Backend, properties domain.PropertyLookup, markers domain.MarkerStore, logger *zerolog.Logger) *ReservationService {
	return &ReservationService{
		caller:     caller{backend: b, logger: logging.Component(logger, "reservations")},
		properties: properties,
		markers:    markers,
		now:        time.Now,
		limit:      defaultEnrichConcurrency,
	}
}

// ListReservations returns one page of reservations, newest first. On page 1
// it also hands over the owner's fresh-booking marker, exactly once.
func (s *ReservationService) ListReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage {
	result := s.FetchReservations(ctx, token, page, pageSize)
	if result.Success && page == 1 && s.markers != nil {
		marker, err := s.markers.TakeMarker(ctx, session.Subject(token))
		if err != nil {
			s.logger.Warn().Err(err).Msg("read new booking marker")
		}
		result.NewBooking = marker
	}
	return result
}

// FetchReservations is ListReservations without touching the marker. The
// refresh coordinator uses it to look for a just-created booking.
func (s *ReservationService) FetchReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage {
	if msg, ok := authorize(token); !ok {
		return models.FailedPage(msg, page, pageSize)
	}
	if page < 1 || pageSize <= 0 {
		return models.FailedPage("Page must be at least 1 and page size must be positive.", page, pageSize)
	}

	out, _ := s.fetch(ctx, token, "list_reservations", backend.Request{
		Name:   "pm_bookings",
		Method: http.MethodGet,
		Path:   "/pm/bookings",
		Query: url.Values{
			"page":     {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(pageSize)},
		},
	}, reservationOptions, backend.ReservationMessages)
	if !out.OK() {
		return models.FailedPage(out.Message, page, pageSize)
	}

	records, meta, ok := bookingRecords(out)
	if !ok {
		return models.FailedPage(models.MsgUnexpected, page, pageSize)
	}

	// undated records share one timestamp so the stable sort keeps their order
	now := s.now()
	reservations := make([]models.Reservation, len(records))
	lookups := make(map[string][]int)
	for i, rec := range records {
		res, pid := normalize(rec, page, i, now)
		reservations[i] = res
		if res.Title == "" && res.UnitNo == "" && pid != "" {
			lookups[pid] = append(lookups[pid], i)
		}
	}

	s.enrich(ctx, token, reservations, lookups)

	for i := range reservations {
		if reservations[i].Title == "" {
			reservations[i].Title = models.PlaceholderTitle
		}
		if reservations[i].UnitNo == "" {
			reservations[i].UnitNo = models.PlaceholderUnit
		}
	}

	sort.SliceStable(reservations, func(a, b int) bool {
		return reservations[a].CreatedAt.After(reservations[b].CreatedAt)
	})

	return models.ReservationPage{
		Success:    true,
		Message:    out.Message,
		Data:       reservations,
		Pagination: paginate(meta, page, pageSize, len(reservations)),
	}
}

func bookingRecords(out reconcile.Outcome) ([]map[string]any, map[string]any, bool) {
	switch payload := out.Payload.(type) {
	case []any:
		return asObjects(payload), out.Container, true
	case map[string]any:
		for _, key := range []string{"data", "bookings"} {
			if list, ok := payload[key].([]any); ok {
				return asObjects(list), payload, true
			}
		}
	}
	return nil, nil, false
}

func normalize(rec map[string]any, page, index int, now time.Time) (models.Reservation, string) {
	res := models.Reservation{Notes: []models.Note{}}

	if id, ok := reconcile.FirstString(rec, idRules...); ok {
		res.ID = id
	} else {
		res.ID = fmt.Sprintf("row-%d-%d", page, index)
	}
	if bid, ok := reconcile.FirstString(rec, bookingIDRules...); ok {
		res.BookingID = &bid
	}

	res.GuestName = models.PlaceholderGuestName
	if name, ok := reconcile.FirstString(rec, guestNameRules...); ok {
		res.GuestName = name
	}
	res.Title, _ = reconcile.FirstString(rec, titleRules...)
	res.UnitNo, _ = reconcile.FirstString(rec, unitRules...)
	res.PropertyID, _ = reconcile.FirstString(rec, propertyIDRules...)
	res.Phone, _ = reconcile.FirstString(rec, phoneRules...)
	res.Email, _ = reconcile.FirstString(rec, emailRules...)

	res.CheckIn = firstTime(rec, checkInRules)
	res.CheckOut = firstTime(rec, checkOutRules)
	switch created := firstTime(rec, createdAtRules); {
	case created != nil:
		res.CreatedAt = *created
	case res.CheckIn != nil:
		res.CreatedAt = *res.CheckIn
	default:
		res.CreatedAt = now
	}

	if channel, ok := reconcile.FirstString(rec, channelRules...); ok {
		res.Channel = &channel
	}
	res.IsStayhubBooking = res.Channel == nil
	res.IsCancelled = reconcile.AsBool(rec["isCancelled"])
	res.IsCheckinCompleted = reconcile.AsBool(rec["isCheckinCompleted"])
	res.IsPaymentCompleted = reconcile.AsBool(rec["isPaymentCompleted"])
	res.Notes = notesOf(rec)

	return res, res.PropertyID
}

func firstTime(rec map[string]any, rules []reconcile.Rule) *time.Time {
	for _, rule := range rules {
		v, ok := rule.Extract(rec)
		if !ok {
			continue
		}
		if t, ok := reconcile.AsTime(v); ok {
			return &t
		}
	}
	return nil
}

func notesOf(rec map[string]any) []models.Note {
	notes := []models.Note{}
	if list, ok := rec["notes"].([]any); ok {
		for _, item := range list {
			switch n := item.(type) {
			case string:
				if strings.TrimSpace(n) != "" {
					notes = append(notes, models.Note{Text: n})
				}
			case map[string]any:
				text, _ := reconcile.FirstString(n, reconcile.Path("text"), reconcile.Path("note"))
				if text == "" {
					continue
				}
				note := models.Note{Text: text}
				if t, ok := reconcile.AsTime(n["createdAt"]); ok {
					note.CreatedAt = &t
				}
				notes = append(notes, note)
			}
		}
		return notes
	}
	if text, ok := rec["note"].(string); ok && strings.TrimSpace(text) != "" {
		notes = append(notes, models.Note{Text: text})
	}
	return notes
}

// enrich looks up each distinct property once. Failures leave the
// placeholders in place and never fail the page.
func (s *ReservationService) enrich(ctx context.Context, token string, reservations []models.Reservation, lookups map[string][]int) {
	if s.properties == nil || len(lookups) == 0 {
		return
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.limit)

	for pid, rows := range lookups {
		pid, rows := pid, rows
		g.Go(func() error {
			detail := s.lookup(ctx, token, pid)
			if !detail.Success {
				metrics.IncEnrichmentFailure()
				s.logger.Warn().Str("property_id", pid).Str("reason", detail.Message).Msg("property lookup failed")
				return nil
			}
			title, _ := reconcile.FirstString(detail.Data, detailTitleRules...)
			unit, _ := reconcile.FirstString(detail.Data, detailUnitRules...)

			mu.Lock()
			defer mu.Unlock()
			for _, i := range rows {
				reservations[i].Title = title
				reservations[i].UnitNo = unit
			}
			return nil
		})
	}
	_ = g.Wait()
}

// lookup turns a panicking collaborator into an ordinary failure.
func (s *ReservationService) lookup(ctx context.Context, token, propertyID string) (res models.Result[map[string]any]) {
	defer func() {
		if r := recover(); r != nil {
			res = models.Fail[map[string]any](fmt.Sprint(r), models.ErrorGeneral)
		}
	}()
	return s.properties.PropertyDetails(ctx, token, propertyID)
}

func paginate(meta map[string]any, page, pageSize, count int) models.Pagination {
	p := models.Pagination{CurrentPage: page, PageSize: pageSize, TotalData: count}
	if v, ok := reconcile.AsInt(meta["pageSize"]); ok && v > 0 {
		p.PageSize = v
	}
	if v, ok := reconcile.AsInt(meta["total_data"]); ok && v >= 0 {
		p.TotalData = v
	}
	if v, ok := reconcile.AsInt(meta["total_page"]); ok && v > 0 {
		p.TotalPage = v
	} else {
		p.TotalPage = int(math.Ceil(float64(p.TotalData) / float64(p.PageSize)))
	}
	if p.TotalPage < 1 {
		p.TotalPage = 1
	}
	if v, ok := reconcile.AsInt(meta["page"]); ok && v > 0 {
		p.CurrentPage = v
	}
	if p.CurrentPage > p.TotalPage {
		p.CurrentPage = p.TotalPage
	}
	return p
}

// AddNote attaches a note to a reservation and returns it for optimistic
// display.
func (s *ReservationService) AddNote(ctx context.Context, token, reservationID, text string) models.Result[models.Note] {
	if msg, ok := authorize(token); !ok {
		return models.Fail[models.Note](msg, models.ErrorGeneral)
	}
	reservationID = strings.TrimSpace(reservationID)
	input := models.NoteInput{Note: strings.TrimSpace(text)}
	if reservationID == "" || input.Note == "" {
		return models.Fail[models.Note]("Reservation ID and note text are required.", models.ErrorGeneral)
	}
	if err := models.Validate(input); err != nil {
		return models.Fail[models.Note](fmt.Sprintf("Note must be %d characters or less.", models.MaxNoteLength), models.ErrorGeneral)
	}

	out, _ := s.fetch(ctx, token, "add_note", backend.Request{
		Name:   "pm_booking_notes",
		Method: http.MethodPost,
		Path:   "/pm/bookings/" + url.PathEscape(reservationID) + "/notes",
		Body:   input,
	}, reconcile.Options{
		SuccessMessage: models.MsgNoteAdded,
		FailureMessage: backend.NoteMessages.Fallback,
		AcceptBare:     true,
	}, backend.NoteMessages)
	if !out.OK() {
		return models.FailAs[models.Note](out.Result())
	}

	now := s.now()
	return models.Ok(models.Note{Text: input.Note, CreatedAt: &now}, out.Message)
}

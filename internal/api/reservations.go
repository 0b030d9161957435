package api

import (
	"bytes"
	"net/http"
	"strconv"

	"pmconsole/internal/export"
	"pmconsole/internal/models"
	"pmconsole/internal/session"

	"github.com/gorilla/mux"
)

func (s *HTTPServer) routeReservations(r *mux.Router) {
	r.HandleFunc("/reservations", s.handleListReservations).Methods(http.MethodGet)
	r.HandleFunc("/reservations/export", s.handleExportReservations).Methods(http.MethodGet)
	r.HandleFunc("/reservations/{id}/notes", s.handleAddNote).Methods(http.MethodPost)
	r.HandleFunc("/bookings", s.handleSubmitBooking).Methods(http.MethodPost)
}

// pageParams reads page and pageSize, defaulting absent values. Range checks
// are left to the service so the failure keeps the page shape.
func pageParams(r *http.Request) (page, pageSize int, ok bool) {
	page, pageSize = models.DefaultPage, models.DefaultPageSize
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, false
		}
		page = v
	}
	if raw := q.Get("pageSize"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, false
		}
		pageSize = v
	}
	return page, pageSize, true
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "page and pageSize must be numbers")
		return
	}

	result := s.svc.Reservations.ListReservations(r.Context(), session.FromRequest(r), page, pageSize)
	writeJSON(w, resultStatus(result.Success, result.Message), result)
}

// handleExportReservations renders one page as a spreadsheet. It reads the
// page without consuming the fresh-booking marker.
func (s *HTTPServer) handleExportReservations(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "page and pageSize must be numbers")
		return
	}

	result := s.svc.Reservations.FetchReservations(r.Context(), session.FromRequest(r), page, pageSize)
	if !result.Success {
		writeJSON(w, resultStatus(false, result.Message), result)
		return
	}

	at := s.now()
	var buf bytes.Buffer
	if err := export.WriteReservations(&buf, result, at); err != nil {
		s.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("render reservations export")
		writeError(w, http.StatusInternalServerError, "Failed to export reservations")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(page, at)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var in models.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	writeResult(w, s.svc.Reservations.AddNote(r.Context(), session.FromRequest(r), mux.Vars(r)["id"], in.Note))
}

func (s *HTTPServer) handleSubmitBooking(w http.ResponseWriter, r *http.Request) {
	var draft models.BookingDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result := s.svc.Bookings.SubmitBooking(r.Context(), session.FromRequest(r), draft)
	if result.Success {
		writeJSON(w, http.StatusCreated, result)
		return
	}
	writeResult(w, result)
}

package api

import (
	"net/http"

	"pmconsole/internal/models"
	"pmconsole/internal/session"

	"github.com/gorilla/mux"
)

func (s *HTTPServer) routeProperties(r *mux.Router) {
	r.HandleFunc("/properties", s.handleListProperties).Methods(http.MethodGet)
	r.HandleFunc("/properties/cities", s.handleCities).Methods(http.MethodGet)
	r.HandleFunc("/properties/neighbourhoods", s.handleNeighbourhoods).Methods(http.MethodGet)
	r.HandleFunc("/properties/{id}", s.handlePropertyDetails).Methods(http.MethodGet)
	r.HandleFunc("/properties/{id}/availability", s.handleBlockDates).Methods(http.MethodPost)
}

func (s *HTTPServer) handleListProperties(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Properties.ListProperties(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handleCities(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Properties.Cities(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handleNeighbourhoods(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Properties.Neighbourhoods(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handlePropertyDetails(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Properties.PropertyDetails(r.Context(), session.FromRequest(r), mux.Vars(r)["id"]))
}

type blockDatesRequest struct {
	Ranges []models.BlockDatesInput `json:"ranges"`
}

func (s *HTTPServer) handleBlockDates(w http.ResponseWriter, r *http.Request) {
	var body blockDatesRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	writeResult(w, s.svc.Properties.BlockUnitDates(r.Context(), session.FromRequest(r), mux.Vars(r)["id"], body.Ranges))
}

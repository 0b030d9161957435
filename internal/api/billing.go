package api

import (
	"errors"
	"io"
	"net/http"

	"pmconsole/internal/models"
	"pmconsole/internal/session"

	"github.com/gorilla/mux"
)

func (s *HTTPServer) routeBilling(r *mux.Router) {
	b := r.PathPrefix("/billing").Subrouter()
	b.HandleFunc("/subscriptions", s.handleSubscriptions).Methods(http.MethodGet)
	b.HandleFunc("/plans", s.handlePlans).Methods(http.MethodGet)
	b.HandleFunc("/discounts", s.handleDiscounts).Methods(http.MethodGet)
	b.HandleFunc("/cards", s.handleCards).Methods(http.MethodGet)
	b.HandleFunc("/discounts/verify", s.handleVerifyDiscount).Methods(http.MethodPost)
	b.HandleFunc("/premium", s.handleSubscribePremium).Methods(http.MethodPost)
	b.HandleFunc("/properties/{id}/cancel", s.handleCancellationDetails).Methods(http.MethodGet)
	b.HandleFunc("/properties/{id}/cancel", s.handleCancelSubscription).Methods(http.MethodPost)
}

func (s *HTTPServer) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Billing.Subscriptions(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Billing.Plans(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handleDiscounts(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Billing.Discounts(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handleCards(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Billing.Cards(r.Context(), session.FromRequest(r)))
}

func (s *HTTPServer) handleVerifyDiscount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	writeResult(w, s.svc.Billing.VerifyDiscount(r.Context(), session.FromRequest(r), body.UserID))
}

func (s *HTTPServer) handleSubscribePremium(w http.ResponseWriter, r *http.Request) {
	var req models.PremiumSubscription
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	writeResult(w, s.svc.Billing.SubscribePremium(r.Context(), session.FromRequest(r), req))
}

func (s *HTTPServer) handleCancellationDetails(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Billing.CancellationDetails(r.Context(), session.FromRequest(r), mux.Vars(r)["id"]))
}

// handleCancelSubscription needs {"confirm": true}; an empty body counts as
// unconfirmed and the service refuses it without calling the backend.
func (s *HTTPServer) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	writeResult(w, s.svc.Billing.CancelSubscription(r.Context(), session.FromRequest(r), mux.Vars(r)["id"], body.Confirm))
}

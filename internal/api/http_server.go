package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/logging"
	"pmconsole/internal/models"
	"pmconsole/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type RatePlanChecker interface {
	CheckAvailability(ctx context.Context, token string, q models.RatePlanQuery) (models.Result[*models.RatePlanResult], service.Decision)
}

type ReservationBook interface {
	ListReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage
	FetchReservations(ctx context.Context, token string, page, pageSize int) models.ReservationPage
	AddNote(ctx context.Context, token, reservationID, text string) models.Result[models.Note]
}

type BookingSubmitter interface {
	SubmitBooking(ctx context.Context, token string, draft models.BookingDraft) models.Result[*models.BookingConfirmation]
}

type PropertyCatalog interface {
	ListProperties(ctx context.Context, token string) models.Result[[]map[string]any]
	Cities(ctx context.Context, token string) models.Result[[]string]
	Neighbourhoods(ctx context.Context, token string) models.Result[[]string]
	PropertyDetails(ctx context.Context, token, propertyID string) models.Result[map[string]any]
	BlockUnitDates(ctx context.Context, token, propertyID string, blocks []models.BlockDatesInput) models.Result[map[string]any]
}

type BillingDesk interface {
	Subscriptions(ctx context.Context, token string) models.Result[any]
	Plans(ctx context.Context, token string) models.Result[any]
	Discounts(ctx context.Context, token string) models.Result[any]
	Cards(ctx context.Context, token string) models.Result[any]
	VerifyDiscount(ctx context.Context, token, userID string) models.Result[any]
	SubscribePremium(ctx context.Context, token string, req models.PremiumSubscription) models.Result[any]
	CancellationDetails(ctx context.Context, token, propertyID string) models.Result[any]
	CancelSubscription(ctx context.Context, token, propertyID string, confirmed bool) models.Result[any]
}

// Services is everything the HTTP surface delegates to. Events and Ready
// are optional.
type Services struct {
	RatePlans    RatePlanChecker
	Reservations ReservationBook
	Bookings     BookingSubmitter
	Properties   PropertyCatalog
	Billing      BillingDesk
	Events       http.Handler
	Ready        func(ctx context.Context) error
}

// HTTPServer exposes the console API consumed by the dashboard.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	server *http.Server
	logger *zerolog.Logger
	now    func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:    cfg,
		svc:    svc,
		logger: logging.Component(logger, "http"),
		now:    time.Now,
	}

	router := mux.NewRouter()
	router.Use(metricsMiddleware, recoverMiddleware(srv.logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.HandleFunc("/healthz", srv.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", srv.handleReadyz).Methods(http.MethodGet)

	limited := router.NewRoute().Subrouter()
	limited.Use(rateLimitMiddleware(newRateLimiter(cfg.RateLimit)))
	limited.HandleFunc("/api/rate-plan", srv.handleRatePlan).Methods(http.MethodPost)

	v1 := limited.PathPrefix("/api/v1").Subrouter()
	v1.Use(sessionMiddleware)
	srv.routeReservations(v1)
	srv.routeProperties(v1)
	srv.routeBilling(v1)
	if svc.Events != nil {
		v1.Handle("/events", svc.Events).Methods(http.MethodGet)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           requestIDMiddleware(loggingMiddleware(srv.logger)(cors(router))),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"valetcore/internal/archive"
	"valetcore/internal/config"
	"valetcore/internal/domain"
	"valetcore/internal/events"
	"valetcore/internal/export"
	"valetcore/internal/lifecycle"
	"valetcore/internal/metrics"
	"valetcore/internal/models"
	"valetcore/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer is the boundary the UI collaborators (intake forms, dashboards,
// customer tracking page) call into. It renders nothing; it returns the
// core's results and typed errors as JSON.
type HTTPServer struct {
	cfg      config.ServerConfig
	bookings *service.BookingService
	tracking *service.TrackingService
	archiver *archive.Engine
	bus      *events.EventBus
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.ServerConfig, bookings *service.BookingService, tracking *service.TrackingService, archiver *archive.Engine, bus *events.EventBus, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		tracking: tracking,
		archiver: archiver,
		bus:      bus,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/sync", srv.handleSync)
	mux.HandleFunc("/api/v1/stats", srv.handleStats)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Handler exposes the configured handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

type createBookingRequest struct {
	CustomerName         string   `json:"customer_name"`
	CustomerEmail        string   `json:"customer_email"`
	CustomerPhone        string   `json:"customer_phone"`
	Vehicle              string   `json:"vehicle"`
	Date                 string   `json:"date"`
	StartTime            string   `json:"start_time"`
	EndTime              string   `json:"end_time"`
	PackageType          string   `json:"package_type"`
	ClientType           string   `json:"client_type"`
	JobType              string   `json:"job_type"`
	AdditionalServiceIDs []string `json:"additional_service_ids"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	switch r.Method {
	case http.MethodGet:
		bookings, err := s.bookings.ListActive(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})

	case http.MethodPost:
		var req createBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.CustomerName == "" || req.Date == "" || req.StartTime == "" {
			writeError(w, http.StatusBadRequest, "customer_name, date and start_time are required")
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}

		booking := &models.Booking{
			CustomerName:         req.CustomerName,
			CustomerEmail:        req.CustomerEmail,
			CustomerPhone:        req.CustomerPhone,
			Vehicle:              req.Vehicle,
			Date:                 date,
			StartTime:            req.StartTime,
			EndTime:              req.EndTime,
			PackageType:          req.PackageType,
			ClientType:           models.ClientType(req.ClientType),
			JobType:              models.JobType(req.JobType),
			AdditionalServiceIDs: req.AdditionalServiceIDs,
		}
		if err := s.bookings.CreateBooking(r.Context(), booking); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type statusChangeRequest struct {
	Status      string   `json:"status"`
	Staff       []string `json:"staff"`
	AdminCancel bool     `json:"admin_cancel"`
	ChangedBy   string   `json:"changed_by"`
}

type completeTaskRequest struct {
	TaskID string `json:"task_id"`
}

type changePackageRequest struct {
	PackageType string `json:"package_type"`
}

// handleBookingByID routes /api/v1/bookings/{id}[/status|/tracking|/tasks|/package].
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		metrics.IncHTTP("booking_get")
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case action == "" && r.Method == http.MethodDelete:
		metrics.IncHTTP("booking_delete")
		if err := s.bookings.DeleteBooking(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	case action == "status" && r.Method == http.MethodPost:
		metrics.IncHTTP("booking_status")
		var req statusChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		target, err := models.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		booking, err := s.bookings.ChangeStatus(r.Context(), id, target, lifecycle.TransitionOptions{
			Staff:       req.Staff,
			AdminCancel: req.AdminCancel,
			ChangedBy:   req.ChangedBy,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case action == "tracking" && r.Method == http.MethodGet:
		metrics.IncHTTP("booking_tracking")
		view, err := s.tracking.Track(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case action == "events" && r.Method == http.MethodGet:
		s.handleBookingEvents(w, r, id)

	case action == "tasks" && r.Method == http.MethodPost:
		metrics.IncHTTP("booking_task")
		var req completeTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err := s.bookings.CompleteTask(r.Context(), id, req.TaskID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case action == "package" && r.Method == http.MethodPost:
		metrics.IncHTTP("booking_package")
		var req changePackageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err := s.bookings.ChangePackage(r.Context(), id, req.PackageType)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleBookingEvents streams tracking updates for one booking as
// server-sent events. The tracking page opens this alongside the polling
// endpoint; a dropped stream degrades to polling.
func (s *HTTPServer) handleBookingEvents(w http.ResponseWriter, r *http.Request, id string) {
	metrics.IncHTTP("booking_events")

	flusher, ok := w.(http.Flusher)
	if !ok || s.bus == nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	view, err := s.tracking.Track(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// the stream outlives the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates := make(chan []byte, 8)
	forward := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.BookingID != id {
			return nil
		}
		select {
		case updates <- event.Payload:
		default:
			// slow client; it catches up on the next event or via polling
		}
		return nil
	}

	cancels := []func(){
		s.bus.SubscribeWithCancel(events.EventStatusChanged, forward),
		s.bus.SubscribeWithCancel(events.EventProgressUpdated, forward),
		s.bus.SubscribeWithCancel(events.EventBookingArchived, forward),
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	// initial snapshot so the page renders before the first change
	snapshot, _ := json.Marshal(view)
	fmt.Fprintf(w, "data: %s\n\n", snapshot)
	flusher.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-updates:
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// handleSync is the user-facing "sync now" action; unlike the periodic pass
// its outcome is reported to the caller.
func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("sync")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.bookings.ForceSync(r.Context()); err != nil {
		if errors.Is(err, domain.ErrSyncInFlight) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "sync already running"})
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("stats")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.archiver.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	active, err := s.bookings.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	archived, err := s.bookings.ListArchived(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := s.archiver.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	f, err := export.BookingReport(active, archived, stats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bookings-%s.xlsx", time.Now().Format("2006-01-02")))
	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("export write failed")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps the core error taxonomy onto HTTP statuses so UI
// collaborators can show toast-style feedback without string matching.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflictDetected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrMissingPrerequisite):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotTrackable):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrSyncFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

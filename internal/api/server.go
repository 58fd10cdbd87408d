// Package api serves the operations HTTP surface: health, watcher control,
// annotated listings, annotation edits and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/trader"
	"github.com/rxtech-lab/argo-autotrade/internal/version"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Server struct {
	// ctx outlives requests; watchers started through the API run under it.
	ctx        context.Context
	trader     *trader.Trader
	gatherer   prometheus.Gatherer
	router     *mux.Router
	logger     *logger.Logger
	httpServer *http.Server
	listener   net.Listener
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type annotationRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// NewServer builds the router. gatherer backs /metrics; nil uses the default registry.
func NewServer(ctx context.Context, t *trader.Trader, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		ctx:        ctx,
		trader:     t,
		gatherer:   gatherer,
		router:     mux.NewRouter(),
		logger:     log.Named("api"),
		httpServer: nil,
		listener:   nil,
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/watcher/status", s.handleWatcherStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/watcher/start", s.handleWatcherStart).Methods(http.MethodPost)
	s.router.HandleFunc("/watcher/stop", s.handleWatcherStop).Methods(http.MethodPost)
	s.router.HandleFunc("/watcher/enabled", s.handleWatcherEnabled).Methods(http.MethodPut)
	s.router.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	s.router.HandleFunc("/orders", s.handleOrders).Methods(http.MethodGet)
	s.router.HandleFunc("/annotations/{ticket}", s.handleGetAnnotation).Methods(http.MethodGet)
	s.router.HandleFunc("/annotations/{ticket}", s.handlePutAnnotation).Methods(http.MethodPut)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet) //nolint:exhaustruct

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background. ":0" picks a free port.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}
	s.listener = listener

	s.httpServer = &http.Server{ //nolint:exhaustruct
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("Ops API listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Address returns the bound address once Start has succeeded.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"venue":   s.trader.Venue().Name(),
		"version": version.GetVersion(),
	})
}

func (s *Server) handleWatcherStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.trader.Watcher().Status())
}

func (s *Server) handleWatcherStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.trader.Watcher().Start(s.ctx); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.trader.Watcher().Status())
}

func (s *Server) handleWatcherStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.trader.Watcher().Stop(); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.trader.Watcher().Status())
}

func (s *Server) handleWatcherEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	if req.Enabled == nil {
		s.writeError(w, errors.New(errors.ErrCodeMissingParameter, "enabled is required"))

		return
	}

	s.trader.Watcher().SetEnabled(*req.Enabled)
	s.writeJSON(w, http.StatusOK, s.trader.Watcher().Status())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.trader.Positions(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.trader.PendingOrders(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	ticket, err := ticketParam(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	record, err := s.trader.Store().Record(r.Context(), ticket)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if record.IsNone() {
		s.writeError(w, errors.Newf(errors.ErrCodeDataNotFound, "no annotation for ticket %d", ticket))

		return
	}

	s.writeJSON(w, http.StatusOK, record.Unwrap())
}

func (s *Server) handlePutAnnotation(w http.ResponseWriter, r *http.Request) {
	ticket, err := ticketParam(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	var req annotationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.trader.Store().Put(r.Context(), ticket, req.Text); err != nil {
		s.writeError(w, err)

		return
	}

	record, err := s.trader.Store().Record(r.Context(), ticket)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, record.Unwrap())
}

func ticketParam(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["ticket"]

	ticket, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || ticket == 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid ticket %q", raw)
	}

	return ticket, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err)
	}

	return nil
}

func statusFor(err error) int {
	code := errors.GetCode(err)

	switch {
	case code == errors.ErrCodeWatcherAlreadyRunning, code == errors.ErrCodeWatcherNotRunning:
		return http.StatusConflict
	case code == errors.ErrCodeDataNotFound,
		code == errors.ErrCodePositionNotFound,
		code == errors.ErrCodePendingOrderNotFound:
		return http.StatusNotFound
	case code.Category() == errors.CategoryValidation:
		return http.StatusBadRequest
	case code.Category() == errors.CategoryVenue:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}

	s.writeJSON(w, status, errorResponse{Error: errors.Message(err), Code: int(errors.GetCode(err))})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

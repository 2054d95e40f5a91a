// Package server exposes a monitoring session over HTTP: JSON status and
// reading endpoints, rendered graphs, a websocket event stream and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"proxigesture.klederson.com/internal/monitor"
	"proxigesture.klederson.com/internal/samplelog"
	"proxigesture.klederson.com/internal/sensor"
)

// Options configures a Server. Monitor is required.
type Options struct {
	Monitor     *monitor.Monitor
	Metrics     *monitor.Metrics
	Logger      *slog.Logger
	AccessLog   io.Writer
	GraphWindow time.Duration
}

// Server serves the HTTP surface for one monitor.
type Server struct {
	mon     *monitor.Monitor
	metrics *monitor.Metrics
	logger  *slog.Logger
	access  io.Writer
	window  time.Duration
	hub     *Hub
}

// New builds a server. Register Listener on the monitor to stream events.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	access := opts.AccessLog
	if access == nil {
		access = io.Discard
	}
	window := opts.GraphWindow
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Server{
		mon:     opts.Monitor,
		metrics: opts.Metrics,
		logger:  logger,
		access:  access,
		window:  window,
		hub:     NewHub(logger),
	}
}

// Listener forwards monitor events to websocket clients.
func (s *Server) Listener(event any) {
	switch e := event.(type) {
	case monitor.ReadingEvent:
		s.hub.Broadcast("reading", e)
	case monitor.GestureEvent:
		s.hub.Broadcast("gesture", e)
	case monitor.StartedEvent:
		s.hub.Broadcast("started", e)
	case monitor.StoppedEvent:
		s.hub.Broadcast("stopped", e)
	}
}

// Handler returns the routed handler with access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	route := func(path string, h http.HandlerFunc) {
		r.Handle(path, s.metrics.WrapHandler(path, h)).Methods(http.MethodGet)
	}
	route("/api/status", s.handleStatus)
	route("/api/readings", s.handleReadings)
	route("/api/summary", s.handleSummary)
	route("/graph", s.handleGraph)
	route("/graph.png", s.handleGraphPNG)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return handlers.LoggingHandler(s.access, r)
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mon.Status())
}

type readingsResponse struct {
	Count    int              `json:"count"`
	Readings []sensor.Reading `json:"readings"`
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.readings(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if readings == nil {
		readings = []sensor.Reading{}
	}
	writeJSON(w, http.StatusOK, readingsResponse{Count: len(readings), Readings: readings})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	readings, err := s.readings(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, samplelog.Summarize(readings))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	st := s.mon.Status()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTMLChart(w, s.mon.Log().Recent(s.window), st.Modality, st.MaxRange); err != nil {
		s.logger.Warn("graph render failed", "error", err)
	}
}

func (s *Server) handleGraphPNG(w http.ResponseWriter, r *http.Request) {
	st := s.mon.Status()
	w.Header().Set("Content-Type", "image/png")
	if err := renderPNGChart(w, s.mon.Log().Recent(s.window), st.Modality, st.MaxRange); err != nil {
		s.logger.Warn("png render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	init, err := encodeEnvelope("status", s.mon.Status())
	if err != nil {
		http.Error(w, "encode status", http.StatusInternalServerError)
		return
	}
	s.hub.serveWS(w, r, init)
}

// readings returns the log contents, limited to the last ?seconds=N when set.
func (s *Server) readings(r *http.Request) ([]sensor.Reading, error) {
	raw := r.URL.Query().Get("seconds")
	if raw == "" {
		return s.mon.Log().All(), nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return nil, fmt.Errorf("invalid seconds %q", raw)
	}
	return s.mon.Log().Recent(time.Duration(secs * float64(time.Second))), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package server serves a recorded instruction trace over HTTP, so that the
// navigation engine can read it remotely.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/tracenav/server/web"
	"github.com/sarchlab/tracenav/tracing"
)

var log = logrus.WithField("component", "server")

// A TraceStore is a trace that the server can expose.
type TraceStore interface {
	tracing.TraceReader
	Span(ctx context.Context) (tracing.TimeRange, int, error)
}

// Server exposes a TraceStore over HTTP.
type Server struct {
	store           TraceStore
	addr            string
	profileDuration time.Duration
	serveAssets     bool

	httpServer *http.Server
	listener   net.Listener
}

// New creates a server of the store.
func New(store TraceStore) *Server {
	return &Server{
		store:           store,
		addr:            "localhost:3001",
		profileDuration: time.Second,
		serveAssets:     true,
	}
}

// WithAddress sets the address to listen on. Use port 0 to pick a random
// port.
func (s *Server) WithAddress(addr string) *Server {
	s.addr = addr
	return s
}

// WithProfileDuration sets how long the CPU is sampled by /api/profile.
func (s *Server) WithProfileDuration(d time.Duration) *Server {
	s.profileDuration = d
	return s
}

// WithoutAssets stops the server from serving the static pages.
func (s *Server) WithoutAssets() *Server {
	s.serveAssets = false
	return s
}

// Handler returns the router of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/overview", s.overview).Methods(http.MethodGet)
	api.HandleFunc("/trace", s.trace).Methods(http.MethodGet)
	api.HandleFunc("/span", s.span).Methods(http.MethodGet)
	api.HandleFunc("/resource", s.listResources).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.collectProfile).Methods(http.MethodGet)

	if s.serveAssets {
		r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))
	}

	return r
}

// Start listens on the configured address and serves in the background. It
// returns the URL of the server.
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", err
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := "http://" + listener.Addr().String()
	log.Infof("Serving trace on %s", url)

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server stopped")
		}
	}()

	return url, nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

type badRequestError struct {
	param string
	err   error
}

func (e badRequestError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %v", e.param, e.err)
}

func floatParam(r *http.Request, name string) (float64, error) {
	v, err := strconv.ParseFloat(r.FormValue(name), 64)
	if err != nil {
		return 0, badRequestError{param: name, err: err}
	}

	return v, nil
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	numSamples, err := strconv.Atoi(r.FormValue("num_samples"))
	if err == nil && numSamples <= 0 {
		err = fmt.Errorf("%d is not positive", numSamples)
	}

	if err != nil {
		s.fail(w, r, badRequestError{param: "num_samples", err: err})
		return
	}

	buckets, err := s.store.Overview(r.Context(), numSamples)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, r, buckets)
}

func (s *Server) trace(w http.ResponseWriter, r *http.Request) {
	start, err := floatParam(r, "start")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	end, err := floatParam(r, "end")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	timeRange := tracing.NewTimeRange(start, end)

	insts, err := s.store.Detail(r.Context(), timeRange.Start, timeRange.End)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, r, insts)
}

type spanRsp struct {
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
	NumInstructions int     `json:"num_instructions"`
}

func (s *Server) span(w http.ResponseWriter, r *http.Request) {
	span, n, err := s.store.Span(r.Context())
	if errors.Is(err, tracing.ErrEmptyTrace) {
		s.respond(w, r, spanRsp{})
		return
	}

	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, r, spanRsp{
		StartTime:       span.Start,
		EndTime:         span.End,
		NumInstructions: n,
	})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	if err != nil {
		log.WithError(err).WithField("path", r.URL.Path).
			Warn("Failed to write response")
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var badRequest badRequestError
	if errors.As(err, &badRequest) {
		status = http.StatusBadRequest
	}

	log.WithError(err).WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"status": status,
	}).Warn("Request failed")

	http.Error(w, err.Error(), status)
}

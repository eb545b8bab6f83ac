package apiServer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/i5heu/ouroboros-vault/pkg/auth"
	"github.com/i5heu/ouroboros-vault/pkg/storage"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxBodyBytes = 64 << 20
	shutdownTimeout     = 10 * time.Second
	requestIDHeader     = "X-Request-Id"
	apiKeyHeader        = "ApiKey"
)

type Server struct {
	mux          *http.ServeMux
	db           *storage.FileDatabase
	log          *logrus.Logger
	keys         auth.KeySet
	maxBodyBytes int64
}

type Option func(*Server)

// New creates the HTTP layer of db. Without WithKeySet every management
// request is rejected.
func New(db *storage.FileDatabase, opts ...Option) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		db:           db,
		log:          logrus.New(),
		keys:         auth.NewStaticKeySet(),
		maxBodyBytes: defaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{vault}/{entryKey...}", s.handleGet)
	s.mux.HandleFunc("GET /manage/{vault}", s.requireKey(s.handleList))
	s.mux.HandleFunc("GET /manage/{vault}/{entryKey...}", s.requireKey(s.handleGet))
	s.mux.HandleFunc("POST /manage/{vault}/{entryKey...}", s.requireKey(s.handleRegister))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	} else {
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)

	allowedHeaders := r.Header.Get("Access-Control-Request-Headers")
	if allowedHeaders == "" {
		allowedHeaders = "Content-Type, Accept, " + apiKeyHeader
	}
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type, Content-Length, "+requestIDHeader)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.mux.ServeHTTP(rec, r)

	entry := s.log.WithFields(logrus.Fields{
		"requestId": requestID,
		"method":    r.Method,
		"path":      r.URL.Path,
		"status":    rec.status,
		"duration":  time.Since(start).String(),
	})
	if rec.status >= http.StatusInternalServerError {
		entry.Warn("request failed")
	} else {
		entry.Debug("request")
	}
}

// ListenAndServe serves on addr until ctx is cancelled and then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

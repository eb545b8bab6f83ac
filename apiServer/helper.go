package apiServer

import (
	"encoding/json"
	"net/http"

	"github.com/i5heu/ouroboros-vault/pkg/auth"
	"github.com/sirupsen/logrus"
)

// writeJSON encodes payload before writing the header, so an encoding
// failure is answered with 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).Error("failed to encode response")
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.log.WithError(err).Debug("failed to write response")
	}
}

// writeStatus answers with an empty body.
func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithKeySet(keys auth.KeySet) Option {
	return func(s *Server) {
		if keys != nil {
			s.keys = keys
		}
	}
}

// WithMaxBodySize limits the size of upload bodies.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

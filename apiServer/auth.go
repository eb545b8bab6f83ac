package apiServer

import (
	"errors"
	"net/http"

	"github.com/i5heu/ouroboros-vault/pkg/auth"
)

// requireKey rejects requests whose ApiKey header is not in the key set with
// 403. A key set that cannot be consulted yields 500.
func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := auth.Check(r.Context(), s.keys, r.Header.Get(apiKeyHeader))
		switch {
		case err == nil:
			next(w, r)
		case errors.Is(err, auth.ErrAuthRejected):
			s.log.WithField("path", r.URL.Path).Info("api key rejected")
			writeStatus(w, http.StatusForbidden)
		default:
			s.log.WithError(err).Error("api key lookup failed")
			writeStatus(w, http.StatusInternalServerError)
		}
	}
}

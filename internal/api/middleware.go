package api

import (
	"net/http"

	"github.com/lecternapp/lectern-server/internal/http/response"
	"github.com/lecternapp/lectern-server/internal/ratelimit"
)

// Fix runs and scans are heavyweight; a modest per-client budget keeps a
// misbehaving client from queueing storage work.
const (
	apiRequestsPerSecond = 10
	apiBurst             = 20
)

// rateLimit throttles requests per remote address.
func (s *Server) rateLimit(limiter *ratelimit.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				response.Error(w, http.StatusTooManyRequests, "rate limit exceeded", s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

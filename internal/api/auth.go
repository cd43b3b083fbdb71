package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mistops/guestgate/internal/logging"
)

// BearerAuth guards the API with a static bearer token when one is
// configured. With an empty token the middleware is a no-op; the
// console is then expected to sit behind an authenticating proxy.
//
// Health probes, readiness and metrics stay reachable either way so
// orchestration keeps working.
func BearerAuth(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			logging.APILog("warn", "rejected request with bad bearer token from %s", getClientIP(r))
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

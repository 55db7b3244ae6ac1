package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Cors adds CORS headers for the configured origins. Other cross-origin
// requests get no CORS headers and are left to the browser to block.
// Every OPTIONS request is answered here with 204.
func Cors(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
				if allowed[origin] {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-Id")
					w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				} else {
					log.Tracef("CORS: origin not allowed for path [%s] and origin [%s]", r.URL.Path, origin)
				}
			}

			// OPTIONS never reaches the handlers, preflight or not
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

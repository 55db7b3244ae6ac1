package middleware

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// DrainAndCloseRequest reads up to maxDrainBytes of whatever the handler left
// of the request body and closes it. A larger leftover is not read, and the
// server will not reuse that connection.
func DrainAndCloseRequest(maxDrainBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil || r.Body == http.NoBody {
				return
			}

			drained, _ := io.CopyN(io.Discard, r.Body, maxDrainBytes)
			if drained == maxDrainBytes {
				log.Tracef("request body of %s %s left undrained past %d bytes", r.Method, r.URL.Path, maxDrainBytes)
			}
			_ = r.Body.Close()
		})
	}
}

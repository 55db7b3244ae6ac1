package session

import (
	"net/http"

	"github.com/2beens/logingate/internal/telemetry/tracing"
	"github.com/2beens/logingate/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// Middleware attaches a session to every request, creating one when the
// cookie is missing or stale, and refreshes the session cookie.
func Middleware(manager *Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.session")
			defer span.End()

			sess, err := manager.Resolve(ctx, manager.SessionID(r))
			if err != nil {
				log.Errorf("resolve session: %s", err)
				span.SetStatus(codes.Error, err.Error())
				pkg.WriteJSON(w, http.StatusInternalServerError, map[string]any{
					"success": false,
					"error":   "session store unavailable",
				})
				return
			}

			span.SetStatus(codes.Ok, "session-ok")
			http.SetCookie(w, manager.Cookie(sess))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
		})
	}
}

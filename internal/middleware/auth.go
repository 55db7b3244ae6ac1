package middleware

import (
	"net/http"
	"path"

	"github.com/2beens/logingate/internal/session"
	"github.com/2beens/logingate/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// AuthMiddlewareHandler guards the pages that need an authenticated session.
// It must run after the session middleware.
type AuthMiddlewareHandler struct {
	protectedPaths map[string]bool
	redirectTo     string
}

func NewAuthMiddlewareHandler(protectedPaths []string) *AuthMiddlewareHandler {
	paths := make(map[string]bool, len(protectedPaths))
	for _, p := range protectedPaths {
		paths[normalizePath(p)] = true
	}
	return &AuthMiddlewareHandler{
		protectedPaths: paths,
		redirectTo:     "/",
	}
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.protectedPaths[normalizePath(r.URL.Path)] {
				next.ServeHTTP(w, r)
				return
			}

			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			sess, ok := session.FromContext(r.Context())
			if !ok || !sess.Authenticated {
				log.Tracef("[auth middleware] not logged in => %s", r.URL.Path)
				span.SetStatus(codes.Error, "not-logged")
				http.Redirect(w, r, h.redirectTo, http.StatusFound)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}

// normalizePath maps "/mensaje/", "/mensaje/." and "//mensaje" to "/mensaje".
func normalizePath(p string) string {
	return path.Clean("/" + p)
}

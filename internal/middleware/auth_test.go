package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/logingate/internal/session"

	"github.com/stretchr/testify/assert"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	authMiddleware := NewAuthMiddlewareHandler([]string{"/mensaje"})

	testCases := []struct {
		name               string
		path               string
		session            *session.Session
		expectedStatusCode int
		expectNextCalled   bool
	}{
		{
			name:               "UnprotectedPathNoSession",
			path:               "/check-auth",
			expectedStatusCode: http.StatusOK,
			expectNextCalled:   true,
		},
		{
			name:               "UnprotectedPathAnonymous",
			path:               "/",
			session:            &session.Session{ID: "sid"},
			expectedStatusCode: http.StatusOK,
			expectNextCalled:   true,
		},
		{
			name:               "ProtectedPathNoSession",
			path:               "/mensaje",
			expectedStatusCode: http.StatusFound,
		},
		{
			name:               "ProtectedPathAnonymous",
			path:               "/mensaje",
			session:            &session.Session{ID: "sid"},
			expectedStatusCode: http.StatusFound,
		},
		{
			name:               "ProtectedPathTrailingSlash",
			path:               "/mensaje/",
			session:            &session.Session{ID: "sid"},
			expectedStatusCode: http.StatusFound,
		},
		{
			name:               "ProtectedPathDotSegment",
			path:               "/mensaje/.",
			session:            &session.Session{ID: "sid"},
			expectedStatusCode: http.StatusFound,
		},
		{
			name:               "ProtectedPathDoubleSlashWithQuery",
			path:               "//mensaje?x=1",
			session:            &session.Session{ID: "sid"},
			expectedStatusCode: http.StatusFound,
		},
		{
			name:               "ProtectedPathPrefixOnly",
			path:               "/mensajes",
			session:            &session.Session{ID: "sid"},
			expectedStatusCode: http.StatusOK,
			expectNextCalled:   true,
		},
		{
			name:               "ProtectedPathAuthenticated",
			path:               "/mensaje",
			session:            &session.Session{ID: "sid", Authenticated: true},
			expectedStatusCode: http.StatusOK,
			expectNextCalled:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nextCalled := false
			handler := authMiddleware.AuthCheck()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.session != nil {
				req = req.WithContext(session.NewContext(req.Context(), tc.session))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.Equal(t, tc.expectNextCalled, nextCalled)
			if tc.expectedStatusCode == http.StatusFound {
				assert.Equal(t, "/", rr.Header().Get("Location"))
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/mensaje", normalizePath("/mensaje"))
	assert.Equal(t, "/mensaje", normalizePath("/mensaje/"))
	assert.Equal(t, "/mensaje", normalizePath("mensaje"))
	assert.Equal(t, "/mensaje", normalizePath("/a/../mensaje"))
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/", normalizePath("/"))
}

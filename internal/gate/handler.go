package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/logingate/internal/session"
	"github.com/2beens/logingate/internal/telemetry/metrics"
	"github.com/2beens/logingate/internal/telemetry/tracing"
	"github.com/2beens/logingate/internal/users"
	"github.com/2beens/logingate/internal/validation"
	"github.com/2beens/logingate/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// MaxBodyBytes caps the login and registration request bodies.
const MaxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

type cookieSource interface {
	ExpiredCookie() *http.Cookie
}

type Handler struct {
	service *Service
	cookies cookieSource
	metrics *metrics.Manager
}

func NewHandler(service *Service, cookies cookieSource, metrics *metrics.Manager) *Handler {
	return &Handler{
		service: service,
		cookies: cookies,
		metrics: metrics,
	}
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// decodeBody reads a JSON body, or a form body when the request says so.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fromForm func(form url.Values)) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: %s", errMalformedBody, err)
		}
		fromForm(r.PostForm)
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", errMalformedBody, err)
	}
	return nil
}

func requestSession(r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		log.Errorf("%s %s: no session in request context", r.Method, r.URL.Path)
		return nil, false
	}
	return sess, true
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.login")
	defer span.End()

	sess, ok := requestSession(r)
	if !ok {
		h.metrics.CounterLoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		span.SetStatus(codes.Error, "no-session")
		pkg.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal server error"})
		return
	}

	req := &loginRequest{}
	if err := decodeBody(w, r, req, func(form url.Values) {
		req.User = form.Get("user")
		req.Password = form.Get("password")
	}); err != nil {
		log.Debugf("login: %s", err)
		span.SetStatus(codes.Error, "malformed-body")
		pkg.WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": errMalformedBody.Error()})
		return
	}

	if err := validation.Login(req.User, req.Password); err != nil {
		log.Tracef("login rejected: %s", err)
		h.metrics.CounterLoginAttempts.WithLabelValues(metrics.LoginFailure).Inc()
		span.SetStatus(codes.Ok, "missing-credentials")
		pkg.WriteJSON(w, http.StatusNonAuthoritativeInfo, map[string]any{"success": false})
		return
	}

	loggedIn, err := h.service.Login(ctx, sess, req.User, req.Password)
	if err != nil {
		log.Errorf("login [%s]: %s", req.User, err)
		h.metrics.CounterLoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		span.SetStatus(codes.Error, "login-error")
		pkg.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal server error"})
		return
	}

	if !loggedIn {
		log.Debugf("login failed, wrong credentials for [%s]", req.User)
		h.metrics.CounterLoginAttempts.WithLabelValues(metrics.LoginFailure).Inc()
		span.SetStatus(codes.Ok, "wrong-credentials")
		pkg.WriteJSON(w, http.StatusNonAuthoritativeInfo, map[string]any{"success": false})
		return
	}

	log.Infof("user [%s] logged in", req.User)
	h.metrics.CounterLoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
	span.SetStatus(codes.Ok, "logged-in")
	pkg.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.register")
	defer span.End()

	req := &registerRequest{}
	if err := decodeBody(w, r, req, func(form url.Values) {
		req.Name = form.Get("name")
		req.PhoneNumber = form.Get("phoneNumber")
		req.Email = form.Get("email")
		req.Password = form.Get("password")
	}); err != nil {
		log.Debugf("register: %s", err)
		h.metrics.CounterRegistrations.WithLabelValues(metrics.RegistrationInvalid).Inc()
		span.SetStatus(codes.Error, "malformed-body")
		pkg.WriteJSON(w, http.StatusBadRequest, map[string]any{"create": false, "error": errMalformedBody.Error()})
		return
	}

	if err := validation.Registration(req.Name, req.PhoneNumber, req.Email, req.Password); err != nil {
		log.Debugf("register rejected, [%s]: %s", req.Name, err)
		h.metrics.CounterRegistrations.WithLabelValues(metrics.RegistrationInvalid).Inc()
		span.SetStatus(codes.Ok, "invalid-input")
		pkg.WriteJSON(w, http.StatusBadRequest, map[string]any{"create": false, "error": err.Error()})
		return
	}

	created := h.service.Register(ctx, &users.User{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if !created {
		h.metrics.CounterRegistrations.WithLabelValues(metrics.RegistrationRejected).Inc()
		span.SetStatus(codes.Ok, "not-created")
		pkg.WriteJSON(w, http.StatusNonAuthoritativeInfo, map[string]any{"create": false})
		return
	}

	log.Infof("new user registered: [%s]", req.Name)
	h.metrics.CounterRegistrations.WithLabelValues(metrics.RegistrationCreated).Inc()
	span.SetStatus(codes.Ok, "created")
	pkg.WriteJSON(w, http.StatusOK, map[string]any{"create": true})
}

func (h *Handler) HandleCheckAuth(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	authenticated := ok && h.service.CheckAuth(sess)
	pkg.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": authenticated})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.logout")
	defer span.End()

	sess, ok := requestSession(r)
	if !ok {
		span.SetStatus(codes.Error, "no-session")
		pkg.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal server error"})
		return
	}

	if err := h.service.Logout(ctx, sess); err != nil {
		log.Errorf("logout: %s", err)
		span.SetStatus(codes.Error, "logout-error")
		pkg.WriteJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal server error"})
		return
	}

	http.SetCookie(w, h.cookies.ExpiredCookie())
	span.SetStatus(codes.Ok, "logged-out")
	pkg.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

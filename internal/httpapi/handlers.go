package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"time"
	"unicode/utf8"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/users"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
)

// Error details returned by the auth endpoints.
const (
	detailBadLogin        = "Incorrect email or password"
	detailLoginFieldsJSON = "email and password required"
	detailLoginFieldsForm = "username and password required"
	detailRefreshRequired = "refresh_token required"
	detailInvalidRefresh  = "Invalid refresh token"
	detailNotRefresh      = "Not a refresh token"
	detailMalformed       = "Malformed token"
	detailRefreshReused   = "Refresh token expired or already used"
	detailTooManyAttempts = "Too many login attempts"
	detailInternal        = "Internal server error"
	detailRegisterFields  = "valid email and a 6 to 128 character password required"
	detailEmailTaken      = "Email already registered"
	detailInvalidUserID   = "Invalid user id"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 128
)

const (
	readinessCheckTimeout  = 2 * time.Second
	unavailableRetryAfterS = 1
)

// Handler serves the /api/v1 endpoints.
type Handler struct {
	engine   *goSession.Engine
	maxBody  int64
	checks   map[string]ReadinessCheck
	logger   *slog.Logger
	cooldown time.Duration

	registrar Registrar
	hasher    PasswordHasher
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /auth/register with {"email", "password"}. It answers 201
// with the new user, or 409 when the email is taken.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil || !validRegistration(req) {
		writeDetail(w, http.StatusUnprocessableEntity, detailRegisterFields)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.serverError(w, r, "register hash", err)
		return
	}

	p, err := h.registrar.Create(r.Context(), req.Email, hash)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, p)
	case errors.Is(err, users.ErrEmailTaken):
		writeDetail(w, http.StatusConflict, detailEmailTaken)
	default:
		h.serverError(w, r, "register", err)
	}
}

func validRegistration(req loginRequest) bool {
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email || addr.Name != "" {
		return false
	}
	n := utf8.RuneCountInString(req.Password)
	return n >= minPasswordLen && n <= maxPasswordLen
}

// Login handles POST /auth/login with form fields username and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, detailLoginFieldsForm)
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusBadRequest, detailLoginFieldsForm)
		return
	}
	h.authenticate(w, r, username, password)
}

// LoginJSON handles POST /auth/login_json with {"email", "password"}.
func (h *Handler) LoginJSON(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil || req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, detailLoginFieldsJSON)
		return
	}
	h.authenticate(w, r, req.Email, req.Password)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, identifier, password string) {
	pair, err := h.engine.Authenticate(r.Context(), identifier, password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pair)
	case errors.Is(err, goSession.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, detailBadLogin)
	case errors.Is(err, goSession.ErrLoginRateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(h.cooldown.Seconds()))))
		writeDetail(w, http.StatusTooManyRequests, detailTooManyAttempts)
	default:
		h.serverError(w, r, "login", err)
	}
}

// Refresh handles POST /auth/refresh with {"refresh_token"}.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil || req.RefreshToken == "" {
		writeDetail(w, http.StatusBadRequest, detailRefreshRequired)
		return
	}

	pair, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pair)
	case errors.Is(err, goSession.ErrWrongTokenType):
		writeDetail(w, http.StatusUnauthorized, detailNotRefresh)
	case errors.Is(err, goSession.ErrMissingClaims):
		writeDetail(w, http.StatusUnauthorized, detailMalformed)
	case errors.Is(err, goSession.ErrInvalidToken):
		writeDetail(w, http.StatusUnauthorized, detailInvalidRefresh)
	case errors.Is(err, goSession.ErrTokenReuseOrExpired):
		writeDetail(w, http.StatusUnauthorized, detailRefreshReused)
	case errors.Is(err, goSession.ErrPrincipalNotFound):
		writeDetail(w, http.StatusUnauthorized, middleware.DetailUserNotFound)
	default:
		h.serverError(w, r, "refresh", err)
	}
}

// Logout handles POST /auth/logout. The body is optional and the response is always
// 204: a client must be able to discard its tokens whatever state the server is in.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decodeJSON(w, r, h.maxBody, &req)

	if outcome := h.engine.Logout(r.Context(), req.RefreshToken); outcome == goSession.LogoutStoreError {
		h.logger.WarnContext(r.Context(), "logout left refresh entry in place", slog.String("outcome", outcome.String()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, p)
}

// User handles GET /users/{userID} for the user itself or an admin. A missing user
// is reported as 404 before access is checked.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, detailInvalidUserID)
		return
	}

	target, err := h.engine.Principal(r.Context(), strconv.FormatInt(id, 10))
	switch {
	case errors.Is(err, goSession.ErrPrincipalNotFound):
		writeDetail(w, http.StatusNotFound, middleware.DetailUserNotFound)
		return
	case err != nil:
		h.serverError(w, r, "user lookup", err)
		return
	}

	caller, _ := middleware.PrincipalFromContext(r.Context())
	if !middleware.AllowSelfOrAdmin(caller, target.ID) {
		writeDetail(w, http.StatusForbidden, middleware.DetailForbidden)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// AdminPing handles GET /admin/ping.
func (h *Handler) AdminPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Live handles GET /health and /health/live.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type componentStatus struct {
	OK        bool    `json:"ok"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type readiness struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Ready handles GET /health/ready. It pings the refresh store and every configured
// check; any failure reports "degraded" with 503.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
	defer cancel()

	out := readiness{Status: "ok", Components: make(map[string]componentStatus, len(h.checks)+1)}

	latency, err := h.engine.Ping(ctx)
	out.Components["redis"] = component(latency, err)

	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		out.Components[name] = component(time.Since(start), err)
	}

	status := http.StatusOK
	for _, c := range out.Components {
		if !c.OK {
			out.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, out)
}

func component(latency time.Duration, err error) componentStatus {
	c := componentStatus{
		OK:        err == nil,
		LatencyMS: math.Round(float64(latency.Microseconds())/10) / 100,
	}
	if err != nil {
		c.Error = err.Error()
	}
	return c
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if goSession.IsRetryable(err) {
		h.logger.WarnContext(r.Context(), op+" backend unavailable", slog.Any("error", err))
		w.Header().Set("Retry-After", strconv.Itoa(unavailableRetryAfterS))
		writeDetail(w, http.StatusServiceUnavailable, middleware.DetailServiceUnavailable)
		return
	}
	h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	writeDetail(w, http.StatusInternalServerError, detailInternal)
}

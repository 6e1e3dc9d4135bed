package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/roofing-lead-agent/internal/http/middleware"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

const dashboardSubject = "dashboard"

// DashboardAuthHandler exchanges the shared dashboard password for an admin token.
type DashboardAuthHandler struct {
	password  string
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// NewDashboardAuthHandler creates the login handler. password may be plain
// text or a bcrypt hash.
func NewDashboardAuthHandler(password, jwtSecret string, tokenTTL time.Duration, logger *logging.Logger) *DashboardAuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &DashboardAuthHandler{
		password:  password,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// LoginRequest is the body of POST /api/auth.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is returned for every login attempt that parses.
type LoginResponse struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token,omitempty"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Login handles POST /api/auth.
func (h *DashboardAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.password == "" || h.jwtSecret == "" {
		h.writeJSON(w, http.StatusServiceUnavailable, LoginResponse{Error: "dashboard login is not configured"})
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, LoginResponse{Error: "Invalid JSON in request body"})
		return
	}
	if !h.passwordMatches(req.Password) {
		h.logger.Warn("dashboard login failed", "remote_ip", r.RemoteAddr)
		h.writeJSON(w, http.StatusUnauthorized, LoginResponse{Error: "invalid password"})
		return
	}

	now := h.now()
	token, err := middleware.IssueAdminToken(h.jwtSecret, dashboardSubject, h.tokenTTL, now)
	if err != nil {
		h.logger.Error("failed to sign dashboard token", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, LoginResponse{Error: "failed to issue token"})
		return
	}
	h.logger.Info("dashboard login succeeded", "remote_ip", r.RemoteAddr)
	h.writeJSON(w, http.StatusOK, LoginResponse{
		Authenticated: true,
		Token:         token,
		ExpiresAt:     now.Add(h.tokenTTL).UTC().Format(time.RFC3339),
	})
}

func (h *DashboardAuthHandler) passwordMatches(candidate string) bool {
	if isBcryptHash(h.password) {
		return bcrypt.CompareHashAndPassword([]byte(h.password), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(h.password), []byte(candidate)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func (h *DashboardAuthHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

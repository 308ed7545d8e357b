package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/services"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"github.com/taakra/engine/pkg/utils"
)

const (
	oauthStateCookie = "oauthState"
	oauthStateTTL    = 10 * time.Minute
)

type AuthHandler struct {
	svc       services.AuthService
	cookies   auth.Cookies
	google    auth.OAuthProvider
	clientURL string
	debug     bool
}

// NewAuthHandler builds the auth endpoints. google may be nil when OAuth is not configured.
func NewAuthHandler(svc services.AuthService, cookies auth.Cookies, google auth.OAuthProvider, clientURL string, debug bool) *AuthHandler {
	return &AuthHandler{
		svc:       svc,
		cookies:   cookies,
		google:    google,
		clientURL: strings.TrimRight(clientURL, "/"),
		debug:     debug,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	res, err := h.svc.Register(r.Context(), services.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	h.cookies.Set(w, res.Tokens)
	writeJSON(w, http.StatusCreated, types.AuthResponse{
		Success:     true,
		Message:     "User registered successfully",
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	h.cookies.Set(w, res.Tokens)
	writeJSON(w, http.StatusOK, types.AuthResponse{
		Success:     true,
		Message:     "Login successful",
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), mustUser(r).ID)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{Success: true, User: u})
}

// Refresh reads the refresh token from its cookie, falling back to the JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req types.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, h.debug)
			return
		}
		token = req.RefreshToken
	}

	res, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	h.cookies.Set(w, res.Tokens)
	writeJSON(w, http.StatusOK, types.TokenResponse{
		Success:     true,
		Message:     "Token refreshed successfully",
		AccessToken: res.Tokens.AccessToken,
	})
}

// Logout only clears cookies; issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, r, appErr.New(appErr.CodeUnavailable, "Google OAuth is not configured"), h.debug)
		return
	}
	state, err := utils.RandomToken(16)
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInternal, "generate oauth state failed"), h.debug)
		return
	}
	h.cookies.SetState(w, oauthStateCookie, state, oauthStateTTL)
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	failure := h.clientURL + "/auth/oauth-error"
	if h.google == nil {
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}

	q := r.URL.Query()
	c, err := r.Cookie(oauthStateCookie)
	h.cookies.ClearState(w, oauthStateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		logger.L().Warn("oauth state mismatch")
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		logger.L().Warn("oauth exchange failed", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}
	res, err := h.svc.OAuthLogin(r.Context(), profile)
	if err != nil {
		logger.L().Warn("oauth login failed", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}

	h.cookies.Set(w, res.Tokens)
	target := h.clientURL + "/auth/oauth-success?token=" + url.QueryEscape(res.Tokens.AccessToken)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

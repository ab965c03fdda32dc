package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/auth"
	"github.com/sakif/practice-tracker/internal/model"
	"github.com/sakif/practice-tracker/internal/service"
)

const stateCookie = "oauth_state"

// Authenticator is the account logic the auth endpoints need.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	LoginGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// GitHubExchanger runs the GitHub OAuth flow.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves /auth endpoints.
type AuthHandler struct {
	auth   Authenticator
	github GitHubExchanger // nil when GitHub sign-in is not configured
	logger *slog.Logger
}

func NewAuthHandler(authenticator Authenticator, github GitHubExchanger, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authenticator,
		github: github,
		logger: logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by every successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// HandleLogin handles POST /auth/login. Unknown emails are registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeMsg(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: res.Token})
}

// HandleMe handles GET /auth/me and returns the caller's account without its
// password hash.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeMsg(w, http.StatusUnauthorized, auth.MsgNoToken)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects to GitHub's consent page. A random state value
// goes in a short-lived cookie and is checked on the callback.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow and returns {token}.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeMsg(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeMsg(w, http.StatusUnauthorized, "GitHub authorization denied")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeMsg(w, http.StatusBadRequest, "Missing OAuth code")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeMsg(w, http.StatusUnauthorized, "GitHub authentication failed")
		return
	}

	res, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user authenticated via GitHub",
		slog.String("userID", res.User.ID),
		slog.String("login", ghUser.Login),
	)
	writeJSON(w, http.StatusOK, TokenResponse{Token: res.Token})
}

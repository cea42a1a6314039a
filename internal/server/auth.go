package server

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/store"
)

const (
	authorizeURL = "https://accounts.spotify.com/authorize"
	tokenURL     = "https://accounts.spotify.com/api/token"

	// SessionCookie carries the session id issued after a successful login.
	SessionCookie = "mixtape_session"

	stateTTL = 10 * time.Minute
)

// Scopes are the catalog permissions the upload path needs.
var Scopes = []string{"user-read-private", "playlist-modify-public", "playlist-modify-private"}

// NewOAuthConfig builds the OAuth2 config for the catalog's accounts service.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authorizeURL,
			TokenURL: tokenURL,
		},
	}
}

// ProfileSource fetches the authenticated user's profile.
type ProfileSource interface {
	Me(ctx context.Context, bearer string) (*catalog.User, error)
}

// AuthHandler implements the OAuth2 authorization code flow for web sessions.
// Implements the Handler interface for registration with a Router.
type AuthHandler struct {
	config   *oauth2.Config
	profiles ProfileSource
	sessions store.SessionStore
	logger   *log.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewAuthHandler creates the login/callback handler. Each issued state value
// is accepted once, within its TTL, for CSRF protection.
func NewAuthHandler(config *oauth2.Config, profiles ProfileSource, sessions store.SessionStore, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthHandler{
		config:   config,
		profiles: profiles,
		sessions: sessions,
		logger:   logger.With("component", "auth"),
		states:   map[string]time.Time{},
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/auth/login", "/auth/callback"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login issues a fresh state value and redirects to the authorization page.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()

	h.mu.Lock()
	for value, issued := range h.states {
		if time.Since(issued) > stateTTL {
			delete(h.states, value)
		}
	}
	h.states[state] = time.Now()
	h.mu.Unlock()

	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

// consumeState reports whether the state value was issued here and is still
// fresh. A value is consumed on first use.
func (h *AuthHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	issued, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(issued) <= stateTTL
}

// callback exchanges the authorization code, fetches the user's profile, and
// persists the session behind a cookie.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if !h.consumeState(r.URL.Query().Get("state")) {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.logger.Warn("authorization denied", "error", errParam, "description", errDesc)
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	profile, err := h.profiles.Me(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Error("profile fetch failed", "error", err)
		http.Error(w, "Profile fetch failed", http.StatusBadGateway)
		return
	}

	session := &models.Session{
		SessionID:    shared.GenerateID(),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		UserID:       profile.ID,
		Profile: models.UserProfile{
			ID:          profile.ID,
			DisplayName: profile.DisplayName,
			Email:       profile.Email,
			Country:     profile.Country,
			Product:     profile.Product,
		},
	}
	if err := h.sessions.Set(session); err != nil {
		h.logger.Error("session save failed", "error", err)
		http.Error(w, "Session save failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.SessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Signed In</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Signed In</h1>
        <p>Welcome, %s. You can start building playlists.</p>
    </div>
</body>
</html>
`, html.EscapeString(profile.DisplayName))
}

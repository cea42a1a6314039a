package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/store"
)

const searchLimit = 10

// ChatService runs one conversation turn.
type ChatService interface {
	Turn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error)
}

// Verifier cross-checks songs against the catalog.
type Verifier interface {
	VerifyAll(ctx context.Context, songs []models.Song, market string) ([]models.VerifiedSong, error)
}

// CatalogAPI is the slice of the catalog client the JSON endpoints need.
type CatalogAPI interface {
	SearchTracks(ctx context.Context, query string, limit int, market string) []catalog.Track
	CreatePlaylist(ctx context.Context, bearer, userID, name, description string) (string, string, error)
	AddTracks(ctx context.Context, bearer, playlistID string, uris []string) error
}

// API serves the JSON endpoints of the playlist service.
// Implements the Handler interface for registration with a Router.
type API struct {
	chat     ChatService
	verifier Verifier
	catalog  CatalogAPI
	sessions store.SessionStore
	market   string
	logger   *log.Logger
}

// APIOpts contains construction options for the API handler.
type APIOpts struct {
	Chat     ChatService
	Verifier Verifier
	Catalog  CatalogAPI
	Sessions store.SessionStore
	Market   string
	Logger   *log.Logger
}

// NewAPI wires the JSON endpoint handler.
func NewAPI(opts APIOpts) *API {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Sessions == nil {
		opts.Sessions = store.NewMemorySessionStore()
	}
	return &API{
		chat:     opts.Chat,
		verifier: opts.Verifier,
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		market:   opts.Market,
		logger:   opts.Logger.With("component", "api"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (a *API) Routes() []string {
	return []string{"/api/chat", "/api/verify", "/api/search", "/api/upload"}
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/api/chat":
		a.handleChat(w, r)
	case "/api/verify":
		a.handleVerify(w, r)
	case "/api/search":
		a.handleSearch(w, r)
	case "/api/upload":
		a.handleUpload(w, r)
	default:
		http.NotFound(w, r)
	}
}

// session resolves the request's session cookie. Expired sessions read as
// absent so the client re-authenticates.
func (a *API) session(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, fmt.Errorf("%w: no session cookie", shared.ErrNotAuthenticated)
	}

	session, err := a.sessions.Get(cookie.Value)
	if err != nil {
		return nil, err
	}
	if session.Expired() {
		return nil, fmt.Errorf("%w: session expired", shared.ErrTokenExpired)
	}
	return session, nil
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	req.Market = a.market
	if session, err := a.session(r); err == nil {
		req.SessionID = session.SessionID
		req.Market = session.Market(a.market)
	}

	resp, err := a.chat.Turn(r.Context(), req)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyRequest struct {
	Songs []models.Song `json:"songs"`
}

type verifyResponse struct {
	Songs []models.VerifiedSong `json:"songs"`
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	session, err := a.session(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	verified, err := a.verifier.VerifyAll(r.Context(), req.Songs, session.Market(a.market))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Songs: verified})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type searchResponse struct {
	Tracks []catalog.Track `json:"tracks"`
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if req.Query == "" {
		writeError(w, a.logger, fmt.Errorf("%w: query", shared.ErrMissingArgument))
		return
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = searchLimit
	}

	market := a.market
	if session, err := a.session(r); err == nil {
		market = session.Market(a.market)
	}

	tracks := a.catalog.SearchTracks(r.Context(), req.Query, req.Limit, market)
	writeJSON(w, http.StatusOK, searchResponse{Tracks: tracks})
}

type uploadRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Songs       []models.VerifiedSong `json:"songs"`
}

type uploadResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Added int    `json:"added"`
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	session, err := a.session(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if req.Name == "" {
		writeError(w, a.logger, fmt.Errorf("%w: name", shared.ErrMissingArgument))
		return
	}

	var uris []string
	for _, song := range req.Songs {
		if song.Verified && song.CatalogID != "" {
			uris = append(uris, "spotify:track:"+song.CatalogID)
		}
	}
	// Nothing verified means nothing to upload; fail before any remote call.
	if len(uris) == 0 {
		writeError(w, a.logger, shared.ErrNoVerifiedSongs)
		return
	}

	id, url, err := a.catalog.CreatePlaylist(r.Context(), session.AccessToken, session.UserID, req.Name, req.Description)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	if err := a.catalog.AddTracks(r.Context(), session.AccessToken, id, uris); err != nil {
		writeError(w, a.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{ID: id, URL: url, Added: len(uris)})
}

package intents

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Handler phases. Phase 1 handlers need no prior generation step; Phase 2
// handlers need the artists of the Phase-1 playlist.
const (
	PhaseContext = 1
	PhaseRefine  = 2
)

// CatalogSource is the slice of the catalog client handlers draw from.
type CatalogSource interface {
	PopularTracks(ctx context.Context, limit int, kind, market string) []catalog.Track
	PopularArtists(ctx context.Context, limit int, market string) []catalog.Artist
	TopTracksForArtists(ctx context.Context, names []string, perArtist int, market string) []catalog.Track
	PlaylistTracks(ctx context.Context, id string, limit int, market string) []catalog.Track
}

// CacheSource is the slice of the curator playlist cache handlers draw from.
type CacheSource interface {
	Get() []models.CuratorPlaylist
}

// Sources aggregates the external data sources available to handlers.
type Sources struct {
	Catalog CatalogSource
	Cache   CacheSource
}

// HandlerInput carries the per-turn data a handler may need.
type HandlerInput struct {
	Intent        models.Intent
	Message       string
	Playlist      *models.Playlist
	Phase1Artists []string
	Market        string
	SessionID     string
}

// Handler routes one intent type to a context-building function.
//
// Phase is plain data: the dispatcher partitions handlers on it, and adding
// a later phase is a data change, not a polymorphism change.
type Handler struct {
	Type  models.IntentType
	Phase int
	Run   func(ctx context.Context, sources Sources, input HandlerInput) (string, error)
}

// Registry holds the intent handlers in registration order.
type Registry struct {
	handlers []Handler
	logger   *log.Logger
}

// NewRegistry builds a registry with the default handler for every intent type.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	registry := &Registry{logger: logger.With("component", "intents")}

	registry.Register(Handler{Type: models.IntentPopularTracks, Phase: PhaseContext, Run: popularTracksHandler})
	registry.Register(Handler{Type: models.IntentPopularArtists, Phase: PhaseContext, Run: popularArtistsHandler})
	registry.Register(Handler{Type: models.IntentGenreMoodPlaylists, Phase: PhaseContext, Run: genreMoodHandler})
	registry.Register(Handler{Type: models.IntentPopularTracksFromArtists, Phase: PhaseRefine, Run: topTracksFromArtistsHandler})

	return registry
}

// Register appends a handler. Registration order determines the order
// context contributions are concatenated in.
func (r *Registry) Register(handler Handler) {
	r.handlers = append(r.handlers, handler)
}

// HasPhase reports whether any detected intent maps to a handler of the
// given phase.
func (r *Registry) HasPhase(intents []models.Intent, phase int) bool {
	for _, handler := range r.handlers {
		if handler.Phase != phase {
			continue
		}
		for _, intent := range intents {
			if intent.Type == handler.Type {
				return true
			}
		}
	}
	return false
}

// Dispatch runs all handlers of the given phase whose intent was detected,
// concurrently, and concatenates their non-empty context strings in
// registration order.
//
// A failing handler loses only its own contribution; siblings proceed.
func (r *Registry) Dispatch(ctx context.Context, phase int, intents []models.Intent, sources Sources, input HandlerInput) string {
	type slot struct {
		handler Handler
		intent  models.Intent
	}

	slots := []slot{}
	for _, handler := range r.handlers {
		if handler.Phase != phase {
			continue
		}
		for _, intent := range intents {
			if intent.Type == handler.Type {
				slots = append(slots, slot{handler: handler, intent: intent})
				break
			}
		}
	}
	if len(slots) == 0 {
		return ""
	}

	contexts := make([]string, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()

			handlerInput := input
			handlerInput.Intent = s.intent

			block, err := s.handler.Run(ctx, sources, handlerInput)
			if err != nil {
				r.logger.Warn("intent handler failed", "intent", s.intent.Type, "error", err)
				return
			}
			contexts[i] = block
		}()
	}
	wg.Wait()

	nonEmpty := []string{}
	for _, block := range contexts {
		if strings.TrimSpace(block) != "" {
			nonEmpty = append(nonEmpty, block)
		}
	}

	return strings.Join(nonEmpty, "\n")
}

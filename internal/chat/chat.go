// package chat drives a single conversation turn: classify the message,
// gather catalog context, generate or refine the playlist with the model,
// and account for tokens across every call in the turn.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/intents"
	"github.com/desertthunder/mixtape/internal/llm"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/store"
)

// MaxSongs caps how many songs a single generation may return.
const MaxSongs = 20

const generatorInstructions = `You are a music curator building a playlist through conversation.

Rules:
- Respond with a short conversational reply and a list of 0 to 20 songs.
- Every song entry needs both a title and an artist.
- Only list songs you are confident actually exist. If the request cannot be
  satisfied with real songs, return an empty song list and say so in the reply.
- When catalog context is provided, treat it as inspiration from the music
  catalog, not as the user's own words.
- When a current playlist is provided, your song list replaces it entirely,
  so carry over the songs the user has not asked to change.`

var generatorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"reply": map[string]any{"type": "string"},
		"songs": map[string]any{
			"type":     "array",
			"maxItems": MaxSongs,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"song":   map[string]any{"type": "string"},
					"artist": map[string]any{"type": "string"},
				},
				"required":             []string{"song", "artist"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"reply", "songs"},
	"additionalProperties": false,
}

// IntentClassifier is the slice of the classifier the orchestrator needs.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, playlist *models.Playlist, recentTurns []string) []models.Intent
}

// TurnRequest is one inbound chat message plus its conversation state.
type TurnRequest struct {
	Message         string           `json:"message"`
	Playlist        *models.Playlist `json:"currentPlaylist,omitempty"`
	SessionID       string           `json:"sessionId,omitempty"`
	ContinuationRef string           `json:"continuationRef,omitempty"`
	Model           string           `json:"model,omitempty"`
	RecentTurns     []string         `json:"recentTurns,omitempty"`
	Market          string           `json:"-"`
}

// TurnUsage aggregates token counters and cost across the calls of one turn.
type TurnUsage struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
	CostUSD          float64 `json:"costUsd"`
	Phases           int     `json:"phases"`
}

// TurnResponse is the outcome of one chat turn.
type TurnResponse struct {
	Reply           string        `json:"reply"`
	Songs           []models.Song `json:"songs"`
	ContinuationRef string        `json:"continuationRef,omitempty"`
	Usage           TurnUsage     `json:"usage"`
	Model           string        `json:"model"`
}

// Orchestrator runs the turn state machine over the classifier, the intent
// registry, and the model.
type Orchestrator struct {
	caller     llm.Caller
	classifier IntentClassifier
	registry   *intents.Registry
	sources    intents.Sources
	threads    store.ThreadStore
	model      string
	logger     *log.Logger
}

// Opts contains construction options for an Orchestrator.
type Opts struct {
	Caller     llm.Caller
	Classifier IntentClassifier
	Registry   *intents.Registry
	Sources    intents.Sources
	Threads    store.ThreadStore
	Model      string
	Logger     *log.Logger
}

// NewOrchestrator wires an Orchestrator. A nil classifier gets the default
// one built on the same caller; a nil thread store gets an in-memory one.
func NewOrchestrator(opts Opts) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Classifier == nil {
		opts.Classifier = intents.NewClassifier(opts.Caller, intents.DefaultConfidenceThreshold, opts.Logger)
	}
	if opts.Registry == nil {
		opts.Registry = intents.NewRegistry(opts.Logger)
	}
	if opts.Threads == nil {
		opts.Threads = store.NewMemoryThreadStore()
	}
	if opts.Model == "" {
		opts.Model = llm.DefaultModel
	}
	return &Orchestrator{
		caller:     opts.Caller,
		classifier: opts.Classifier,
		registry:   opts.Registry,
		sources:    opts.Sources,
		threads:    opts.Threads,
		model:      opts.Model,
		logger:     opts.Logger.With("component", "chat"),
	}
}

// generation is the model's structured reply to a generate or refine call.
type generation struct {
	Reply string        `json:"reply"`
	Songs []models.Song `json:"songs"`
}

// Turn runs the full state machine for one message.
//
// Classification and handler failures degrade to less context; a failed
// model call or malformed structured output aborts the turn with no state
// written to the thread store.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message", shared.ErrMissingArgument)
	}
	if req.Playlist != nil {
		for i, song := range req.Playlist.Songs {
			if err := song.Validate(); err != nil {
				return nil, fmt.Errorf("playlist song %d: %w", i, err)
			}
		}
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	threadKey := req.SessionID
	if threadKey == "" {
		threadKey = store.DefaultThreadKey
	}

	continuation := req.ContinuationRef
	if continuation == "" {
		stored, err := o.threads.Get(threadKey)
		if err != nil {
			o.logger.Warn("thread lookup failed", "key", threadKey, "error", err)
		}
		continuation = stored
	}

	detected := o.classifier.Classify(ctx, req.Message, req.Playlist, req.RecentTurns)
	hasPhase1 := o.registry.HasPhase(detected, intents.PhaseContext)
	hasPhase2 := o.registry.HasPhase(detected, intents.PhaseRefine)

	input := intents.HandlerInput{
		Message:   req.Message,
		Playlist:  req.Playlist,
		Market:    req.Market,
		SessionID: req.SessionID,
	}

	var (
		phases []llm.Usage
		reply  string
		songs  []models.Song
	)
	if req.Playlist != nil {
		songs = req.Playlist.Songs
	}

	// Refining an existing playlist with only phase-2 intents reuses the
	// current songs as the phase-2 seed instead of regenerating them.
	skipGenerate := hasPhase2 && !hasPhase1 && len(songs) > 0

	if !skipGenerate {
		var context1 string
		if hasPhase1 {
			context1 = o.registry.Dispatch(ctx, intents.PhaseContext, detected, o.sources, input)
		}

		result, resp, err := o.generate(ctx, model, context1, songs, req.Message, continuation)
		if err != nil {
			return nil, err
		}
		reply = result.Reply
		songs = result.Songs
		phases = append(phases, resp.Usage)
		continuation = resp.ResponseID
	}

	if hasPhase2 {
		input2 := input
		input2.Phase1Artists = models.UniqueArtists(songs)

		context2 := o.registry.Dispatch(ctx, intents.PhaseRefine, detected, o.sources, input2)
		if context2 != "" {
			result, resp, err := o.generate(ctx, model, context2, songs, req.Message, continuation)
			if err != nil {
				return nil, err
			}
			reply = result.Reply
			songs = result.Songs
			phases = append(phases, resp.Usage)
			continuation = resp.ResponseID
		} else if skipGenerate {
			// The skip was a bet that phase 2 would contribute context.
			// It found nothing, so fall back to a plain generation.
			result, resp, err := o.generate(ctx, model, "", songs, req.Message, continuation)
			if err != nil {
				return nil, err
			}
			reply = result.Reply
			songs = result.Songs
			phases = append(phases, resp.Usage)
			continuation = resp.ResponseID
		}
	}

	if continuation != "" {
		if err := o.threads.Set(threadKey, continuation); err != nil {
			o.logger.Warn("thread save failed", "key", threadKey, "error", err)
		}
	}

	total := llm.SumUsage(phases)
	return &TurnResponse{
		Reply:           reply,
		Songs:           songs,
		ContinuationRef: continuation,
		Usage: TurnUsage{
			PromptTokens:     total.PromptTokens,
			CompletionTokens: total.CompletionTokens,
			TotalTokens:      total.TotalTokens,
			CostUSD:          llm.CostUSD(model, phases),
			Phases:           len(phases),
		},
		Model: model,
	}, nil
}

// generate runs one generate-or-refine call. The two differ only in which
// context block and prior song list get interpolated, so they share this
// path, parameterized by the extra context and the continuation reference.
func (o *Orchestrator) generate(ctx context.Context, model, extra string, prior []models.Song, message, previous string) (*generation, *llm.Response, error) {
	var input strings.Builder
	if extra != "" {
		input.WriteString(extra)
		input.WriteString("\n\n")
	}
	if len(prior) > 0 {
		fmt.Fprintf(&input, "Current playlist (%d songs):\n", len(prior))
		for _, song := range prior {
			fmt.Fprintf(&input, "- %s\n", song.Display())
		}
		input.WriteString("\n")
	}
	fmt.Fprintf(&input, "Message: %s", message)

	resp, err := o.caller.Submit(ctx, llm.Request{
		Model:              model,
		Instructions:       generatorInstructions,
		Input:              input.String(),
		SchemaName:         "playlist_turn",
		Schema:             generatorSchema,
		PreviousResponseID: previous,
	})
	if err != nil {
		return nil, nil, err
	}

	var result generation
	if err := json.Unmarshal([]byte(resp.Text), &result); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrMalformedOutput, err)
	}

	kept := make([]models.Song, 0, len(result.Songs))
	for _, raw := range result.Songs {
		song, err := models.NewSong(raw.Song, raw.Artist)
		if err != nil {
			o.logger.Warn("discarding incomplete song", "song", raw.Song, "artist", raw.Artist)
			continue
		}
		if len(kept) == MaxSongs {
			break
		}
		kept = append(kept, song)
	}
	result.Songs = kept

	return &result, resp, nil
}

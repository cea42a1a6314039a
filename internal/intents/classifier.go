// package intents classifies chat messages into typed intents and routes
// each detected intent to a phase-partitioned handler.
package intents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/llm"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// DefaultConfidenceThreshold drops intents the classifier is unsure about.
const DefaultConfidenceThreshold = 0.5

const classifierInstructions = `You classify chat messages from a playlist-building conversation into zero or more intents.

Intent types:
- popular_tracks: the user explicitly asks for currently popular, trending, hit, chart, or top SONGS. Requires an explicit popularity signal word ("popular", "trending", "hit", "top", "charts"). Mentioning a genre or artist alone is NOT enough.
- popular_artists: the user explicitly asks for popular or trending ARTISTS, with the same signal-word requirement.
- popular_tracks_from_artists: the user asks for the popular or best-known songs OF specific artists (named or implied by the playlist being built).
- genre_mood_playlists: the user names a genre, mood, activity, or decade ("jazz", "workout", "studying", "80s"). This intent does NOT require a popularity signal word.

Examples:
- "give me today's top hits" -> popular_tracks
- "who is trending right now" -> popular_artists
- "popular songs by Metallica" -> popular_tracks_from_artists
- "make me a chill study playlist" -> genre_mood_playlists
- "add some Radiohead" -> NO intent (artist mention without signal word)
- "I like music" -> NO intent

A message can carry several intents at once. Report a confidence between 0 and 1 for each. Prefer precision: when in doubt, report nothing.`

var classifierSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intents": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"intentType": map[string]any{
						"type": "string",
						"enum": []string{
							string(models.IntentPopularTracks),
							string(models.IntentPopularArtists),
							string(models.IntentPopularTracksFromArtists),
							string(models.IntentGenreMoodPlaylists),
						},
					},
					"confidence": map[string]any{"type": "number"},
				},
				"required":             []string{"intentType", "confidence"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"intents"},
	"additionalProperties": false,
}

// Classifier maps free-text chat messages to typed intents via the model.
type Classifier struct {
	caller    llm.Caller
	threshold float64
	logger    *log.Logger
}

// NewClassifier creates a Classifier. A non-positive threshold uses the default.
func NewClassifier(caller llm.Caller, threshold float64, logger *log.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Classifier{caller: caller, threshold: threshold, logger: logger.With("component", "classifier")}
}

type classifierResult struct {
	Intents []models.Intent `json:"intents"`
}

// Classify returns the confidence-passing intents for a message.
//
// Classification is advisory: any failure, including malformed model output,
// yields an empty slice rather than an error.
func (c *Classifier) Classify(ctx context.Context, message string, playlist *models.Playlist, recentTurns []string) []models.Intent {
	if strings.TrimSpace(message) == "" {
		return nil
	}

	var input strings.Builder
	if len(recentTurns) > 0 {
		input.WriteString("Recent conversation:\n")
		for _, turn := range recentTurns {
			fmt.Fprintf(&input, "- %s\n", turn)
		}
		input.WriteString("\n")
	}
	if playlist != nil && len(playlist.Songs) > 0 {
		fmt.Fprintf(&input, "Current playlist (%d songs):\n", len(playlist.Songs))
		for _, song := range playlist.Songs {
			fmt.Fprintf(&input, "- %s\n", song.Display())
		}
		input.WriteString("\n")
	}
	fmt.Fprintf(&input, "Message: %s", message)

	resp, err := c.caller.Submit(ctx, llm.Request{
		Instructions: classifierInstructions,
		Input:        input.String(),
		SchemaName:   "intent_classification",
		Schema:       classifierSchema,
	})
	if err != nil {
		c.logger.Warn("classification failed, treating as no intents", "error", err)
		return nil
	}

	var result classifierResult
	if err := json.Unmarshal([]byte(resp.Text), &result); err != nil {
		c.logger.Warn("classifier output unparsable, treating as no intents", "error", err)
		return nil
	}

	intents := []models.Intent{}
	for _, intent := range result.Intents {
		if !intent.Type.Valid() {
			c.logger.Warn("dropping unknown intent type", "type", intent.Type)
			continue
		}
		if intent.Confidence < c.threshold {
			continue
		}
		intents = append(intents, intent)
	}

	return intents
}

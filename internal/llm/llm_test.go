package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/shared"
)

func respondWith(t *testing.T, text string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "resp_123",
			"model": "gpt-4o-mini",
			"output": []map[string]any{
				{"type": "message", "content": []map[string]any{{"type": "output_text", "text": text}}},
			},
			"usage": map[string]any{
				"input_tokens":         100,
				"input_tokens_details": map[string]any{"cached_tokens": 20},
				"output_tokens":        50,
				"total_tokens":         150,
			},
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Opts{APIKey: "test_key", BaseURL: ts.URL})
}

func TestSubmit(t *testing.T) {
	t.Run("Parses Text Usage And ResponseID", func(t *testing.T) {
		client := newTestClient(t, respondWith(t, `{"reply":"ok"}`))

		resp, err := client.Submit(context.Background(), Request{Input: "hello"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.Text != `{"reply":"ok"}` {
			t.Errorf("unexpected text: %s", resp.Text)
		}
		if resp.ResponseID != "resp_123" {
			t.Errorf("expected response id resp_123, got %s", resp.ResponseID)
		}
		if resp.Usage.PromptTokens != 100 || resp.Usage.CompletionTokens != 50 || resp.Usage.CachedTokens != 20 {
			t.Errorf("unexpected usage: %+v", resp.Usage)
		}
	})

	t.Run("Forwards Continuation Reference", func(t *testing.T) {
		var gotPrevious string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			gotPrevious, _ = body["previous_response_id"].(string)
			respondWith(t, `{}`)(w, r)
		})
		client := newTestClient(t, handler)

		_, err := client.Submit(context.Background(), Request{Input: "again", PreviousResponseID: "resp_prev"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPrevious != "resp_prev" {
			t.Errorf("expected previous_response_id resp_prev, got %q", gotPrevious)
		}
	})

	t.Run("Empty Output Is Malformed", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"id": "resp_1", "output": []any{}})
		})
		client := newTestClient(t, handler)

		_, err := client.Submit(context.Background(), Request{Input: "hi"})
		if !errors.Is(err, shared.ErrMalformedOutput) {
			t.Errorf("expected ErrMalformedOutput, got %v", err)
		}
	})

	t.Run("Missing Key Fails Fast", func(t *testing.T) {
		client := NewClient(Opts{})
		_, err := client.Submit(context.Background(), Request{Input: "hi"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Non JSON Error Body Maps To Status", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
		})
		client := newTestClient(t, handler)

		_, err := client.Submit(context.Background(), Request{Input: "hi"})
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed, got %v", err)
		}
		if errors.Is(err, shared.ErrMalformedOutput) {
			t.Errorf("proxy error page should not read as malformed output: %v", err)
		}
	})

	t.Run("Provider Error Message Survives", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "invalid schema"},
			})
		})
		client := newTestClient(t, handler)

		_, err := client.Submit(context.Background(), Request{Input: "hi"})
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "invalid schema") {
			t.Errorf("expected the provider message in the error, got %v", err)
		}
	})

	t.Run("Rate Limit Maps To Sentinel", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{})
		})
		client := newTestClient(t, handler)

		_, err := client.Submit(context.Background(), Request{Input: "hi"})
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})
}

func TestUsage(t *testing.T) {
	t.Run("SumUsage", func(t *testing.T) {
		total := SumUsage([]Usage{
			{PromptTokens: 100, CompletionTokens: 50, CachedTokens: 0, TotalTokens: 150},
			{PromptTokens: 80, CompletionTokens: 40, CachedTokens: 20, TotalTokens: 120},
		})

		if total.PromptTokens != 180 || total.CompletionTokens != 90 || total.CachedTokens != 20 || total.TotalTokens != 270 {
			t.Errorf("unexpected totals: %+v", total)
		}
	})
}

func TestCostUSD(t *testing.T) {
	t.Run("Two Phase Aggregation", func(t *testing.T) {
		phases := []Usage{
			{PromptTokens: 100, CompletionTokens: 50, CachedTokens: 0},
			{PromptTokens: 80, CompletionTokens: 40, CachedTokens: 20},
		}

		pricing := PricingFor("gpt-4o-mini")
		want := 160.0/1e6*pricing.Input + 20.0/1e6*pricing.Cached + 90.0/1e6*pricing.Output

		got := CostUSD("gpt-4o-mini", phases)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("expected cost %v, got %v", want, got)
		}

		// Components are combined before rates apply, so the result also
		// equals the single-phase cost of the summed usage.
		combined := []Usage{SumUsage(phases)}
		if math.Abs(CostUSD("gpt-4o-mini", combined)-got) > 1e-12 {
			t.Error("aggregated cost must equal cost of combined components")
		}
	})

	t.Run("Unknown Model Uses Default Rates", func(t *testing.T) {
		phases := []Usage{{PromptTokens: 1000, CompletionTokens: 1000}}
		if CostUSD("mystery-model", phases) != CostUSD(DefaultModel, phases) {
			t.Error("unknown model should fall back to default pricing")
		}
	})

	t.Run("Cached Never Exceeds Prompt", func(t *testing.T) {
		phases := []Usage{{PromptTokens: 10, CachedTokens: 50}}
		pricing := PricingFor(DefaultModel)
		want := 50.0 / 1e6 * pricing.Cached
		if got := CostUSD(DefaultModel, phases); math.Abs(got-want) > 1e-12 {
			t.Errorf("expected clamped uncached component, got %v", got)
		}
	})
}

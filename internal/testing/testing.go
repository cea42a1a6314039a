// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/llm"
	"github.com/desertthunder/mixtape/internal/models"
)

// MockCaller is a scripted test double for [llm.Caller].
//
// Each Submit call consumes the next scripted response; Requests records
// every request for assertions.
type MockCaller struct {
	mu        sync.Mutex
	Responses []*llm.Response
	Errs      []error
	Requests  []llm.Request
	calls     int
}

func (m *MockCaller) Submit(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	call := m.calls
	m.calls++

	if call < len(m.Errs) && m.Errs[call] != nil {
		return nil, m.Errs[call]
	}
	if call < len(m.Responses) {
		return m.Responses[call], nil
	}
	return nil, errors.New("mock caller: no scripted response")
}

// Calls returns how many times Submit was invoked.
func (m *MockCaller) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockCatalogSource is a canned test double for the handler data sources.
type MockCatalogSource struct {
	Popular    []catalog.Track
	Artists    []catalog.Artist
	TopTracks  []catalog.Track
	Sampled    []catalog.Track
	SearchHits []catalog.Track

	mu              sync.Mutex
	TopTracksCalled [][]string
}

func (m *MockCatalogSource) PopularTracks(context.Context, int, string, string) []catalog.Track {
	return m.Popular
}

func (m *MockCatalogSource) PopularArtists(context.Context, int, string) []catalog.Artist {
	return m.Artists
}

func (m *MockCatalogSource) TopTracksForArtists(_ context.Context, names []string, _ int, _ string) []catalog.Track {
	m.mu.Lock()
	m.TopTracksCalled = append(m.TopTracksCalled, names)
	m.mu.Unlock()
	return m.TopTracks
}

func (m *MockCatalogSource) PlaylistTracks(context.Context, string, int, string) []catalog.Track {
	return m.Sampled
}

func (m *MockCatalogSource) SearchTracks(context.Context, string, int, string) []catalog.Track {
	return m.SearchHits
}

// MockCacheSource serves a fixed curator playlist snapshot.
type MockCacheSource struct {
	Playlists []models.CuratorPlaylist
}

func (m *MockCacheSource) Get() []models.CuratorPlaylist {
	return m.Playlists
}

// FWriter is an io.Writer that fails every write.
type FWriter struct{}

func (f *FWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// Track builds a catalog track credited to the given artists.
func Track(id, name string, artists ...string) catalog.Track {
	t := catalog.Track{ID: id, Name: name}
	for _, artist := range artists {
		t.Artists = append(t.Artists, catalog.Artist{ID: "id_" + artist, Name: artist})
	}
	return t
}

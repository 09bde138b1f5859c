package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resourcesync/internal/config"
	"git.home.luguber.info/inful/resourcesync/internal/crosswalk"
	"git.home.luguber.info/inful/resourcesync/internal/metrics"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
	"git.home.luguber.info/inful/resourcesync/internal/server/handlers"
	"git.home.luguber.info/inful/resourcesync/internal/state"
)

func newServer(t *testing.T, listen string) *Server {
	t.Helper()
	cfg, err := config.FromValues(config.Values{
		config.KeyBaseURL:      "https://example.org/sync",
		config.KeyDir:          "/srv/rs",
		config.KeyServerListen: listen,
	})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/resourcesync.xml", []byte("<urlset>description</urlset>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/srv/rs/resourcelist.xml", []byte("<urlset/>"), 0o644))
	store := state.New(fs, "/srv/rs")

	repo := repository.NewMemory()
	repo.Put(&repository.Item{ID: 1, Handle: "123/45", LastModified: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Metadata: []repository.MetadataValue{{Schema: "dc", Element: "title", Value: "A paper"}}})
	repo.Put(&repository.Item{ID: 2, LastModified: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Metadata: []repository.MetadataValue{{Schema: "dc", Element: "title", Value: "No handle"}}})

	reg := prom.NewRegistry()
	metrics.NewPrometheusRecorder(reg).IncRunOutcome("update", metrics.OutcomeSuccess)

	return New(cfg, Options{
		Documents: handlers.NewDocumentHandlers(store),
		Metadata:  handlers.NewMetadataHandlers(cfg, repo, crosswalk.NewRegistry()),
		Health:    handlers.NewHealthHandlers(store),
		Metrics:   metrics.HTTPHandler(reg),
	})
}

func TestRoutes(t *testing.T) {
	h := newServer(t, ":0").Handler()

	cases := []struct {
		target string
		status int
		body   string
	}{
		{"/", http.StatusOK, "description"},
		{"/resourcelist.xml", http.StatusOK, "<urlset/>"},
		{"/123/45?format=oai_dc", http.StatusOK, "A paper"},
		{"/resource/123/45/oai_dc", http.StatusOK, "A paper"},
		{"/item/2?format=oai_dc", http.StatusOK, "No handle"},
		{"/resource/item/2/oai_dc", http.StatusOK, "No handle"},
		{"/resource/123", http.StatusNotFound, ""},
		{"/123/45", http.StatusNotFound, ""},
		{"/metrics", http.StatusOK, "resourcesync_run_outcomes_total"},
		{"/healthz", http.StatusOK, `"status": "healthy"`},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Contains(t, rec.Body.String(), tc.body)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resourcelist.xml", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "read-only")
}

func TestStartStop(t *testing.T) {
	s := newServer(t, "127.0.0.1:0")
	require.NoError(t, s.Start(t.Context()))
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/resourcelist.xml")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "<urlset/>", string(body))

	require.NoError(t, s.Stop(t.Context()))
}

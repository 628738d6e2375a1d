package presentation_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/ff6-dataset/internal/presentation"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

func testPages() []dataset.Page {
	return []dataset.Page{
		{
			Title: "Edgar_Roni_Figaro",
			URL:   "https://finalfantasy.fandom.com/wiki/Edgar_Roni_Figaro",
			Sections: []dataset.Section{
				{Heading: "Introduction", Content: "Edgar is the king of Figaro.", Versions: []dataset.VersionTag{dataset.VersionAll}},
				{Heading: "Gameplay", Content: "Edgar uses Tools such as the Chainsaw.", Versions: []dataset.VersionTag{dataset.VersionSNES, dataset.VersionGBA}},
			},
		},
		{
			Title:    "Kefka's_Tower",
			URL:      "https://finalfantasy.fandom.com/wiki/Kefka%27s_Tower",
			Sections: []dataset.Section{{Heading: "Introduction", Content: "The final dungeon.", Versions: []dataset.VersionTag{dataset.VersionAll}}},
		},
	}
}

func testPairs() []dataset.TrainingPair {
	return []dataset.TrainingPair{
		dataset.NewTrainingPair("Who is Edgar Roni Figaro in Final Fantasy VI?", "Edgar is the king of Figaro."),
		dataset.NewTrainingPair("Tell me about Edgar's tools.", "Edgar uses Tools."),
		dataset.NewTrainingPair("What is Kefka's Tower?", "The final dungeon."),
	}
}

type fixture struct {
	dir     string
	handler http.Handler
}

func newFixture(t *testing.T, snapshots storage.SnapshotStore) *fixture {
	t.Helper()
	dir := t.TempDir()
	pagesPath := filepath.Join(dir, "cleaned.json")
	pairsPath := filepath.Join(dir, "pairs.jsonl")
	reviewDir := filepath.Join(dir, "review")

	require.NoError(t, dataset.SavePages(pagesPath, testPages()))
	require.NoError(t, dataset.SavePairs(pairsPath, testPairs()))

	store := presentation.NewFileStorage(pagesPath, pairsPath, reviewDir)
	api := presentation.NewAPI(presentation.NewRenderer(nil), store, snapshots, &presentation.APIConfig{EnableCORS: true})
	return &fixture{dir: dir, handler: api.Handler()}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_Health(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestAPI_ListPages(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/pages")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[presentation.PageListResponse](t, rec)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "Edgar_Roni_Figaro", resp.Pages[0].Title)
	assert.Equal(t, 2, resp.Pages[0].Sections)
}

func TestAPI_GetPage(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
		contains    []string
	}{
		{
			name:        "json by default",
			path:        "/pages/Edgar_Roni_Figaro",
			status:      http.StatusOK,
			contentType: "application/json",
			contains:    []string{`"title": "Edgar_Roni_Figaro"`},
		},
		{
			name:        "spaces and case are ignored",
			path:        "/pages/edgar%20roni%20figaro?format=markdown",
			status:      http.StatusOK,
			contentType: "text/markdown; charset=utf-8",
			contains:    []string{"# Edgar Roni Figaro", "## Gameplay", "_Versions: SNES, GBA_"},
		},
		{
			name:        "plain text",
			path:        "/pages/Kefka's_Tower?format=plain",
			status:      http.StatusOK,
			contentType: "text/plain; charset=utf-8",
			contains:    []string{"Kefka's Tower\n=============", "INTRODUCTION\nThe final dungeon."},
		},
		{
			name:        "html",
			path:        "/pages/Edgar_Roni_Figaro?format=html",
			status:      http.StatusOK,
			contentType: "text/html; charset=utf-8",
			contains: []string{
				"<!DOCTYPE html>",
				"<h1>Edgar Roni Figaro</h1>",
				`<a href="https://finalfantasy.fandom.com/wiki/Edgar_Roni_Figaro">`,
				"<h2>Gameplay</h2><em>Versions: SNES, GBA</em><p>Edgar uses Tools such as the Chainsaw.</p>",
			},
		},
		{
			name:   "unknown page",
			path:   "/pages/Gogo",
			status: http.StatusNotFound,
		},
		{
			name:   "unknown format",
			path:   "/pages/Edgar_Roni_Figaro?format=pdf",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			for _, want := range tt.contains {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestRenderer_HTMLEscapesContent(t *testing.T) {
	page := &dataset.Page{
		Title: "Setzer",
		Sections: []dataset.Section{{
			Heading:  "Trivia",
			Content:  "Setzer owns the <Blackjack>.\n\nHe gambles & wins.",
			Versions: []dataset.VersionTag{dataset.VersionAll},
		}},
	}

	body, err := presentation.NewRenderer(nil).RenderPage(page, presentation.FormatHTML)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "<p>Setzer owns the &lt;Blackjack&gt;.</p><p>He gambles &amp; wins.</p>")
	assert.NotContains(t, out, "<Blackjack>")
	assert.NotContains(t, out, "<em>", "all-version sections carry no version line")
}

func TestAPI_ListPairs(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name      string
		path      string
		total     int
		returned  int
		firstInst string
	}{
		{name: "defaults", path: "/pairs", total: 3, returned: 3, firstInst: testPairs()[0].Instruction},
		{name: "paged", path: "/pairs?limit=1&offset=1", total: 3, returned: 1, firstInst: testPairs()[1].Instruction},
		{name: "offset past end", path: "/pairs?offset=10", total: 3, returned: 0},
		{name: "case insensitive query", path: "/pairs?q=EDGAR", total: 2, returned: 2, firstInst: testPairs()[0].Instruction},
		{name: "query on instruction only", path: "/pairs?q=final%20dungeon", total: 0, returned: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decode[presentation.PairsResponse](t, rec)
			assert.Equal(t, tt.total, resp.Total)
			require.Len(t, resp.Pairs, tt.returned)
			if tt.firstInst != "" {
				assert.Equal(t, tt.firstInst, resp.Pairs[0].Instruction)
			}
		})
	}
}

func TestAPI_Statistics(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/statistics")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[presentation.StatisticsResponse](t, rec)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 3, resp.TotalSections)
	assert.Equal(t, 3, resp.TotalPairs)
	require.NotEmpty(t, resp.TopHeadings)
	assert.Equal(t, dataset.HeadingCount{Heading: "introduction", Count: 2}, resp.TopHeadings[0])
}

func TestAPI_Review(t *testing.T) {
	f := newFixture(t, nil)

	// nothing reviewed yet
	resp := decode[presentation.ReviewResponse](t, f.get(t, "/review"))
	assert.Zero(t, resp.Accepted)
	assert.Nil(t, resp.AcceptRate)

	reviewDir := filepath.Join(f.dir, "review")
	pairs := testPairs()
	require.NoError(t, dataset.SaveReviewed(filepath.Join(reviewDir, dataset.AcceptedFile), []dataset.ReviewedPair{
		{TrainingPair: pairs[0]},
		{TrainingPair: pairs[1]},
		{TrainingPair: pairs[2]},
	}))
	require.NoError(t, dataset.SaveReviewed(filepath.Join(reviewDir, dataset.RejectedFile), []dataset.ReviewedPair{
		{TrainingPair: pairs[1], RejectReason: "too vague"},
	}))

	resp = decode[presentation.ReviewResponse](t, f.get(t, "/review"))
	assert.Equal(t, 3, resp.Accepted)
	assert.Equal(t, 1, resp.Rejected)
	require.NotNil(t, resp.AcceptRate)
	assert.InDelta(t, 75.0, *resp.AcceptRate, 0.001)
	assert.Equal(t, map[string]int{"too vague": 1}, resp.RejectionReasons)
}

func TestAPI_Snapshots(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/snapshots")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	repo := t.TempDir()
	store, err := storage.OpenSnapshotStore(&storage.SnapshotConfig{
		Enabled:     true,
		RepoPath:    repo,
		AuthorName:  "Test",
		AuthorEmail: "test@caiatech.com",
	}, nil)
	require.NoError(t, err)

	path := filepath.Join(repo, "pairs.jsonl")
	require.NoError(t, dataset.SavePairs(path, testPairs()))
	_, err = store.Commit(t.Context(), "generate", "3 pairs", "run-1", path)
	require.NoError(t, err)

	f = newFixture(t, store)
	resp := decode[presentation.SnapshotsResponse](t, f.get(t, "/snapshots?limit=5"))
	require.Len(t, resp.Snapshots, 1)
	assert.Equal(t, "generate", resp.Snapshots[0].Stage)
}

func TestFileStorage_ReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	pairsPath := filepath.Join(dir, "pairs.jsonl")
	store := presentation.NewFileStorage(filepath.Join(dir, "missing.json"), pairsPath, dir)

	pages, err := store.Pages()
	require.NoError(t, err)
	assert.Empty(t, pages)

	require.NoError(t, dataset.SavePairs(pairsPath, testPairs()[:1]))
	pairs, err := store.Pairs()
	require.NoError(t, err)
	assert.Len(t, pairs, 1)

	require.NoError(t, dataset.AppendPairs(pairsPath, testPairs()[1:]))
	// modification times can be coarse
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(pairsPath, later, later))
	pairs, err = store.Pairs()
	require.NoError(t, err)
	assert.Len(t, pairs, 3)
}

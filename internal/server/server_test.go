package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/treescope/pkg/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(os.Stderr)
	logger.SetLevel(log.ErrorLevel)
	srv := New(NewMemoryStore(), config.Default(), logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// scaffold creates a small directory and returns its path.
func scaffold(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, size := range map[string]int{
		"main.go":     4000,
		"util.go":     2000,
		"docs/a.md":   1000,
		"docs/b.md":   500,
	} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// createScan posts a scan and returns its ID.
func createScan(t *testing.T, ts *httptest.Server, path string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"path": path})
	resp, err := http.Post(ts.URL+"/api/scans", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/scans status = %d, want 201", resp.StatusCode)
	}
	var rec ScanRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	return rec.ID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateAndListScans(t *testing.T) {
	ts := newTestServer(t)
	id := createScan(t, ts, scaffold(t))

	resp, err := http.Get(ts.URL + "/api/scans")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var recs []ScanRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != id {
		t.Fatalf("list = %+v, want one record with id %s", recs, id)
	}
	if recs[0].Files != 4 {
		t.Errorf("Files = %d, want 4", recs[0].Files)
	}
}

func TestCreateScanValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing path", `{}`, http.StatusBadRequest},
		{"not json", `nope`, http.StatusBadRequest},
		{"nonexistent path", fmt.Sprintf(`{"path":%q}`, filepath.Join(t.TempDir(), "gone")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/scans", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestLayoutEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := createScan(t, ts, scaffold(t))

	resp, err := http.Get(ts.URL + "/api/scans/" + id + "/layout?zoom=2.2&kind=treemap&width=800&height=600")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var scene struct {
		Kind       string `json:"kind"`
		Tier       string `json:"tier"`
		DepthLimit int    `json:"depth_limit"`
		CacheHit   bool   `json:"cache_hit"`
		Rects      []struct {
			Node int32   `json:"node"`
			W    float64 `json:"w"`
			H    float64 `json:"h"`
		} `json:"rects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scene); err != nil {
		t.Fatal(err)
	}
	if scene.Kind != "treemap" || scene.Tier != "labeled" {
		t.Errorf("kind, tier = %s, %s, want treemap, labeled", scene.Kind, scene.Tier)
	}
	if len(scene.Rects) == 0 {
		t.Error("layout returned no rectangles")
	}
	if scene.CacheHit {
		t.Error("first layout reported a cache hit")
	}

	// The identical request is served from the memo.
	resp2, err := http.Get(ts.URL + "/api/scans/" + id + "/layout?zoom=2.2&kind=treemap&width=800&height=600")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&scene); err != nil {
		t.Fatal(err)
	}
	if !scene.CacheHit {
		t.Error("repeated layout missed the cache")
	}
}

func TestLayoutValidation(t *testing.T) {
	ts := newTestServer(t)
	id := createScan(t, ts, scaffold(t))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"bad kind", "?kind=spiral", http.StatusBadRequest},
		{"bad zoom", "?zoom=abc", http.StatusBadRequest},
		{"unknown root", "?root=9999", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/scans/" + id + "/layout" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	resp, err := http.Get(ts.URL + "/api/scans/no-such-scan/layout")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown scan status = %d, want 404", resp.StatusCode)
	}
}

func TestHitEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := createScan(t, ts, scaffold(t))

	resp, err := http.Get(ts.URL + "/api/scans/" + id + "/hit?x=400&y=300&zoom=2.2&width=800&height=600")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var hit struct {
		Hit  bool   `json:"hit"`
		Name string `json:"name"`
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hit); err != nil {
		t.Fatal(err)
	}
	if !hit.Hit {
		t.Fatal("viewport center missed every rectangle")
	}
	if hit.Name == "" || hit.Path == "" {
		t.Errorf("hit = %+v, want populated name and path", hit)
	}

	// A point far outside the scene misses.
	resp2, err := http.Get(ts.URL + "/api/scans/" + id + "/hit?x=-50&y=-50&zoom=2.2&width=800&height=600")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&hit); err != nil {
		t.Fatal(err)
	}
	if hit.Hit {
		t.Error("out-of-scene point reported a hit")
	}
}

func TestSceneSVGEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := createScan(t, ts, scaffold(t))

	resp, err := http.Get(ts.URL + "/api/scans/" + id + "/scene.svg?zoom=1.5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "<svg") {
		t.Error("body is not SVG")
	}
}

func TestDeleteScan(t *testing.T) {
	ts := newTestServer(t)
	id := createScan(t, ts, scaffold(t))

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/scans/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/scans/" + id)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); err == nil {
		t.Error("Get(missing) returned no error")
	}
	if err := s.Put(ctx, &ScanRecord{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, &ScanRecord{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	recs, err := s.List(ctx)
	if err != nil || len(recs) != 2 {
		t.Fatalf("List = (%v, %v), want 2 records", recs, err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "a"); err == nil {
		t.Error("Get after Delete returned no error")
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/nomad/internal/geocache"
	"github.com/pdiddy/nomad/pkg/types"
)

var berlinBBox = types.BoundingBox{South: 52.3382448, North: 52.6755087, West: 13.0883450, East: 13.7611609}

func berlinPlace() types.Place {
	return types.Place{
		DisplayName: "Berlin, Deutschland",
		Lat:         52.5170365,
		Lon:         13.3888599,
		OSMType:     "relation",
		OSMID:       62422,
		BBox:        berlinBBox,
	}
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cache := geocache.New(filepath.Join(t.TempDir(), "cache"))
	t.Cleanup(func() { cache.Close() })
	return &Client{
		HTTP:         &http.Client{Timeout: 5 * time.Second},
		BaseURL:      baseURL,
		UserAgent:    "nomad-test/0.1",
		QueryTimeout: 90,
		Cache:        cache,
	}
}

// --- BuildQuery ---

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(berlinBBox, 90)

	if !strings.HasPrefix(q, "[out:json][timeout:90];") {
		t.Errorf("query settings header wrong: %s", q)
	}
	// Overpass bbox order is south,west,north,east.
	if !strings.Contains(q, "(52.3382448,13.088345,52.6755087,13.7611609)") {
		t.Errorf("bbox missing or misordered: %s", q)
	}
	if !strings.Contains(q, `way["highway"]`) {
		t.Errorf("highway filter missing: %s", q)
	}
	if !strings.Contains(q, ";>;") {
		t.Errorf("node recursion missing: %s", q)
	}
	if !strings.HasSuffix(q, "out;") {
		t.Errorf("output statement missing: %s", q)
	}
}

func TestBuildQueryDefaultTimeout(t *testing.T) {
	q := BuildQuery(berlinBBox, 0)
	if !strings.Contains(q, "[timeout:180]") {
		t.Errorf("default timeout not applied: %s", q)
	}
}

// --- Download ---

func TestDownloadStoresResponse(t *testing.T) {
	const overpassBody = `{"version":0.6,"generator":"Overpass API","elements":[{"type":"node","id":1}]}`

	var gotData, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotData = r.PostForm.Get("data")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, overpassBody)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	path, err := c.Download(context.Background(), berlinPlace())
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if !strings.Contains(gotData, `way["highway"]`) {
		t.Errorf("posted query = %q", gotData)
	}
	if gotUA != "nomad-test/0.1" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(data) != overpassBody {
		t.Errorf("cached body = %s", data)
	}
	if filepath.Dir(path) != c.Cache.Dir() {
		t.Errorf("cached outside cache dir: %s", path)
	}
}

func TestDownloadSkipsWhenCached(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"elements":[]}`)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	first, err := c.Download(context.Background(), berlinPlace())
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Download(context.Background(), berlinPlace())
	if err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
	if first != second {
		t.Errorf("paths differ: %s vs %s", first, second)
	}
}

func TestDownloadRejectsInvalidBBox(t *testing.T) {
	c := testClient(t, "http://unused.invalid")

	place := berlinPlace()
	place.BBox = types.BoundingBox{}
	if _, err := c.Download(context.Background(), place); err == nil {
		t.Fatal("Download() expected error for zero bounding box")
	}
}

func TestDownloadHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	if _, err := c.Download(context.Background(), berlinPlace()); err == nil {
		t.Fatal("Download() expected error for HTTP 400")
	}
}

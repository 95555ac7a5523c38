// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package overpass downloads raw OpenStreetMap data for a place through
// the Overpass API. Acquisition is cache-only: responses land in the
// response cache as-is, nothing is parsed into graphs or geometries.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/nomad/internal/geocache"
	"github.com/pdiddy/nomad/internal/httputil"
	"github.com/pdiddy/nomad/pkg/types"
)

// DefaultBaseURL is the main public Overpass interpreter.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

const defaultQueryTimeout = 180

// streetFilter selects the drivable street network: every highway-tagged
// way except foot and cycle infrastructure.
const streetFilter = `["highway"]["highway"!~"footway|cycleway|path|steps|corridor|pedestrian|bridleway|platform"]`

// Client downloads OSM data from an Overpass instance into the cache.
type Client struct {
	// HTTP is the client used for requests. Overpass queries run long,
	// so its timeout should exceed the server-side QueryTimeout.
	HTTP *http.Client

	// BaseURL is the interpreter endpoint. Tests point this at an
	// httptest server.
	BaseURL string

	// UserAgent identifies this tool.
	UserAgent string

	// QueryTimeout is the server-side timeout in seconds, sent in the
	// Overpass QL settings header.
	QueryTimeout int

	// Cache receives the downloaded responses.
	Cache *geocache.Cache
}

// New returns a client configured from cfg.
func New(cfg types.DownloadConfig, cache *geocache.Cache) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		// Client timeout must outlast the server-side one.
		timeout = time.Duration(queryTimeout+30) * time.Second
	}
	return &Client{
		HTTP:         &http.Client{Timeout: timeout},
		BaseURL:      base,
		UserAgent:    cfg.UserAgent,
		QueryTimeout: queryTimeout,
		Cache:        cache,
	}
}

// BuildQuery returns the Overpass QL query for the street network within
// a bounding box. Overpass bbox order is (south,west,north,east). The
// trailing ">" recurse pulls in the nodes of the matched ways.
func BuildQuery(b types.BoundingBox, queryTimeout int) string {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	bbox := fmt.Sprintf("%g,%g,%g,%g", b.South, b.West, b.North, b.East)
	var q strings.Builder
	fmt.Fprintf(&q, "[out:json][timeout:%d];", queryTimeout)
	fmt.Fprintf(&q, "(way%s(%s);>;);", streetFilter, bbox)
	q.WriteString("out;")
	return q.String()
}

// Download fetches the street network for a resolved place and stores
// the raw response in the cache. It returns the cached file path. A
// place already downloaded (same query, same endpoint) is not fetched
// again.
func (c *Client) Download(ctx context.Context, place types.Place) (string, error) {
	if !place.BBox.Valid() {
		return "", fmt.Errorf("place %s has no usable bounding box", place)
	}

	query := BuildQuery(place.BBox, c.QueryTimeout)

	// The cache key covers endpoint and full query, matching how GET
	// requests are keyed by URL.
	cacheURL := c.BaseURL + "?data=" + url.QueryEscape(query)
	if _, ok := c.Cache.Get(cacheURL); ok {
		log.Debug().Str("place", place.String()).Msg("overpass cache hit")
		return c.Cache.Path(cacheURL), nil
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.UserAgent)

	log.Debug().Str("place", place.String()).Str("query", query).Msg("overpass request")
	start := time.Now()

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return "", fmt.Errorf("Overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Overpass returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading Overpass response: %w", err)
	}

	log.Debug().
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("overpass response")

	path, err := c.Cache.Put(cacheURL, "overpass", body)
	if err != nil {
		return "", fmt.Errorf("caching Overpass response: %w", err)
	}
	return path, nil
}

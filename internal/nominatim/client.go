// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nominatim geocodes free-text locations through the Nominatim
// search API.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/nomad/internal/geocache"
	"github.com/pdiddy/nomad/internal/httputil"
	"github.com/pdiddy/nomad/pkg/types"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoResults indicates Nominatim returned an empty result list for the
// query.
var ErrNoResults = errors.New("no matching place")

// Client queries a Nominatim instance.
type Client struct {
	// HTTP is the client used for requests.
	HTTP *http.Client

	// BaseURL is the instance root, without the /search path. Tests point
	// this at an httptest server.
	BaseURL string

	// UserAgent identifies this tool per the Nominatim usage policy.
	UserAgent string

	// Cache, when set together with UseCache, serves repeated queries
	// from disk and persists fresh responses.
	Cache    *geocache.Cache
	UseCache bool
}

// New returns a client configured from cfg. cache may be nil.
func New(cfg types.GeocodeConfig, cache *geocache.Cache) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		BaseURL:   base,
		UserAgent: cfg.UserAgent,
		Cache:     cache,
		UseCache:  cfg.UseCache,
	}
}

// Geocode resolves a free-text location to its best-matching place.
// Returns ErrNoResults when Nominatim finds nothing.
func (c *Client) Geocode(ctx context.Context, query string) (types.Place, error) {
	return c.search(ctx, query, false)
}

// ResolvePlace is Geocode with polygon geometry requested, so the cached
// response carries the place boundary alongside the bounding box.
func (c *Client) ResolvePlace(ctx context.Context, query string) (types.Place, error) {
	return c.search(ctx, query, true)
}

func (c *Client) search(ctx context.Context, query string, withPolygon bool) (types.Place, error) {
	if query == "" {
		return types.Place{}, fmt.Errorf("empty geocode query")
	}

	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if withPolygon {
		params.Set("polygon_geojson", "1")
	}
	reqURL := c.BaseURL + "/search?" + params.Encode()

	body, err := c.fetch(ctx, reqURL)
	if err != nil {
		return types.Place{}, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return types.Place{}, fmt.Errorf("parsing Nominatim response: %w", err)
	}
	if len(places) == 0 {
		return types.Place{}, ErrNoResults
	}
	return places[0].toPlace()
}

// fetch returns the response body for reqURL, consulting the cache when
// enabled. Cached bodies are stored verbatim, so a cache populated by an
// earlier run (or another tool using the same key scheme) is usable.
func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if c.UseCache && c.Cache != nil {
		if body, ok := c.Cache.Get(reqURL); ok {
			log.Debug().Str("url", reqURL).Msg("nominatim cache hit")
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Nominatim returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Nominatim response: %w", err)
	}

	log.Debug().
		Str("url", reqURL).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("nominatim request")

	if c.UseCache && c.Cache != nil {
		if _, err := c.Cache.Put(reqURL, "nominatim", body); err != nil {
			log.Warn().Err(err).Msg("caching geocode response failed")
		}
	}
	return body, nil
}

// nominatimPlace is the wire form of one search result (format=jsonv2).
// Coordinates arrive as strings; boundingbox is [south, north, west, east].
type nominatimPlace struct {
	PlaceID     int64    `json:"place_id"`
	OSMType     string   `json:"osm_type"`
	OSMID       int64    `json:"osm_id"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

func (p nominatimPlace) toPlace() (types.Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return types.Place{}, fmt.Errorf("parsing latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return types.Place{}, fmt.Errorf("parsing longitude %q: %w", p.Lon, err)
	}

	place := types.Place{
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lon:         lon,
		OSMType:     p.OSMType,
		OSMID:       p.OSMID,
		Category:    p.Category,
		Type:        p.Type,
	}

	if len(p.BoundingBox) == 4 {
		vals := make([]float64, 4)
		for i, s := range p.BoundingBox {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return types.Place{}, fmt.Errorf("parsing boundingbox %q: %w", s, err)
			}
			vals[i] = v
		}
		place.BBox = types.BoundingBox{
			South: vals[0],
			North: vals[1],
			West:  vals[2],
			East:  vals[3],
		}
	}

	return place, nil
}

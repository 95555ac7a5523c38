// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geocache persists raw API responses as JSON files and lets the
// cache commands inspect, search, and prune them. Files are named by the
// SHA-1 of the request URL, so repeating a request finds its cached
// response without any lookup table. A SQLite manifest under index/
// records what was fetched and when; it is advisory only, and a cache
// directory without one remains fully usable.
package geocache

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Scope selects which cached entries an operation touches.
type Scope int

const (
	// ScopeNonEmpty selects entries whose JSON body has content. This is
	// the default for inspect and search: empty responses ([] or {}) are
	// failed lookups, not data.
	ScopeNonEmpty Scope = iota

	// ScopeAll selects every cached entry.
	ScopeAll

	// ScopeEmpty selects only entries whose JSON body is empty.
	ScopeEmpty
)

// Cache is a directory of cached JSON responses.
type Cache struct {
	dir string

	store    *Store
	storeErr error
	opened   bool
}

// New returns a cache rooted at dir. The directory is created on first
// write, not here, so read-only commands can run against a missing cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the cache key for a request URL: the hex SHA-1 of the URL.
func Key(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Path returns the file path a request URL maps to, whether or not it
// is cached yet.
func (c *Cache) Path(rawURL string) string {
	return filepath.Join(c.dir, Key(rawURL)+".json")
}

// Get returns the cached response body for a request URL, if present.
func (c *Cache) Get(rawURL string) ([]byte, bool) {
	data, err := os.ReadFile(c.Path(rawURL))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores a response body for a request URL and records it in the
// manifest. Endpoint names the API that produced the response (e.g.
// "nominatim", "overpass"). A manifest failure is logged but does not
// fail the write; the file is the source of truth.
func (c *Cache) Put(rawURL, endpoint string, body []byte) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	path := c.Path(rawURL)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("writing cache file: %w", err)
	}

	if s := c.manifest(); s != nil {
		rec := Record{
			Key:       Key(rawURL),
			URL:       rawURL,
			Endpoint:  endpoint,
			Path:      path,
			Size:      int64(len(body)),
			FetchedAt: time.Now().UTC(),
		}
		if err := s.Record(rec); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("manifest update failed")
		}
	}

	return path, nil
}

// manifest lazily opens the manifest store. Open failures are remembered
// and logged once.
func (c *Cache) manifest() *Store {
	if !c.opened {
		c.opened = true
		c.store, c.storeErr = OpenStore(c.dir)
		if c.storeErr != nil {
			log.Warn().Err(c.storeErr).Msg("manifest unavailable")
		}
	}
	return c.store
}

// Close releases the manifest database, if one was opened.
func (c *Cache) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Entry is one cached response file.
type Entry struct {
	Path string
	Doc  Document
}

// Render returns the inspect output for the entry: a file_path header
// line followed by one line per top-level scalar field.
func (e Entry) Render() string {
	return fmt.Sprintf("%-12s %s\n", "file_path", e.Path) + e.Contents()
}

// Contents returns the scalar fields of the entry, one "key value" line
// per field. Nested objects and arrays are omitted.
func (e Entry) Contents() string {
	var b strings.Builder
	for _, f := range e.Doc.Fields {
		fmt.Fprintf(&b, "%-12s %s\n", f.Key, f.Value)
	}
	return b.String()
}

// Entries walks the cache directory for *.json files and returns those
// matching the scope. Files that fail to parse as JSON are skipped with a
// warning. The manifest is not consulted.
func (c *Cache) Entries(scope Scope) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == c.dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable cache file")
			return nil
		}

		doc, err := ParseDocument(data)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping invalid cache file")
			return nil
		}

		switch scope {
		case ScopeNonEmpty:
			if doc.Empty {
				return nil
			}
		case ScopeEmpty:
			if !doc.Empty {
				return nil
			}
		}

		entries = append(entries, Entry{Path: path, Doc: doc})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking cache directory: %w", err)
	}
	return entries, nil
}

// Search returns the non-empty entries whose rendered contents match re.
func (c *Cache) Search(re *regexp.Regexp) ([]Entry, error) {
	entries, err := c.Entries(ScopeNonEmpty)
	if err != nil {
		return nil, err
	}

	var matched []Entry
	for _, e := range entries {
		if re.MatchString(e.Contents()) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Remove deletes a cached entry and drops its manifest row.
func (c *Cache) Remove(e Entry) error {
	if err := os.Remove(e.Path); err != nil {
		return fmt.Errorf("deleting %s: %w", e.Path, err)
	}
	if s := c.manifest(); s != nil {
		key := strings.TrimSuffix(filepath.Base(e.Path), ".json")
		if err := s.Forget(key); err != nil {
			log.Warn().Err(err).Str("path", e.Path).Msg("manifest update failed")
		}
	}
	return nil
}

// Field is a top-level scalar field of a cached document, in file order.
type Field struct {
	Key   string
	Value string
}

// Document is the inspectable view of a cached JSON body: its top-level
// scalar fields in the order they appear in the file. For array bodies
// (Nominatim responses) the first element is the document.
type Document struct {
	Fields []Field

	// Empty reports an empty top-level container ([] or {}).
	Empty bool
}

// ParseDocument extracts the inspectable view from a JSON body. Numbers
// keep their source formatting, nested objects and arrays are skipped,
// and null renders as "null".
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Document{}, fmt.Errorf("parsing document: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// A bare scalar has no fields and nothing to inspect.
		return Document{Empty: true}, nil
	}

	switch delim {
	case '{':
		if !dec.More() {
			return Document{Empty: true}, nil
		}
		fields, err := parseObject(dec)
		if err != nil {
			return Document{}, err
		}
		return Document{Fields: fields}, nil

	case '[':
		if !dec.More() {
			return Document{Empty: true}, nil
		}
		// Inspect the first element, mirroring how a geocoder result
		// list is read.
		tok, err := dec.Token()
		if err != nil {
			return Document{}, fmt.Errorf("parsing document: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return Document{}, nil
		}
		fields, err := parseObject(dec)
		if err != nil {
			return Document{}, err
		}
		return Document{Fields: fields}, nil
	}

	return Document{}, fmt.Errorf("unexpected token %v", tok)
}

// parseObject consumes the members of an object whose opening brace has
// already been read, collecting scalar values and skipping compound ones.
func parseObject(dec *json.Decoder) ([]Field, error) {
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing document: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing document: %w", err)
		}

		switch v := valTok.(type) {
		case json.Delim:
			if err := skipCompound(dec); err != nil {
				return nil, err
			}
		case string:
			fields = append(fields, Field{Key: key, Value: v})
		case json.Number:
			fields = append(fields, Field{Key: key, Value: v.String()})
		case bool:
			fields = append(fields, Field{Key: key, Value: fmt.Sprintf("%t", v)})
		case nil:
			fields = append(fields, Field{Key: key, Value: "null"})
		}
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return fields, nil
}

// skipCompound consumes tokens until the compound value whose opening
// delimiter has already been read is fully closed.
func skipCompound(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parsing document: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

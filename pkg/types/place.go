// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// BoundingBox is a geographic extent in WGS84 degrees.
type BoundingBox struct {
	South float64 `json:"south" yaml:"south"`
	West  float64 `json:"west" yaml:"west"`
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
}

// Valid reports whether the box describes a non-empty extent with
// coordinates in range. Boxes crossing the antimeridian are rejected.
func (b BoundingBox) Valid() bool {
	if b.South < -90 || b.North > 90 || b.South >= b.North {
		return false
	}
	if b.West < -180 || b.East > 180 || b.West >= b.East {
		return false
	}
	return true
}

// Place is a geocoded location returned by Nominatim.
type Place struct {
	// DisplayName is the full human-readable name
	// (e.g. "Berlin, Deutschland").
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Lat and Lon are the representative point of the place.
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`

	// OSMType is "node", "way", or "relation"; OSMID is the element ID.
	OSMType string `json:"osm_type" yaml:"osm_type"`
	OSMID   int64  `json:"osm_id" yaml:"osm_id"`

	// Category and Type classify the match (e.g. "boundary"/"administrative").
	Category string `json:"category" yaml:"category"`
	Type     string `json:"type" yaml:"type"`

	// BBox is the extent of the place.
	BBox BoundingBox `json:"bbox" yaml:"bbox"`
}

// String returns a short identifier for logs.
func (p Place) String() string {
	return fmt.Sprintf("%s/%d %q", p.OSMType, p.OSMID, p.DisplayName)
}

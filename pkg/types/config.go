package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "nomad/0.1"). Nominatim's usage policy requires an
	// identifying agent; anonymous clients get rejected.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// GeocodeConfig holds settings for the geocode stage.
type GeocodeConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Nominatim instance to query
	// (default "https://nominatim.openstreetmap.org").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// UseCache controls whether geocode responses are written to and
	// served from the response cache.
	UseCache bool `json:"use_cache" yaml:"use_cache" mapstructure:"use_cache"`
}

// DownloadConfig holds settings for the download stage.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Overpass interpreter endpoint
	// (default "https://overpass-api.de/api/interpreter").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// QueryTimeout is the server-side timeout requested in the
	// Overpass QL header, in seconds (default 180).
	QueryTimeout int `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
}

// CacheConfig holds settings for the response cache.
type CacheConfig struct {
	// Dir is the cache directory (default ".nomad/cache"). Responses are
	// stored as JSON files; the manifest database lives under Dir/index/.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config groups all stage configurations.
type Config struct {
	Geocode  GeocodeConfig  `json:"geocode" yaml:"geocode" mapstructure:"geocode"`
	Download DownloadConfig `json:"download" yaml:"download" mapstructure:"download"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
}

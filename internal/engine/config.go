package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	Port                 string
	MCPPort              string        // empty = MCP server disabled
	Languages            []string      // transcript language fallback order; "any" = default track
	FetchRetries         int           // provider attempts per request
	FetchTimeout         time.Duration // per-attempt deadline
	BackoffBase          time.Duration
	BackoffMax           time.Duration
	BackoffJitter        float64
	CacheTTL             time.Duration // 0 = result cache disabled
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	RedisURL             string
	CORSOrigins          []string
	ShutdownTimeout      time.Duration
	HTTPClient           *http.Client
}

var cfg = Config{HTTPClient: http.DefaultClient}

// Cfg exposes the engine configuration for sub-packages (sources, server).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	cfg = c
	Cfg = &cfg
}

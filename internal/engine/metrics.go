package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	TranscriptSuccess  atomic.Int64
	TranscriptEmpty    atomic.Int64
	InvalidRequests    atomic.Int64
	FetchAttempts      atomic.Int64
	FetchFailures      atomic.Int64
	FetchTimeouts      atomic.Int64
	YouTubePageFetches atomic.Int64
	YouTubePlayerCalls atomic.Int64
	YouTubeCaptionGets atomic.Int64
	ErrorsByKind       [4]atomic.Int64 // indexed by transcript.Kind
	MCPToolCalls       atomic.Int64
}

var metricKeys = []string{
	"transcript_requests", "transcript_success", "transcript_empty", "invalid_requests",
	"fetch_attempts", "fetch_failures", "fetch_timeouts",
	"youtube_page_fetches", "youtube_player_calls", "youtube_caption_fetches",
	"errors_unknown", "errors_timeout", "errors_transcript_disabled", "errors_video_unavailable",
	"mcp_tool_calls",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"transcript_requests":        metrics.TranscriptRequests.Load(),
		"transcript_success":         metrics.TranscriptSuccess.Load(),
		"transcript_empty":           metrics.TranscriptEmpty.Load(),
		"invalid_requests":           metrics.InvalidRequests.Load(),
		"fetch_attempts":             metrics.FetchAttempts.Load(),
		"fetch_failures":             metrics.FetchFailures.Load(),
		"fetch_timeouts":             metrics.FetchTimeouts.Load(),
		"youtube_page_fetches":       metrics.YouTubePageFetches.Load(),
		"youtube_player_calls":       metrics.YouTubePlayerCalls.Load(),
		"youtube_caption_fetches":    metrics.YouTubeCaptionGets.Load(),
		"errors_unknown":             metrics.ErrorsByKind[0].Load(),
		"errors_timeout":             metrics.ErrorsByKind[1].Load(),
		"errors_transcript_disabled": metrics.ErrorsByKind[2].Load(),
		"errors_video_unavailable":   metrics.ErrorsByKind[3].Load(),
		"mcp_tool_calls":             metrics.MCPToolCalls.Load(),
		"cache_hits":                 hits,
		"cache_misses":               misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the server and sources packages.
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptSuccess()  { metrics.TranscriptSuccess.Add(1) }
func IncrTranscriptEmpty()    { metrics.TranscriptEmpty.Add(1) }
func IncrInvalidRequests()    { metrics.InvalidRequests.Add(1) }
func IncrFetchAttempts()      { metrics.FetchAttempts.Add(1) }
func IncrFetchFailures()      { metrics.FetchFailures.Add(1) }
func IncrFetchTimeouts()      { metrics.FetchTimeouts.Add(1) }
func IncrYouTubePage()        { metrics.YouTubePageFetches.Add(1) }
func IncrYouTubePlayer()      { metrics.YouTubePlayerCalls.Add(1) }
func IncrYouTubeCaption()     { metrics.YouTubeCaptionGets.Add(1) }
func IncrMCPToolCalls()       { metrics.MCPToolCalls.Add(1) }

// IncrErrorKind counts a classified failure; kind is a transcript.Kind value.
func IncrErrorKind(kind int) {
	if kind < 0 || kind >= len(metrics.ErrorsByKind) {
		kind = 0
	}
	metrics.ErrorsByKind[kind].Add(1)
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}

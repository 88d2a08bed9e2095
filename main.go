// yt_transcript — YouTube transcript extraction service.
//
// Serves POST /api/transcript (JSON), a minimal web form on /, health and
// metrics. When MCP_PORT is set the same operation is exposed as the
// youtube_transcript MCP tool.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/anatolykoptev/yt_transcript/internal/engine/sources"
	"github.com/anatolykoptev/yt_transcript/internal/toolutil"
	"github.com/anatolykoptev/yt_transcript/internal/transcript"
	"github.com/anatolykoptev/yt_transcript/internal/transcriptserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	initLogger(env.Str("LOG_LEVEL", "info"), env.Str("LOG_FORMAT", "text"))
	initEngine()

	c := engine.Cfg
	fetcher := transcript.NewFetcher(sources.NewYouTube(c.HTTPClient), transcript.Policy{
		MaxAttempts: c.FetchRetries,
		Timeout:     c.FetchTimeout,
		Backoff:     transcript.ExponentialBackoff(c.BackoffBase, c.BackoffMax, c.BackoffJitter),
	}, c.Languages)
	svc := transcriptserver.NewService(fetcher)

	slog.Info("starting yt_transcript",
		slog.String("version", version),
		slog.String("port", c.Port),
		slog.String("languages", strings.Join(c.Languages, ",")),
		slog.Int("retries", c.FetchRetries),
		slog.Duration("timeout", c.FetchTimeout),
	)

	if c.MCPPort != "" {
		go runMCP(svc, c.MCPPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serveHTTP(ctx, transcriptserver.NewHandler(svc).Router(c.CORSOrigins), c.Port, c.ShutdownTimeout); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		engine.CloseCache()
		os.Exit(1)
	}
	engine.CloseCache()
	slog.Info("server stopped cleanly")
}

func initLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func initEngine() {
	c := engine.Config{
		Port:                 env.Str("PORT", "3000"),
		MCPPort:              env.Str("MCP_PORT", ""),
		Languages:            toolutil.NormLanguages(env.List("TRANSCRIPT_LANGS", "en,en-US,en-GB,any")),
		FetchRetries:         env.Int("FETCH_RETRIES", 2),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 8*time.Second),
		BackoffBase:          env.Duration("BACKOFF_BASE", time.Second),
		BackoffMax:           env.Duration("BACKOFF_MAX", 3*time.Second),
		BackoffJitter:        env.Float("BACKOFF_JITTER", 0),
		CacheTTL:             env.Duration("CACHE_TTL", 15*time.Minute),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		RedisURL:             env.Str("REDIS_URL", ""),
		CORSOrigins:          env.List("CORS_ORIGINS", "*"),
		ShutdownTimeout:      env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	if c.FetchRetries < 1 {
		slog.Warn("FETCH_RETRIES below 1, using 1", slog.Int("value", c.FetchRetries))
		c.FetchRetries = 1
	}
	engine.Init(c)
	engine.InitCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// runMCP serves the youtube_transcript tool over MCP on its own port.
func runMCP(svc *transcriptserver.Service, port string) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "yt_transcript",
		Version: version,
	}, nil)
	transcriptserver.RegisterTools(server, svc)
	slog.Info("mcp server starting", slog.String("port", port))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "yt_transcript",
		Version:      version,
		Port:         port,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("mcp server failed", slog.Any("error", err))
	}
}

// serveHTTP runs the API until ctx is done, then drains in-flight requests.
func serveHTTP(ctx context.Context, h http.Handler, port string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down http server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			_ = srv.Close()
			return err
		}
		return nil
	}
}

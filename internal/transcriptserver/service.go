package transcriptserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/anatolykoptev/yt_transcript/internal/toolutil"
	"github.com/anatolykoptev/yt_transcript/internal/transcript"
)

const slowFetchThreshold = 5 * time.Second

// Result is a fetched transcript ready for rendering.
type Result struct {
	VideoID    string               `json:"video_id"`
	Transcript string               `json:"transcript"`
	Segments   []transcript.Segment `json:"segments"`
}

// Service turns a video URL into a transcript. Every failure it returns is
// an *APIError.
type Service struct {
	fetcher *transcript.Fetcher
}

// NewService wires metrics into f and returns a Service around it.
func NewService(f *transcript.Fetcher) *Service {
	return &Service{fetcher: f.WithObserver(transcript.Observer{
		Attempt: func(string, int) { engine.IncrFetchAttempts() },
		Failure: func(string, int, error) { engine.IncrFetchFailures() },
		Timeout: func(string) { engine.IncrFetchTimeouts() },
	})}
}

// Transcript validates videoURL, fetches its segments and joins them.
// language, when set, is tried before the configured fallbacks.
func (s *Service) Transcript(ctx context.Context, videoURL, language string) (*Result, error) {
	engine.IncrTranscriptRequests()

	if strings.TrimSpace(videoURL) == "" {
		engine.IncrInvalidRequests()
		return nil, errURLRequired
	}
	videoID, ok := transcript.ExtractVideoID(videoURL)
	if !ok {
		engine.IncrInvalidRequests()
		return nil, errInvalidURL
	}

	f := s.fetcher.Prefer(strings.TrimSpace(language))
	cacheKey := engine.CacheKey("transcript", videoID, strings.Join(f.Languages(), ","))
	if res, ok := toolutil.CacheLoadJSON[Result](ctx, cacheKey); ok {
		engine.IncrTranscriptSuccess()
		return &res, nil
	}

	var segs []transcript.Segment
	err := engine.TrackOperation(ctx, "fetch_transcript", slowFetchThreshold, func(ctx context.Context) error {
		var err error
		segs, err = f.Fetch(ctx, videoID)
		return err
	})
	if err != nil {
		apiErr := mapFetchError(err)
		engine.IncrErrorKind(int(apiErr.Kind))
		level := slog.LevelWarn
		if apiErr.Kind == transcript.KindUnknown && !errors.Is(err, context.Canceled) {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "transcript fetch failed",
			slog.String("id", videoID),
			slog.String("kind", apiErr.Kind.String()),
			slog.Int("status", apiErr.Status),
			slog.Any("error", err))
		return nil, apiErr
	}

	if len(segs) == 0 {
		engine.IncrTranscriptEmpty()
		slog.Info("transcript empty", slog.String("id", videoID))
		return nil, errNoTranscript
	}

	res := Result{VideoID: videoID, Transcript: transcript.Join(segs), Segments: segs}
	toolutil.CacheStoreJSON(ctx, cacheKey, res)
	engine.IncrTranscriptSuccess()
	slog.Info("transcript fetched",
		slog.String("id", videoID),
		slog.Int("segments", len(segs)),
		slog.Int("chars", len(res.Transcript)))
	return &res, nil
}

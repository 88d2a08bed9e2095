package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/anatolykoptev/yt_transcript/internal/transcript"
)

// YouTube transcript fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption track → timedtext XML
// Fallback: ANDROID Innertube /player → captionTracks (when the page has no player JSON)

var errNoPlayerResponse = errors.New("ytInitialPlayerResponse not found in watch page")

// YouTube implements transcript.Provider against youtube.com.
type YouTube struct {
	client  *http.Client
	baseURL string
}

// NewYouTube returns a provider using client, or engine.Cfg.HTTPClient when nil.
func NewYouTube(client *http.Client) *YouTube {
	if client == nil {
		client = engine.Cfg.HTTPClient
	}
	return &YouTube{client: client, baseURL: ytBaseURL}
}

// FetchTranscript returns the caption segments of videoID in language.
// An empty language picks the best default track (manual English first).
// Within one fetch attempt the caption track list is resolved once and reused
// for every language option.
func (y *YouTube) FetchTranscript(ctx context.Context, videoID, language string) ([]transcript.Segment, error) {
	tracks, err := transcript.Memoize(ctx, "youtube.tracks:"+videoID, func() ([]captionTrack, error) {
		return y.captionTracks(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	track, err := pickTrack(tracks, language)
	if err != nil {
		return nil, err
	}
	slog.Debug("youtube: caption track selected",
		slog.String("id", videoID),
		slog.String("lang", track.LanguageCode),
		slog.String("kind", track.Kind))

	return y.fetchTimedText(ctx, track.BaseURL)
}

// captionTracks resolves the player response (watch page, then ANDROID
// player) and returns its caption tracks.
func (y *YouTube) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	pr, err := y.playerFromWatchPage(ctx, videoID)
	if errors.Is(err, errNoPlayerResponse) {
		slog.Warn("youtube: page scrape found no player response, trying android player",
			slog.String("id", videoID))
		pr, err = y.postPlayerANDROID(ctx, videoID)
	}
	if err != nil {
		return nil, err
	}

	if err := checkPlayability(pr); err != nil {
		return nil, err
	}

	tracks := pr.tracks()
	if len(tracks) == 0 {
		return nil, transcript.ErrTranscriptDisabled
	}
	return tracks, nil
}

// playerFromWatchPage scrapes the watch page HTML and decodes its
// ytInitialPlayerResponse. Works from any IP.
func (y *YouTube) playerFromWatchPage(ctx context.Context, videoID string) (*playerResp, error) {
	watchURL := y.baseURL + "/watch?v=" + url.QueryEscape(videoID)

	engine.IncrYouTubePage()
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("watch page: %w", transcript.ErrTooManyRequests)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("watch page: %w", transcript.ErrVideoUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		if bytes.Contains(body, []byte(ytRecaptchaMarker)) {
			return nil, fmt.Errorf("watch page: %w", transcript.ErrTooManyRequests)
		}
		return nil, errNoPlayerResponse
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var pr playerResp
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &pr, nil
}

// checkPlayability converts a non-OK playability status into a provider error.
func checkPlayability(pr *playerResp) error {
	ps := pr.PlayabilityStatus
	if ps == nil || ps.Status == "" || ps.Status == "OK" {
		return nil
	}
	reason := strings.TrimSpace(ps.Reason)
	if strings.Contains(strings.ToLower(reason), "not a bot") {
		return fmt.Errorf("%w: %s", transcript.ErrTooManyRequests, reason)
	}
	if reason == "" {
		reason = ps.Status
	}
	// Age-gated videos still expose captions; only fail when none came back.
	if ps.Status == "LOGIN_REQUIRED" && len(pr.tracks()) > 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", transcript.ErrVideoUnavailable, reason)
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a usable caption track. With a language, only tracks in
// that language qualify (manual before auto-generated). Without one: manual
// English, any English, then the first usable track.
func pickTrack(tracks []captionTrack, language string) (captionTrack, error) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, errors.New("all caption tracks require PoToken")
	}

	if language != "" {
		for _, asr := range []bool{false, true} {
			for _, t := range usable {
				if strings.EqualFold(t.LanguageCode, language) && (t.Kind == "asr") == asr {
					return t, nil
				}
			}
		}
		return captionTrack{}, fmt.Errorf("%w: %s", transcript.ErrLanguageUnavailable, language)
	}

	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") && t.Kind != "asr" {
			return t, nil
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, nil
		}
	}
	return usable[0], nil
}

// timedTextURL drops any fmt override so the endpoint returns classic <text> XML.
func timedTextURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	if !q.Has("fmt") {
		return baseURL
	}
	q.Del("fmt")
	u.RawQuery = q.Encode()
	return u.String()
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func (y *YouTube) fetchTimedText(ctx context.Context, baseURL string) ([]transcript.Segment, error) {
	target := timedTextURL(baseURL)

	engine.IncrYouTubeCaption()
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty timedtext response")
	}
	return parseTimedText(body)
}

// parseTimedText converts timedtext XML into segments, skipping blank lines.
func parseTimedText(body []byte) ([]transcript.Segment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]transcript.Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanCaption(line.Text)
		if text == "" {
			continue
		}
		segs = append(segs, transcript.Segment{
			Text:     text,
			Duration: line.Dur,
			Offset:   line.Start,
		})
	}
	return segs, nil
}

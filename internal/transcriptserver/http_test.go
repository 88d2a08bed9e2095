package transcriptserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/anatolykoptev/yt_transcript/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(p transcript.Provider, policy transcript.Policy) http.Handler {
	f := transcript.NewFetcher(p, policy, []string{"en", "any"})
	return NewHandler(NewService(f)).Router(nil)
}

func quickPolicy() transcript.Policy {
	return transcript.Policy{
		MaxAttempts: 2,
		Timeout:     time.Second,
		Backoff:     transcript.ExponentialBackoff(time.Millisecond, 2*time.Millisecond, 0),
	}
}

func segmentsProvider(segs ...transcript.Segment) transcript.Provider {
	return transcript.ProviderFunc(func(context.Context, string, string) ([]transcript.Segment, error) {
		return segs, nil
	})
}

func errorProvider(err error) transcript.Provider {
	return transcript.ProviderFunc(func(context.Context, string, string) ([]transcript.Segment, error) {
		return nil, err
	})
}

func postTranscript(t *testing.T, h http.Handler, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/transcript", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return rec.Code, out
}

func TestPostTranscriptSuccess(t *testing.T) {
	h := newTestRouter(segmentsProvider(
		transcript.Segment{Text: "Hello", Duration: 1, Offset: 0},
		transcript.Segment{Text: "world", Duration: 1, Offset: 1},
	), quickPolicy())

	code, body := postTranscript(t, h, `{"videoUrl":"https://www.youtube.com/watch?v=abc123&t=5s"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"transcript": "Hello\nworld"}, body)
}

func TestPostTranscriptPassesExtractedID(t *testing.T) {
	var gotID string
	p := transcript.ProviderFunc(func(_ context.Context, id, _ string) ([]transcript.Segment, error) {
		gotID = id
		return []transcript.Segment{{Text: "x"}}, nil
	})
	h := newTestRouter(p, quickPolicy())

	code, _ := postTranscript(t, h, `{"videoUrl":"https://youtu.be/dQw4w9WgXcQ?si=share"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dQw4w9WgXcQ", gotID)
}

func TestPostTranscriptErrors(t *testing.T) {
	tests := []struct {
		name       string
		provider   transcript.Provider
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing url",
			provider:   segmentsProvider(transcript.Segment{Text: "x"}),
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Video URL is required",
		},
		{
			name:       "blank url",
			provider:   segmentsProvider(transcript.Segment{Text: "x"}),
			body:       `{"videoUrl":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Video URL is required",
		},
		{
			name:       "empty body",
			provider:   segmentsProvider(transcript.Segment{Text: "x"}),
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantError:  "Video URL is required",
		},
		{
			name:       "malformed json",
			provider:   segmentsProvider(transcript.Segment{Text: "x"}),
			body:       `{"videoUrl":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "not a youtube url",
			provider:   segmentsProvider(transcript.Segment{Text: "x"}),
			body:       `{"videoUrl":"https://vimeo.com/123"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid YouTube URL. Please provide a valid YouTube video URL",
		},
		{
			name:       "empty segment list",
			provider:   segmentsProvider(),
			body:       `{"videoUrl":"https://youtu.be/abc"}`,
			wantStatus: http.StatusNotFound,
			wantError:  "No transcript available for this video",
		},
		{
			name:       "transcript disabled",
			provider:   errorProvider(errors.New("[YoutubeTranscript] Transcript is disabled on this video")),
			body:       `{"videoUrl":"https://youtu.be/abc"}`,
			wantStatus: http.StatusForbidden,
			wantError:  "Transcripts are disabled for this video",
		},
		{
			name:       "language unavailable",
			provider:   errorProvider(transcript.ErrLanguageUnavailable),
			body:       `{"videoUrl":"https://youtu.be/abc"}`,
			wantStatus: http.StatusForbidden,
			wantError:  "Transcripts are disabled for this video",
		},
		{
			name:       "video unavailable",
			provider:   errorProvider(errors.New("Video is unavailable")),
			body:       `{"videoUrl":"https://youtu.be/abc"}`,
			wantStatus: http.StatusNotFound,
			wantError:  "This video is unavailable or private",
		},
		{
			name:       "unknown failure",
			provider:   errorProvider(errors.New("connection reset by peer")),
			body:       `{"videoUrl":"https://youtu.be/abc"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Unable to fetch transcript. Please try again later.",
		},
		{
			name: "provider panic",
			provider: transcript.ProviderFunc(func(context.Context, string, string) ([]transcript.Segment, error) {
				panic("boom")
			}),
			body:       `{"videoUrl":"https://youtu.be/abc"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Unable to fetch transcript. Please try again later.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := postTranscript(t, newTestRouter(tt.provider, quickPolicy()), tt.body)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, map[string]string{"error": tt.wantError}, body)
		})
	}
}

func TestPostTranscriptTimeout(t *testing.T) {
	p := transcript.ProviderFunc(func(ctx context.Context, _, _ string) ([]transcript.Segment, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return []transcript.Segment{{Text: "late"}}, nil
		}
	})
	policy := transcript.Policy{MaxAttempts: 2, Timeout: 20 * time.Millisecond}

	code, body := postTranscript(t, newTestRouter(p, policy), `{"videoUrl":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusRequestTimeout, code)
	assert.Equal(t, "Request timed out. Please try again.", body["error"])
}

func TestPostTranscriptBodyTooLarge(t *testing.T) {
	h := newTestRouter(segmentsProvider(transcript.Segment{Text: "x"}), quickPolicy())
	big := `{"videoUrl":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`

	code, body := postTranscript(t, h, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, "Request body too large", body["error"])
}

func TestTranscriptMethodNotAllowed(t *testing.T) {
	h := newTestRouter(segmentsProvider(), quickPolicy())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcript", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthMetricsIndex(t *testing.T) {
	h := newTestRouter(segmentsProvider(), quickPolicy())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "transcript_requests ")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/transcript")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestRecoverJSON(t *testing.T) {
	h := recoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transcript", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred. Please try again later."}`, rec.Body.String())
}

func TestServiceUsesCache(t *testing.T) {
	engine.InitCache("", time.Minute, 10, time.Minute)
	t.Cleanup(engine.CloseCache)

	calls := 0
	p := transcript.ProviderFunc(func(context.Context, string, string) ([]transcript.Segment, error) {
		calls++
		return []transcript.Segment{{Text: "cached"}}, nil
	})
	svc := NewService(transcript.NewFetcher(p, quickPolicy(), []string{"en"}))

	for i := 0; i < 2; i++ {
		res, err := svc.Transcript(context.Background(), "https://youtu.be/cacheme", "")
		require.NoError(t, err)
		assert.Equal(t, "cached", res.Transcript)
	}
	assert.Equal(t, 1, calls)
}

func TestMapFetchError(t *testing.T) {
	e := mapFetchError(transcript.ErrTimeout)
	assert.Equal(t, http.StatusRequestTimeout, e.Status)
	assert.Equal(t, transcript.KindTimeout, e.Kind)
	assert.ErrorIs(t, e, transcript.ErrTimeout)
}

package transcriptserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/anatolykoptev/yt_transcript/internal/transcript"
)

// APIError is a client-facing failure with a fixed status and message.
// Err keeps the underlying cause for logs; it is never sent to clients.
type APIError struct {
	Status  int
	Message string
	Kind    transcript.Kind
	Err     error
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) Unwrap() error { return e.Err }

func newAPIError(status int, msg string) *APIError {
	return &APIError{Status: status, Message: msg}
}

var (
	errURLRequired  = newAPIError(http.StatusBadRequest, "Video URL is required")
	errInvalidBody  = newAPIError(http.StatusBadRequest, "Invalid request body")
	errInvalidURL   = newAPIError(http.StatusBadRequest, "Invalid YouTube URL. Please provide a valid YouTube video URL")
	errNoTranscript = newAPIError(http.StatusNotFound, "No transcript available for this video")
	errInternal     = newAPIError(http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
)

// fetchErrorResponses maps each failure class to its status and message.
var fetchErrorResponses = map[transcript.Kind]struct {
	status int
	msg    string
}{
	transcript.KindTimeout:            {http.StatusRequestTimeout, "Request timed out. Please try again."},
	transcript.KindTranscriptDisabled: {http.StatusForbidden, "Transcripts are disabled for this video"},
	transcript.KindVideoUnavailable:   {http.StatusNotFound, "This video is unavailable or private"},
	transcript.KindUnknown:            {http.StatusInternalServerError, "Unable to fetch transcript. Please try again later."},
}

// mapFetchError classifies a fetcher failure into its HTTP response.
func mapFetchError(err error) *APIError {
	kind := transcript.Classify(err)
	r := fetchErrorResponses[kind]
	return &APIError{Status: r.status, Message: r.msg, Kind: kind, Err: err}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", slog.Any("error", err))
	}
}

func writeAPIError(w http.ResponseWriter, e *APIError) {
	writeJSON(w, e.Status, engine.ErrorResponse{Error: e.Message})
}

package engine

// --- HTTP API ---

// TranscriptRequest is the POST /api/transcript body.
type TranscriptRequest struct {
	VideoURL string `json:"videoUrl"`
}

// TranscriptResponse is the success body of POST /api/transcript.
type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}

// ErrorResponse is the failure body of every JSON endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- MCP tool ---

type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts or live link)"`
	Language string `json:"language,omitempty" jsonschema:"Preferred caption language code tried before the configured fallbacks (e.g. en, de)"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"Truncate the transcript to this many characters (default: no limit)"`
}

type TranscriptOutput struct {
	VideoID    string `json:"video_id"`
	Transcript string `json:"transcript"`
	Segments   int    `json:"segments"`
	Truncated  bool   `json:"truncated,omitempty"`
}

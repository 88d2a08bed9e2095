package transcriptserver

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers the youtube_transcript tool on the given MCP server.
func RegisterTools(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the plain-text transcript (captions) of a YouTube video. Accepts watch, youtu.be, embed, shorts and live URLs. Returns one caption line per row.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
		engine.IncrMCPToolCalls()

		res, err := svc.Transcript(ctx, input.URL, input.Language)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return nil, engine.TranscriptOutput{}, errors.New(apiErr.Message)
			}
			return nil, engine.TranscriptOutput{}, errors.New(errInternal.Message)
		}

		out := engine.TranscriptOutput{
			VideoID:    res.VideoID,
			Transcript: res.Transcript,
			Segments:   len(res.Segments),
		}
		if input.MaxChars > 0 && utf8.RuneCountInString(out.Transcript) > input.MaxChars {
			out.Transcript = engine.TruncateRunes(out.Transcript, input.MaxChars, "…")
			out.Truncated = true
		}
		return nil, out, nil
	})
}

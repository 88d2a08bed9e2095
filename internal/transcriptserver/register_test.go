package transcriptserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/anatolykoptev/yt_transcript/internal/transcript"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectTool(t *testing.T, p transcript.Provider) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "yt_transcript", Version: "test"}, nil)
	RegisterTools(server, NewService(transcript.NewFetcher(p, quickPolicy(), []string{"en"})))

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestYouTubeTranscriptTool(t *testing.T) {
	var langs []string
	p := transcript.ProviderFunc(func(_ context.Context, _, lang string) ([]transcript.Segment, error) {
		langs = append(langs, lang)
		if lang != "de" {
			return nil, transcript.ErrLanguageUnavailable
		}
		return []transcript.Segment{{Text: "Hallo"}, {Text: "Welt"}}, nil
	})
	cs := connectTool(t, p)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "youtube_transcript",
		Arguments: map[string]any{"url": "https://www.youtube.com/watch?v=abc123", "language": "de"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out engine.TranscriptOutput
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "abc123", out.VideoID)
	assert.Equal(t, "Hallo\nWelt", out.Transcript)
	assert.Equal(t, 2, out.Segments)
	assert.Equal(t, []string{"de"}, langs, "preferred language tried first")
}

func TestYouTubeTranscriptToolTruncates(t *testing.T) {
	cs := connectTool(t, segmentsProvider(transcript.Segment{Text: strings.Repeat("x", 50)}))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "youtube_transcript",
		Arguments: map[string]any{"url": "https://youtu.be/trunc", "max_chars": 10},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out engine.TranscriptOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Truncated)
	assert.LessOrEqual(t, len([]rune(out.Transcript)), 11)
}

func TestYouTubeTranscriptToolInvalidURL(t *testing.T) {
	cs := connectTool(t, segmentsProvider())

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "youtube_transcript",
		Arguments: map[string]any{"url": "not a url"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Invalid YouTube URL")
}

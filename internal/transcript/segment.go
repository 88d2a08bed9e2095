// Package transcript extracts YouTube video ids, fetches caption segments from
// a Provider under a bounded retry policy, and classifies provider failures.
package transcript

import (
	"context"
	"strings"
)

// Segment is one timed caption unit. Offset and Duration are in seconds.
type Segment struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Offset   float64 `json:"offset"`
}

// Provider fetches caption segments for a video in a given language.
// An empty language means the provider's default track.
type Provider interface {
	FetchTranscript(ctx context.Context, videoID, language string) ([]Segment, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, videoID, language string) ([]Segment, error)

func (f ProviderFunc) FetchTranscript(ctx context.Context, videoID, language string) ([]Segment, error) {
	return f(ctx, videoID, language)
}

// Join concatenates segment texts with newlines.
func Join(segs []Segment) string {
	var sb strings.Builder
	for i, s := range segs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

package transcript

import (
	"context"
	"errors"
	"strings"
)

// Provider failures. Providers wrap these so Classify can use errors.Is;
// their messages also match the substring rules below.
var (
	ErrTimeout             = errors.New("request timeout")
	ErrTranscriptDisabled  = errors.New("transcript is disabled on this video")
	ErrLanguageUnavailable = errors.New("no transcripts are available in the requested language")
	ErrVideoUnavailable    = errors.New("video is unavailable")
	ErrTooManyRequests     = errors.New("too many requests")
)

// Kind is the failure class used to pick an HTTP response.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindTranscriptDisabled
	KindVideoUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTranscriptDisabled:
		return "transcript_disabled"
	case KindVideoUnavailable:
		return "video_unavailable"
	default:
		return "unknown"
	}
}

var kindPatterns = []struct {
	kind    Kind
	needles []string
}{
	{KindTimeout, []string{"request timeout", "timed out", "deadline exceeded"}},
	{KindTranscriptDisabled, []string{
		"transcript is disabled",
		"transcripts are disabled",
		"subtitles are disabled",
		"no transcripts are available",
		"transcript unavailable",
	}},
	{KindVideoUnavailable, []string{"video is unavailable", "video unavailable", "private video", "video is private"}},
}

// Classify maps a fetch failure onto a Kind. Sentinels win; otherwise the
// message is matched case-insensitively, timeout first.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrTranscriptDisabled), errors.Is(err, ErrLanguageUnavailable):
		return KindTranscriptDisabled
	case errors.Is(err, ErrVideoUnavailable):
		return KindVideoUnavailable
	}

	msg := strings.ToLower(err.Error())
	for _, p := range kindPatterns {
		for _, n := range p.needles {
			if strings.Contains(msg, n) {
				return p.kind
			}
		}
	}
	return KindUnknown
}

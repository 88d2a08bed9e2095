package transcript

import (
	"log/slog"
	"regexp"
	"strings"
)

// videoIDPatterns are tried in order; the first capturing match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([^&#]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([^?&#/]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([^?&#/]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/(?:shorts|live)/([^?&#/]+)`),
}

// ExtractVideoID returns the video id from a YouTube watch, short-link,
// embed, shorts or live URL. Reports false when nothing matches.
func ExtractVideoID(raw string) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("video id extraction panicked", slog.Any("panic", r))
			id, ok = "", false
		}
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(raw); len(m) >= 2 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

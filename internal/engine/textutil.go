package engine

import (
	"html"
	"io"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	xhtml "golang.org/x/net/html"
)

// UserAgentChrome is sent on caption downloads.
const UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// CleanCaption turns a timedtext caption body into plain text: entities are
// decoded (captions are often double-escaped), markup such as <font> is
// dropped and whitespace collapsed.
func CleanCaption(s string) string {
	s = html.UnescapeString(s)
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var sb strings.Builder
	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if z.Err() != io.EOF {
				// Malformed fragment: keep what decoded so far plus the raw rest.
				sb.Write(z.Raw())
			}
			break
		}
		if tt == xhtml.TextToken {
			sb.Write(z.Text())
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

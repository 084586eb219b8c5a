package veo

import (
	"strings"
	"time"
)

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeXML replaces &, < and > with their entity references.
// Quotes are left alone; values are only ever placed in element content.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// IsSignatureWhitespace reports whether b is one of the bytes removed from
// content before it is signed or verified (tab, LF, CR and space).
func IsSignatureWhitespace(b byte) bool {
	return b == 0x09 || b == 0x0a || b == 0x0d || b == 0x20
}

// StripSignatureWhitespace returns p without tab, LF, CR and space bytes.
func StripSignatureWhitespace(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if !IsSignatureWhitespace(b) {
			out = append(out, b)
		}
	}
	return out
}

// versDateLayout is ISO 8601 with a colon separated numeric zone, e.g. 2024-03-01T09:30:00+10:00
const versDateLayout = "2006-01-02T15:04:05-07:00"

// FormatDateTime renders t in the VERS date format using t's own location.
func FormatDateTime(t time.Time) string {
	return t.Format(versDateLayout)
}

package sse

import (
	"strconv"
	"strings"
	"time"
)

// EncodeEvent formats one data event. Multi-line payloads become one data:
// line per line. The event: line is omitted unless sendName is set.
func EncodeEvent(name, payload string, id int64, sendName bool) []byte {
	var b strings.Builder
	b.Grow(len(name) + len(payload) + 32)
	if sendName && name != "" {
		b.WriteString("event: ")
		b.WriteString(stripNewlines(name))
		b.WriteByte('\n')
	}
	for _, line := range splitLines(payload) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("id: ")
	b.WriteString(strconv.FormatInt(id, 10))
	b.WriteString("\n\n")
	return []byte(b.String())
}

// EncodeKeepAlive formats a comment block. It carries no id.
func EncodeKeepAlive(message string) []byte {
	return []byte(": " + stripNewlines(message) + "\n\n")
}

// EncodeRetry formats the reconnection delay directive in whole milliseconds.
func EncodeRetry(d time.Duration) []byte {
	return []byte("retry: " + strconv.FormatInt(d.Milliseconds(), 10) + "\n\n")
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

func stripNewlines(s string) string {
	return strings.Join(splitLines(s), " ")
}

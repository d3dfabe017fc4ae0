// Package sseclient reads Server-Sent Events streams.
package sseclient

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event is one dispatched server-sent event.
type Event struct {
	// Event is the event: field. Empty for unnamed events.
	Event string
	// Data joins every data: line of the block with newlines.
	Data string
	// ID is the id: field of this block, empty if the block had none.
	ID string
}

// IntID parses ID as a decimal event id.
func (e *Event) IntID() (int64, error) {
	return strconv.ParseInt(e.ID, 10, 64)
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next event carrying data. Returns io.EOF when the
	// stream ends.
	Next() (*Event, error)
	// LastEventID is the most recent id: value seen, as a client would send
	// it back in Last-Event-ID.
	LastEventID() string
	// Retry is the last retry: directive seen, 0 if none.
	Retry() time.Duration
	// Comments counts comment lines, which servers use as keep-alives.
	Comments() int
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	scanner  *bufio.Scanner
	body     io.ReadCloser
	lastID   string
	retry    time.Duration
	comments int
}

// NewReader creates an SSE reader from a readable stream.
func NewReader(body io.ReadCloser) Reader {
	return &reader{
		scanner: bufio.NewScanner(body),
		body:    body,
	}
}

func (r *reader) Next() (*Event, error) {
	var event Event
	var hasData bool

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				return &event, nil
			}
			event = Event{}
			continue
		}

		if strings.HasPrefix(line, ":") {
			r.comments++
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				event.ID = value
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms >= 0 {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// An unterminated trailing block is discarded, as browsers do.
	return nil, io.EOF
}

func (r *reader) LastEventID() string  { return r.lastID }
func (r *reader) Retry() time.Duration { return r.retry }
func (r *reader) Comments() int        { return r.comments }

func (r *reader) Close() error {
	return r.body.Close()
}

// parseLine splits a field line at the first colon and drops one leading
// space from the value.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}

package sse

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/streamkit/logger"
)

// Sink is where a stream is written. The scheduler calls SendHeaders
// exactly once before any body bytes and Flush after every Write.
type Sink interface {
	SendHeaders(status int, header http.Header) error
	Write(p []byte) error
	Flush() error
	// Connected reports whether the client is still there.
	Connected() bool
}

var errSinkClosed = errors.New("sse: sink disconnected")

// HTTPSink writes a stream to an http.ResponseWriter.
type HTTPSink struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	ctx   context.Context
	proto int

	mu     sync.Mutex
	broken bool
}

// NewHTTPSink prepares w for streaming. The write deadline is cleared so
// the server's WriteTimeout does not cut long streams.
func NewHTTPSink(w http.ResponseWriter, r *http.Request, log *logger.Logger) *HTTPSink {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && log != nil {
		log.Debug("Could not disable write deadline", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return &HTTPSink{w: w, rc: rc, ctx: r.Context(), proto: r.ProtoMajor}
}

// SendHeaders writes header and status. The event-stream headers always win
// over caller-supplied values.
func (s *HTTPSink) SendHeaders(status int, header http.Header) error {
	h := s.w.Header()
	for k, vs := range header {
		h[k] = append([]string(nil), vs...)
	}
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	if s.proto == 1 {
		h.Set("Connection", "keep-alive")
	}
	s.w.WriteHeader(status)
	return s.Flush()
}

func (s *HTTPSink) Write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		s.markBroken()
		return err
	}
	return nil
}

func (s *HTTPSink) Flush() error {
	if err := s.rc.Flush(); err != nil {
		s.markBroken()
		return err
	}
	return nil
}

func (s *HTTPSink) Connected() bool {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	return !broken && s.ctx.Err() == nil
}

func (s *HTTPSink) markBroken() {
	s.mu.Lock()
	s.broken = true
	s.mu.Unlock()
}

// MemorySink buffers a stream in memory. It is safe for concurrent use so
// tests can inspect it while the scheduler runs.
type MemorySink struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	status      int
	header      http.Header
	headerCalls int
	flushes     int
	closed      bool
}

// NewMemorySink creates a connected, empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) SendHeaders(status int, header http.Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errSinkClosed
	}
	m.status = status
	m.header = header.Clone()
	m.headerCalls++
	return nil
}

func (m *MemorySink) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errSinkClosed
	}
	m.buf.Write(p)
	return nil
}

func (m *MemorySink) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errSinkClosed
	}
	m.flushes++
	return nil
}

func (m *MemorySink) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Disconnect simulates the client going away.
func (m *MemorySink) Disconnect() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// String returns everything written so far.
func (m *MemorySink) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// Status returns the status passed to SendHeaders, 0 if not called yet.
func (m *MemorySink) Status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Header returns the headers passed to SendHeaders.
func (m *MemorySink) Header() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header.Clone()
}

// HeaderCalls counts SendHeaders calls.
func (m *MemorySink) HeaderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headerCalls
}

// Flushes counts Flush calls.
func (m *MemorySink) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

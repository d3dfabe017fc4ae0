package middleware

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,c,handler" {
		t.Errorf("order = %s", got)
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(logger.NewWithWriter(&buf, "test"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body errors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error.Code != errors.ErrCodeInternal {
		t.Errorf("code = %s, want %s", body.Error.Code, errors.ErrCodeInternal)
	}
	if !strings.Contains(buf.String(), "Panic recovered") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	h := Recovery(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "req-123"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = r.Header.Get(RequestIDHeader)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("expected a request id on the response")
			}
			if tc.incoming != "" && got != tc.incoming {
				t.Errorf("request id = %q, want %q", got, tc.incoming)
			}
			if seen != got {
				t.Errorf("handler saw %q, response has %q", seen, got)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		status  int
		level   string
		skipped bool
	}{
		{"ok at debug", "/events", http.StatusOK, "debug", false},
		{"client error at warn", "/missing", http.StatusNotFound, "warn", false},
		{"server error at error", "/broken", http.StatusBadGateway, "error", false},
		{"health skipped", "/health", http.StatusOK, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := Chain(RequestID(), RequestLogger(logger.NewWithWriter(&buf, "test")))(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tc.status)
					_, _ = w.Write([]byte("body"))
				}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			if tc.skipped {
				if buf.Len() != 0 {
					t.Errorf("expected no log line, got %q", buf.String())
				}
				return
			}
			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
			}
			if line["level"] != tc.level {
				t.Errorf("level = %v, want %s", line["level"], tc.level)
			}
			if line["path"] != tc.path || line["status"] != float64(tc.status) || line["bytes"] != float64(4) {
				t.Errorf("unexpected fields %v", line)
			}
			if line[logger.FieldRequestID] == nil {
				t.Errorf("expected request id in log line %v", line)
			}
		})
	}
}

func TestStatusWriter_FlushesThroughController(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newStatusWriter(rec)

	if err := http.NewResponseController(sw).Flush(); err != nil {
		t.Fatalf("Flush through wrapper failed: %v", err)
	}
	if !rec.Flushed {
		t.Error("expected underlying recorder to be flushed")
	}
	if sw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestRequestLogger_CustomQuietPaths(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(logger.NewWithWriter(&buf, "test"), "/events")(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected /events to be quiet, got %q", buf.String())
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(buf.String(), `"path":"/health"`) {
		t.Errorf("expected /health to be logged once defaults are replaced, got %q", buf.String())
	}
}

func TestCORS(t *testing.T) {
	wildcard := []string{"*"}
	app := []string{"https://app.example"}
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		wantStatus int
		wantOrigin string
		wantCreds  string
		wantNext   bool
	}{
		{"wildcard echoes origin", CORSConfig{AllowedOrigins: wildcard}, http.MethodGet, "https://app.example", http.StatusOK, "https://app.example", "", true},
		{"wildcard with credentials", CORSConfig{AllowedOrigins: wildcard, AllowCredentials: true}, http.MethodGet, "https://app.example", http.StatusOK, "https://app.example", "true", true},
		{"disallowed origin", CORSConfig{AllowedOrigins: app, AllowCredentials: true}, http.MethodGet, "https://evil.example", http.StatusOK, "", "", true},
		{"no origin", CORSConfig{AllowedOrigins: wildcard}, http.MethodGet, "", http.StatusOK, "", "", true},
		{"preflight", CORSConfig{AllowedOrigins: app}, http.MethodOptions, "https://app.example", http.StatusNoContent, "https://app.example", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			h := CORS(tc.cfg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { ran = true }))

			req := httptest.NewRequest(tc.method, "/events", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
				t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, tc.wantCreds)
			}
			if got := rec.Header().Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want Origin", got)
			}
			if ran != tc.wantNext {
				t.Errorf("next ran = %v, want %v", ran, tc.wantNext)
			}
		})
	}
}

func TestCORSConfig_ApplyDefaults(t *testing.T) {
	cfg := CORSConfig{Enabled: true}
	cfg.ApplyDefaults()
	if strings.Join(cfg.AllowedOrigins, ",") != "*" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if !strings.Contains(strings.Join(cfg.AllowedHeaders, ","), "Last-Event-ID") {
		t.Errorf("expected Last-Event-ID in allowed headers, got %v", cfg.AllowedHeaders)
	}
}

func TestBodySizeLimit(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		tooLarge bool
	}{
		{"under limit", "abc", false},
		{"at limit", "abcd", false},
		{"over limit", "abcde", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var readErr error
			h := BodySizeLimit(4)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))

			var mbe *http.MaxBytesError
			if got := stderrors.As(readErr, &mbe); got != tc.tooLarge {
				t.Fatalf("MaxBytesError = %v, want %v (err %v)", got, tc.tooLarge, readErr)
			}
			if tc.tooLarge && mbe.Limit != 4 {
				t.Errorf("limit = %d, want 4", mbe.Limit)
			}
		})
	}
}

func TestGinBodySizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/upload", GinBodySizeLimit(4), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("too long")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	start := time.Now()

	steps := []struct {
		key   string
		at    time.Duration
		allow bool
	}{
		{"a", 0, true},
		{"a", time.Second, true},
		{"a", 2 * time.Second, false},
		{"b", 2 * time.Second, true},
		{"a", 61 * time.Second, true},
	}
	for i, st := range steps {
		if got := rl.allow(st.key, start.Add(st.at)); got != st.allow {
			t.Errorf("step %d (%s at %s): allow = %v, want %v", i, st.key, st.at, got, st.allow)
		}
	}
}

func TestRateLimiter_SweepsIdleKeys(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	start := time.Now()
	rl.allow("idle", start)
	rl.allow("active", start.Add(6*time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.requests["idle"]; ok {
		t.Error("expected idle key to be swept")
	}
	if _, ok := rl.requests["active"]; !ok {
		t.Error("expected active key to be kept")
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/channels/:channel", RateLimit(RateLimitConfig{RequestsPerMinute: 1}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for range 2 {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/channels/news", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			var body errors.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Error.Code != errors.ErrCodeRateLimited || !body.Error.Retryable {
				t.Errorf("unexpected error body %+v", body.Error)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After header")
			}
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestGinWrap_AbortsWhenNextSkipped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	reached := false
	engine := gin.New()
	engine.GET("/", GinWrap(deny), func(*gin.Context) { reached = true })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden || reached {
		t.Errorf("status = %d, handler reached = %v", rec.Code, reached)
	}
}

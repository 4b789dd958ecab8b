package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogger points the global logger at a buffer for the test.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// accessChain mounts the production order: RequestID, RedactingLogger, Recovery.
func accessChain() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	return r
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/delay/calculate/:bookingId", func(c *gin.Context) {
		seen = c.GetString(requestIDKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/delay/calculate/b1", nil))
	if seen == "" || w.Header().Get(requestIDHeader) != seen {
		t.Fatalf("minted id: context=%q header=%q", seen, w.Header().Get(requestIDHeader))
	}

	for _, name := range []string{requestIDHeader, strings.ToLower(requestIDHeader)} {
		req := httptest.NewRequest(http.MethodGet, "/delay/calculate/b1", nil)
		req.Header.Set(name, "rid-from-gateway")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if seen != "rid-from-gateway" || w.Header().Get(requestIDHeader) != "rid-from-gateway" {
			t.Fatalf("%s not propagated: context=%q header=%q", name, seen, w.Header().Get(requestIDHeader))
		}
	}
}

func TestRequestIDFallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got []string
	r.GET("/ctx", func(c *gin.Context) {
		c.Set(requestIDKey, "from-ctx")
		got = append(got, requestID(c))
	})
	r.GET("/resp", func(c *gin.Context) {
		c.Writer.Header().Set(requestIDHeader, "from-resp")
		got = append(got, requestID(c))
	})
	r.GET("/req", func(c *gin.Context) { got = append(got, requestID(c)) })

	for _, p := range []string{"/ctx", "/resp", "/req"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set(requestIDHeader, "from-req")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	want := []string{"from-ctx", "from-resp", "from-req"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("requestID #%d = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestRecovery(t *testing.T) {
	buf := captureLogger(t)
	r := accessChain()
	r.POST("/admin/delay/approve/:id", func(c *gin.Context) { panic("store exploded") })
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "half")
		panic("after write")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/delay/approve/7", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] == "" || body["request_id"] != w.Header().Get(requestIDHeader) {
		t.Fatalf("envelope = %v, header id %q", body, w.Header().Get(requestIDHeader))
	}
	if !strings.Contains(buf.String(), `"message":"panic recovered"`) || !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("panic not logged with stack:\n%s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("envelope written after the handler already wrote: %q", w.Body.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	buf := captureLogger(t)
	gin.SetMode(gin.TestMode)
	bare := gin.New()
	bare.GET("/x", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("fallback")
		c.Status(http.StatusOK)
	})
	bare.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if !strings.Contains(buf.String(), `"message":"fallback"`) || strings.Contains(buf.String(), `"request_id"`) {
		t.Fatalf("fallback logger output:\n%s", buf.String())
	}

	buf = captureLogger(t)
	r := accessChain()
	r.GET("/x", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("handler")
		// services log through the request context
		zerolog.Ctx(c.Request.Context()).Info().Msg("service")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if (strings.Contains(line, `"message":"handler"`) || strings.Contains(line, `"message":"service"`)) &&
			!strings.Contains(line, `"request_id"`) {
			t.Fatalf("scoped line missing request_id: %s", line)
		}
	}
	if !strings.Contains(buf.String(), `"message":"service"`) {
		t.Fatalf("context logger not attached:\n%s", buf.String())
	}
}

func TestTruncateAndAsString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"DLY-ABCDEFGHJK", 20, "DLY-ABCDEFGHJK"},
		{"DLY-ABCDEFGHJK", 4, "DLY-…"},
		{"status=pending", 0, "status=pending"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q,%d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
	if asString("x") != "x" || asString(42) != "" {
		t.Fatal("asString")
	}
}

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestFail(t *testing.T) {
	cases := []struct {
		status  int
		code    string
		wantLog bool
	}{
		{http.StatusConflict, ErrCodeConflict, false},
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusServiceUnavailable, ErrCodeUnavailable, true},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			var buf bytes.Buffer
			lg := zerolog.New(&buf)
			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Writer.Header().Set("X-Request-ID", "rid-"+tc.code)
				c.Set("logger", &lg)
				c.Next()
			})
			r.POST("/admin/delay/approve/:id", func(c *gin.Context) {
				_ = c.Error(errors.New("store unreachable"))
				Fail(c, tc.status, tc.code, "msg")
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/delay/approve/9", nil))
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body != (ErrorResponse{RequestID: "rid-" + tc.code, Code: tc.code, Message: "msg"}) {
				t.Fatalf("body = %+v", body)
			}
			logged := strings.Contains(buf.String(), `"message":"api error"`)
			if logged != tc.wantLog {
				t.Fatalf("logged = %v; want %v (%s)", logged, tc.wantLog, buf.String())
			}
			if logged && !strings.Contains(buf.String(), `"error":"store unreachable"`) {
				t.Fatalf("recorded error missing from log: %s", buf.String())
			}
		})
	}
}

func TestNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts := time.Unix(1700000000, 5)
	etag := weakETag("compensations", "pending:p1:s20", 3, &ts)
	if etag != `W/"compensations:pending:p1:s20:3:1700000000000000005"` {
		t.Fatalf("etag = %s", etag)
	}
	if got := weakETag("compensations", "applied", 0, nil); got != `W/"compensations:applied:0:0"` {
		t.Fatalf("empty collection etag = %s", got)
	}

	r := gin.New()
	r.GET("/admin/delay/pending", func(c *gin.Context) {
		if notModified(c, etag) {
			return
		}
		ok(c, http.StatusOK, gin.H{"items": []string{}})
	})

	cases := []struct {
		inm  string
		want int
	}{
		{"", http.StatusOK},
		{`W/"compensations:pending:p2:s20:3:1700000000000000005"`, http.StatusOK},
		{etag, http.StatusNotModified},
		{`W/"other", ` + etag, http.StatusNotModified},
		{"*", http.StatusNotModified},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin/delay/pending", nil)
		if tc.inm != "" {
			req.Header.Set("If-None-Match", tc.inm)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want || w.Header().Get("ETag") != etag {
			t.Fatalf("If-None-Match %q: status %d etag %q", tc.inm, w.Code, w.Header().Get("ETag"))
		}
		if tc.want == http.StatusNotModified && w.Body.Len() != 0 {
			t.Fatalf("304 with a body: %q", w.Body.String())
		}
	}
}

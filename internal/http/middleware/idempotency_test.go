package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIdempotencyMarks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/delay/calculate", nil)

	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
		t.Fatal("fresh context carries idempotency marks")
	}
	c.Set(ctxKeyIdemKey, 123)
	c.Set(ctxKeyIdemReplay, "yes")
	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
		t.Fatal("mistyped marks must read as absent")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatal("replay mark not read")
	}

	callers := []struct {
		ctxVal any
		header string
		want   string
	}{
		{nil, "", "demo-user"},
		{42, "", "demo-user"},
		{nil, " booker-7 ", "booker-7"},
		{"booker-1", "booker-7", "booker-1"},
	}
	for _, tc := range callers {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/delay/calculate", nil)
		if tc.ctxVal != nil {
			c.Set("userID", tc.ctxVal)
		}
		if tc.header != "" {
			c.Request.Header.Set("X-User-ID", tc.header)
		}
		if got := userIDFromCtx(c); got != tc.want {
			t.Fatalf("userIDFromCtx(%v,%q) = %q; want %q", tc.ctxVal, tc.header, got, tc.want)
		}
	}
}

func TestIdempotencyValidator_KeyValidation(t *testing.T) {
	cases := []struct {
		name     string
		opts     IdempotencyOptions
		key      string
		wantCode int
		wantKey  string
	}{
		{"no header", IdempotencyOptions{}, "", http.StatusOK, ""},
		{"default pattern", IdempotencyOptions{}, "calc:b-1:2026-03-01", http.StatusOK, "calc:b-1:2026-03-01"},
		{"space rejected", IdempotencyOptions{}, "calc b-1", http.StatusBadRequest, ""},
		{"too long", IdempotencyOptions{MaxLen: 5}, "abcdef", http.StatusBadRequest, ""},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc123", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			lookups := 0
			r := gin.New()
			r.Use(IdempotencyValidator(tc.opts, func(context.Context, string, string, string, time.Time) (bool, error) {
				lookups++
				return false, nil
			}))
			var gotKey string
			r.POST("/delay/calculate", func(c *gin.Context) {
				gotKey, _ = GetIdempotencyKey(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/delay/calculate", nil)
			if tc.key != "" {
				req.Header.Set(HeaderIdempotencyKey, tc.key)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d; want %d", w.Code, tc.wantCode)
			}
			if gotKey != tc.wantKey {
				t.Fatalf("key = %q; want %q", gotKey, tc.wantKey)
			}
			if w.Code == http.StatusBadRequest {
				var body map[string]string
				_ = json.Unmarshal(w.Body.Bytes(), &body)
				if body["code"] != "bad_idempotency_key" {
					t.Fatalf("body = %v", body)
				}
			}
			if wantLookups := map[bool]int{true: 1, false: 0}[tc.wantKey != ""]; lookups != wantLookups {
				t.Fatalf("lookups = %d; want %d", lookups, wantLookups)
			}
		})
	}
}

func TestIdempotencyValidator_Lookup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("miss uses route pattern as default scope", func(t *testing.T) {
		r := gin.New()
		lookup := func(_ context.Context, userID, scope, key string, now time.Time) (bool, error) {
			if userID != "demo-user" || key != "key-1" || now.IsZero() {
				t.Fatalf("lookup args: uid=%q key=%q now=%v", userID, key, now)
			}
			if scope != "/bookings/:id/assess" {
				t.Fatalf("scope = %q", scope)
			}
			return false, nil
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
		r.POST("/bookings/:id/assess", func(c *gin.Context) {
			if IsReplay(c) || IsRateBypass(c) {
				t.Fatalf("no replay/bypass expected on miss")
			}
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/bookings/b1/assess", nil)
		req.Header.Set(HeaderIdempotencyKey, "key-1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("hit with explicit scope and header user", func(t *testing.T) {
		r := gin.New()
		lookup := func(_ context.Context, userID, scope, key string, _ time.Time) (bool, error) {
			if userID != "u9" || scope != "delay.calculate" || key != "k-9" {
				t.Fatalf("lookup args: %q %q %q", userID, scope, key)
			}
			return true, nil
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{
			Scope: func(*gin.Context) string { return "delay.calculate" },
		}, lookup))
		r.POST("/delay/calculate", func(c *gin.Context) {
			if !IsReplay(c) || !IsRateBypass(c) {
				t.Fatalf("expected replay and bypass on hit")
			}
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/delay/calculate", nil)
		req.Header.Set(HeaderIdempotencyKey, "k-9")
		req.Header.Set("X-User-ID", "u9")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("lookup error is a miss", func(t *testing.T) {
		r := gin.New()
		lookup := func(context.Context, string, string, string, time.Time) (bool, error) {
			return true, errors.New("store down")
		}
		r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
		r.POST("/x", func(c *gin.Context) {
			if IsReplay(c) {
				t.Fatalf("lookup error must not mark replay")
			}
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(HeaderIdempotencyKey, "k")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

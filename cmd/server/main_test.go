package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/go-delay-guarantee/internal/config"
)

func TestNewHTTPServer_UsesConfiguredLimits(t *testing.T) {
	cfg := config.Config{
		Port:              "9090",
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      4 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    8 << 10,
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	srv := newHTTPServer(cfg, h)
	if srv.Addr != ":9090" {
		t.Fatalf("addr = %q", srv.Addr)
	}
	if srv.ReadTimeout != cfg.ReadTimeout || srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		srv.WriteTimeout != cfg.WriteTimeout || srv.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("timeouts not applied: %+v", srv)
	}
	if srv.MaxHeaderBytes != cfg.MaxHeaderBytes {
		t.Fatalf("max header bytes = %d", srv.MaxHeaderBytes)
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("handler not wired, code = %d", w.Code)
	}
}

package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestCheckReachableHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Design mockups v2</title></head><body>ok</body></html>`))
	}))
	defer srv.Close()

	c := NewChecker(2000, 0, zap.NewNop())
	result := c.Check(context.Background(), srv.URL)

	if !result.Reachable {
		t.Fatal("expected link to be reachable")
	}
	if result.Title != "Design mockups v2" {
		t.Errorf("Title = %q, want %q", result.Title, "Design mockups v2")
	}
}

func TestCheckNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK"))
	}))
	defer srv.Close()

	c := NewChecker(2000, 0, zap.NewNop())
	result := c.Check(context.Background(), srv.URL)

	if !result.Reachable {
		t.Fatal("expected link to be reachable")
	}
	if result.Title != "" {
		t.Errorf("Title = %q, want empty for non-HTML", result.Title)
	}
}

func TestCheckNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewChecker(2000, 0, zap.NewNop())
	result := c.Check(context.Background(), srv.URL)

	if result.Reachable {
		t.Error("404 link should be unreachable")
	}
}

func TestCheckBadURL(t *testing.T) {
	c := NewChecker(2000, 0, zap.NewNop())

	tests := []string{
		"not-a-url",
		"ftp://example.com/file",
		"",
	}
	for _, u := range tests {
		if result := c.Check(context.Background(), u); result.Reachable {
			t.Errorf("Check(%q) should not be reachable", u)
		}
	}
}

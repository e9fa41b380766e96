package prerender

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func upstreamResponse(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestTranslateRedirect(t *testing.T) {
	h := http.Header{}
	h.Set("Location", "https://shop.example/new")
	out := Translate(upstreamResponse(http.StatusMovedPermanently, h, ""), false)

	if out.Kind != Redirect {
		t.Fatalf("Kind = %v, want Redirect", out.Kind)
	}
	if out.Status != http.StatusMovedPermanently {
		t.Errorf("Status = %d, want 301", out.Status)
	}
	if out.Location != "https://shop.example/new" {
		t.Errorf("Location = %q", out.Location)
	}
}

func TestTranslateRedirectSoftMode(t *testing.T) {
	// Soft mode serves the 3xx verbatim instead of translating it.
	h := http.Header{}
	h.Set("Location", "https://shop.example/new")
	out := Translate(upstreamResponse(http.StatusFound, h, "moved"), true)

	if out.Kind != Respond {
		t.Fatalf("Kind = %v, want Respond", out.Kind)
	}
	if out.Status != http.StatusFound {
		t.Errorf("Status = %d, want 302", out.Status)
	}
	out.Response.Body.Close()
}

func TestTranslateRespond(t *testing.T) {
	out := Translate(upstreamResponse(http.StatusOK, nil, "<html>ok</html>"), false)
	if out.Kind != Respond {
		t.Fatalf("Kind = %v, want Respond", out.Kind)
	}
	if out.Response == nil {
		t.Fatal("Response should be set")
	}
	out.Response.Body.Close()
}

func TestWriteRespond(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "max-age=300")
	h.Set("Connection", "keep-alive")
	h.Set("Transfer-Encoding", "chunked")

	rec := httptest.NewRecorder()
	if err := WriteRespond(rec, upstreamResponse(http.StatusOK, h, "<html>rendered</html>")); err != nil {
		t.Fatalf("WriteRespond() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "max-age=300" {
		t.Errorf("Cache-Control = %q", got)
	}
	if rec.Header().Get("Connection") != "" {
		t.Error("hop-by-hop Connection header should be stripped")
	}
	if rec.Header().Get("Transfer-Encoding") != "" {
		t.Error("hop-by-hop Transfer-Encoding header should be stripped")
	}
	if rec.Body.String() != "<html>rendered</html>" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{Passthrough, "passthrough"},
		{Redirect, "redirect"},
		{Respond, "respond"},
		{Terminate, "terminate"},
		{Propagate, "propagate"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}

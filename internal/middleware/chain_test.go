package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func tagMiddleware(tag string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Tags", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChainOrder(t *testing.T) {
	chain := NewChain(tagMiddleware("first"), tagMiddleware("second"))
	handler := chain.ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	tags := rec.Header().Values("X-Tags")
	if len(tags) != 2 || tags[0] != "first" || tags[1] != "second" {
		t.Errorf("unexpected middleware order: %v", tags)
	}
}

func TestChainAppend(t *testing.T) {
	base := NewChain(tagMiddleware("a"))
	extended := base.Append(tagMiddleware("b"))

	if base.Len() != 1 {
		t.Error("Append must not mutate the original chain")
	}
	if extended.Len() != 2 {
		t.Errorf("expected extended chain of 2, got %d", extended.Len())
	}
}

func TestBuilderUseIf(t *testing.T) {
	b := NewBuilder().
		Use(tagMiddleware("always")).
		UseIf(false, tagMiddleware("never")).
		UseIf(true, tagMiddleware("sometimes"))

	handler := b.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	tags := rec.Header().Values("X-Tags")
	if len(tags) != 2 || tags[0] != "always" || tags[1] != "sometimes" {
		t.Errorf("unexpected tags: %v", tags)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if captured == "" {
		t.Fatal("expected a generated request ID")
	}
	if rec.Header().Get(RequestIDHeader) != captured {
		t.Error("response header should carry the request ID")
	}
}

func TestRequestIDTrusted(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "incoming-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured != "incoming-id" {
		t.Errorf("expected incoming ID to be trusted, got %q", captured)
	}
}

func TestRecoveryConvertsPanicTo500(t *testing.T) {
	handler := Recovery()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != 500 {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got %s", ct)
	}
}

func TestAccessLogCapturesStatus(t *testing.T) {
	handler := AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(418)
		w.Write([]byte("teapot"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != 418 {
		t.Errorf("expected 418, got %d", rec.Code)
	}
	if rec.Body.String() != "teapot" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestAccessLogSkipPaths(t *testing.T) {
	var served bool
	handler := AccessLogWithConfig(AccessLogConfig{SkipPaths: []string{"/healthz"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = true
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	if !served {
		t.Error("skipped path must still reach the handler")
	}
}

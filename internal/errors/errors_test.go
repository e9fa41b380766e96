package errors

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestWriteJSONBaseError(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrNotFound.WriteJSON(rec)

	if rec.Code != 404 {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["message"] != "Not Found" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestWriteJSONWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrBadGateway.WithDetails("render service unreachable").WriteJSON(rec)

	if rec.Code != 502 {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["details"] != "render service unreachable" {
		t.Errorf("unexpected details: %v", body["details"])
	}
}

func TestWithDetailsDoesNotMutateBase(t *testing.T) {
	derived := ErrNotFound.WithDetails("x")
	if ErrNotFound.Details != "" {
		t.Error("base error was mutated")
	}
	if derived == ErrNotFound {
		t.Error("WithDetails should return a copy")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(cause, 502, "upstream failed")

	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
	if wrapped.Error() != "upstream failed: connection refused" {
		t.Errorf("unexpected Error(): %s", wrapped.Error())
	}
}

func TestIsHTTPError(t *testing.T) {
	if _, ok := IsHTTPError(errors.New("plain")); ok {
		t.Error("plain error should not be an HTTPError")
	}
	if he, ok := IsHTTPError(ErrBadRequest); !ok || he.Code != 400 {
		t.Error("expected HTTPError with code 400")
	}
}

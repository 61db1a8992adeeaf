package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler(ctx context.Context, raw []byte, clientIdentity string) ([]byte, error) {
	if string(raw) == "notify" {
		return nil, nil
	}
	return raw, nil
}

func TestHTTPStream_EchoesBody(t *testing.T) {
	h := NewHTTPStream(echoHandler, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"jsonrpc":"2.0","id":1,"method":"ping"}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header to be set")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type: %s", rec.Header().Get("Content-Type"))
	}
}

func TestHTTPStream_NotificationReturns202NoBody(t *testing.T) {
	h := NewHTTPStream(echoHandler, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("notify"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}

func TestHTTPStream_RejectsNonPost(t *testing.T) {
	h := NewHTTPStream(echoHandler, nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHTTPStream_RejectsOversizedBody(t *testing.T) {
	h := NewHTTPStream(echoHandler, nil, 8)
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("this body is definitely too long"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestHTTPStream_UsesAPIKeyHeaderAsIdentity(t *testing.T) {
	var gotIdentity string
	h := NewHTTPStream(func(ctx context.Context, raw []byte, clientIdentity string) ([]byte, error) {
		gotIdentity = clientIdentity
		return raw, nil
	}, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("x"))
	req.Header.Set("X-API-Key", "caller-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if gotIdentity != "caller-key" {
		t.Fatalf("expected identity from X-API-Key header, got %q", gotIdentity)
	}
}

func TestHTTPStream_HandlerErrorReturns500(t *testing.T) {
	h := NewHTTPStream(func(ctx context.Context, raw []byte, clientIdentity string) ([]byte, error) {
		return nil, errBoom
	}, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}

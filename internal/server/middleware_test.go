package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// RequestIDMiddleware Tests
// =============================================================================

func TestRequestIDMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("Expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RequestIDMiddleware(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestRequestIDMiddleware_UniqueIDs(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RequestIDMiddleware(handler)

	req1 := httptest.NewRequest("GET", "/", nil)
	rec1 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest("GET", "/", nil)
	rec2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec2, req2)

	id1 := rec1.Header().Get("X-Request-ID")
	id2 := rec2.Header().Get("X-Request-ID")

	if id1 == id2 {
		t.Errorf("Expected unique request IDs, got same: %s", id1)
	}
}

func TestGetRequestID_NotSet(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("Expected empty string, got %q", id)
	}
}

// =============================================================================
// TimeoutMiddleware Tests
// =============================================================================

func TestTimeoutMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("Expected context to have deadline")
		}
		if deadline.IsZero() {
			t.Error("Expected non-zero deadline")
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := TimeoutMiddleware(30 * time.Second)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestTimeoutMiddleware_Disabled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("Expected no deadline when timeout is zero")
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := TimeoutMiddleware(0)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)
}

func TestTimeoutMiddleware_ContextCancelled(t *testing.T) {
	contextCancelled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			contextCancelled = true
		case <-time.After(100 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := TimeoutMiddleware(10 * time.Millisecond)(handler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if !contextCancelled {
		t.Error("Expected context to be cancelled due to timeout")
	}
}

// =============================================================================
// LoggingMiddleware Tests
// =============================================================================

func TestLoggingMiddleware(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	wrapped := RequestIDMiddleware(LoggingMiddleware(logger)(testHandler))

	req := httptest.NewRequest("GET", "/test-path", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()
	if !strings.Contains(output, "request completed") {
		t.Error("Expected 'request completed' in log output")
	}
	if !strings.Contains(output, "/test-path") {
		t.Error("Expected path in log output")
	}
	if !strings.Contains(output, "status=200") {
		t.Errorf("Expected status in log output, got: %s", output)
	}
}

func TestAddLogField(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "custom_field", "custom_value")
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingMiddleware(logger)(testHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()
	if !strings.Contains(output, "custom_field") || !strings.Contains(output, "custom_value") {
		t.Errorf("Expected custom field in log output, got: %s", output)
	}
}

func TestAddLogField_EmptyValue(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "empty_field", "")
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingMiddleware(logger)(testHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if strings.Contains(buf.String(), "empty_field") {
		t.Errorf("Empty field should not be in log output, got: %s", buf.String())
	}
}

func TestAddLogField_NoContext(t *testing.T) {
	// Should not panic without the middleware present
	AddLogField(context.Background(), "key", "value")
}

func TestAddError(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddError(r.Context(), errors.New("test error message"))
		w.WriteHeader(http.StatusInternalServerError)
	})

	wrapped := LoggingMiddleware(logger)(testHandler)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	output := buf.String()
	if !strings.Contains(output, "error") || !strings.Contains(output, "test error message") {
		t.Errorf("Expected error in log output, got: %s", output)
	}
}

func TestAddError_Nil(t *testing.T) {
	// Should not panic
	AddError(context.Background(), nil)
}

// =============================================================================
// loggingResponseWriter Tests
// =============================================================================

func TestLoggingResponseWriter_FlushPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &loggingResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	// httptest.ResponseRecorder implements http.Flusher
	var w http.ResponseWriter = wrapped
	f, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("wrapped writer must expose http.Flusher for SSE")
	}
	f.Flush()

	if !rec.Flushed {
		t.Error("Flush was not forwarded to the underlying writer")
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID_GeneratesID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	w := httptest.NewRecorder()
	RequestID(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", seen, err)
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("response header = %q, want %q", got, seen)
	}
}

func TestRequestID_KeepsClientUUID(t *testing.T) {
	clientID := uuid.NewString()

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, clientID)
	RequestID(next).ServeHTTP(httptest.NewRecorder(), r)

	if seen != clientID {
		t.Fatalf("request id = %q, want %q", seen, clientID)
	}
}

func TestRequestID_ReplacesGarbage(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "<script>")
	RequestID(next).ServeHTTP(httptest.NewRecorder(), r)

	if seen == "<script>" || seen == "" {
		t.Fatalf("unexpected request id %q", seen)
	}
}

func TestLogger_WritesStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(zap.New(core)))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[0].ContextMap()["status"] != int64(http.StatusOK) {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Level != zap.ErrorLevel || entries[1].ContextMap()["status"] != int64(http.StatusServiceUnavailable) {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[1].ContextMap()["request_id"] == "" {
		t.Fatalf("request id not logged")
	}
}

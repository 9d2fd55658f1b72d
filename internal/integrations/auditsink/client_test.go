package auditsink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"babettepos/internal/domain"
)

func TestPublishRetriesAndSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if r.Header.Get("X-Idempotency-Key") != "evt-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream error"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, 3, 5*time.Millisecond, 20*time.Millisecond)
	err := client.Publish(context.Background(), domain.AuditEvent{
		ID:   "evt-1",
		Type: domain.AuditLoginFailure,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestPublishFailsAfterMaxRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, 2, 5*time.Millisecond, 20*time.Millisecond)
	err := client.Publish(context.Background(), domain.AuditEvent{ID: "evt-fail", Type: domain.AuditLoginFailure})
	if err == nil {
		t.Fatalf("expected failure, got nil")
	}
	if atomic.LoadInt32(&attempts) != 3 { // initial + 2 retries
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestPublishDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, 3, 5*time.Millisecond, 20*time.Millisecond)
	if err := client.Publish(context.Background(), domain.AuditEvent{ID: "evt-422"}); err == nil {
		t.Fatal("expected failure on 422")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestPublishBodyAndHeaders(t *testing.T) {
	var got domain.AuditEvent
	var eventType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eventType = r.Header.Get("X-Event-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second, 0, time.Millisecond, time.Millisecond)
	err := client.Publish(context.Background(), domain.AuditEvent{
		ID: "evt-2", Type: domain.AuditLoginSuccess, UID: 7, Username: "kassa", IP: "10.0.0.2",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if eventType != "login_success" {
		t.Fatalf("unexpected event type header %q", eventType)
	}
	if got.Username != "kassa" || got.UID != 7 {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestPublishWithoutURLIsNoop(t *testing.T) {
	client := NewClient("", time.Second, 3, time.Millisecond, time.Millisecond)
	if client.Enabled() {
		t.Fatal("expected disabled client")
	}
	if err := client.Publish(context.Background(), domain.AuditEvent{ID: "x"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

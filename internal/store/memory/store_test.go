package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"babettepos/internal/domain"
	"babettepos/internal/store"
)

var _ store.AuditStore = (*Store)(nil)

func TestAppendFillsIDAndTime(t *testing.T) {
	s := NewStore(10)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ev := s.AppendAudit(domain.AuditEvent{Type: domain.AuditLoginSuccess, Username: "kassa", IP: "10.0.0.2"})
	if ev.ID == "" {
		t.Fatal("expected event id to be set")
	}
	if !ev.CreatedAt.Equal(fixed) {
		t.Fatalf("expected created_at %v, got %v", fixed, ev.CreatedAt)
	}

	kept := s.AppendAudit(domain.AuditEvent{ID: "given", Type: domain.AuditLogout})
	if kept.ID != "given" {
		t.Fatalf("expected caller id to be kept, got %s", kept.ID)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewStore(10)
	for i := range 5 {
		s.AppendAudit(domain.AuditEvent{Username: fmt.Sprintf("user-%d", i)})
	}
	got := s.ListAudit(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Username != "user-4" || got[2].Username != "user-2" {
		t.Fatalf("unexpected order: %s .. %s", got[0].Username, got[2].Username)
	}
	if empty := NewStore(1).ListAudit(5); empty == nil || len(empty) != 0 {
		t.Fatal("expected empty non-nil slice")
	}
}

func TestDropsOldestWhenFull(t *testing.T) {
	s := NewStore(3)
	for i := range 5 {
		s.AppendAudit(domain.AuditEvent{Username: fmt.Sprintf("user-%d", i)})
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 events retained, got %d", s.Len())
	}
	got := s.ListAudit(10)
	if got[len(got)-1].Username != "user-2" {
		t.Fatalf("expected oldest retained to be user-2, got %s", got[len(got)-1].Username)
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := NewStore(1000)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendAudit(domain.AuditEvent{Type: domain.AuditLoginFailure})
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("expected 50 events, got %d", s.Len())
	}
}

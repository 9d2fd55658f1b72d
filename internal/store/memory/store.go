package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"babettepos/internal/domain"
)

const (
	DefaultMaxEvents = 1000
	defaultListLimit = 20
)

// Store is a bounded in-process audit log. Once full, the oldest events are
// dropped. Contents do not survive a restart.
type Store struct {
	mu        sync.RWMutex
	maxEvents int
	now       func() time.Time
	events    []domain.AuditEvent
}

func NewStore(maxEvents int) *Store {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Store{
		maxEvents: maxEvents,
		now:       time.Now,
		events:    make([]domain.AuditEvent, 0, min(maxEvents, 256)),
	}
}

// AppendAudit fills in ID and CreatedAt when unset and returns the stored event.
func (s *Store) AppendAudit(event domain.AuditEvent) domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	s.events = append(s.events, event)
	if over := len(s.events) - s.maxEvents; over > 0 {
		s.events = slices.Delete(s.events, 0, over)
	}
	return event
}

// ListAudit returns up to limit events, newest first.
func (s *Store) ListAudit(limit int) []domain.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(s.events) == 0 {
		return []domain.AuditEvent{}
	}
	start := max(len(s.events)-limit, 0)
	out := slices.Clone(s.events[start:])
	slices.Reverse(out)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

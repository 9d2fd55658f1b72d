package store

import "babettepos/internal/domain"

// AuditStore keeps the login audit trail used by the HTTP layer.
type AuditStore interface {
	AppendAudit(event domain.AuditEvent) domain.AuditEvent
	ListAudit(limit int) []domain.AuditEvent
}

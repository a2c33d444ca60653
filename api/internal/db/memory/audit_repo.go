package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
)

// AuditRepository is an append-only in-memory audit log.
type AuditRepository struct {
	mu     sync.RWMutex
	events []domain.CredentialEvent
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Record(_ context.Context, event *domain.CredentialEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// ListByOwner returns newest events first.
func (r *AuditRepository) ListByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]domain.CredentialEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.CredentialEvent{}
	for i := len(r.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.events[i].OwnerID == ownerID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

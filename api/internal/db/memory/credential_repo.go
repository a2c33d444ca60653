package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
)

type credentialKey struct {
	owner    uuid.UUID
	provider domain.Provider
}

// CredentialRepository keeps sealed credentials in process memory. It follows
// the same optimistic locking rules as the Postgres implementation.
type CredentialRepository struct {
	mu      sync.RWMutex
	records map[credentialKey]domain.Credential
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{records: make(map[credentialKey]domain.Credential)}
}

func (r *CredentialRepository) Get(_ context.Context, ownerID uuid.UUID, provider domain.Provider) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[credentialKey{ownerID, provider}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *CredentialRepository) List(_ context.Context, ownerID uuid.UUID) ([]domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Credential
	for key, rec := range r.records {
		if key.owner == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (r *CredentialRepository) Upsert(_ context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := credentialKey{cred.OwnerID, cred.Provider}
	existing, exists := r.records[key]
	now := time.Now().UTC()

	switch {
	case cred.Version == 0 && exists:
		return domain.ErrConcurrencyConflict
	case cred.Version == 0:
		if cred.ID == uuid.Nil {
			cred.ID = uuid.New()
		}
		cred.CreatedAt = now
	case !exists || existing.Version != cred.Version:
		return domain.ErrConcurrencyConflict
	default:
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
	}

	cred.Version++
	cred.UpdatedAt = now
	r.records[key] = *cred
	return nil
}

func (r *CredentialRepository) Delete(_ context.Context, ownerID uuid.UUID, provider domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := credentialKey{ownerID, provider}
	if _, ok := r.records[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records, key)
	return nil
}

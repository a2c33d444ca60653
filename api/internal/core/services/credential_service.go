package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
	"github.com/taskpilot/taskpilot/api/internal/core/utils"
	"github.com/taskpilot/taskpilot/api/internal/infrastructure/crypto"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 100
)

// CredentialService seals user credentials before they reach the repository and
// only ever hands masked values back to clients.
type CredentialService struct {
	repo   domain.CredentialRepository
	audit  domain.AuditRepository
	cipher domain.SecretCipher
	logger *slog.Logger
}

func NewCredentialService(
	repo domain.CredentialRepository,
	audit domain.AuditRepository,
	cipher domain.SecretCipher,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		repo:   repo,
		audit:  audit,
		cipher: cipher,
		logger: logger,
	}
}

// Save encrypts plaintext and stores it for the owner. An empty plaintext
// clears the credential while keeping the row.
func (s *CredentialService) Save(ctx context.Context, ownerID uuid.UUID, provider domain.Provider, plaintext string) (*domain.CredentialView, error) {
	if !provider.Valid() {
		return nil, domain.ErrInvalidProvider
	}

	envelope, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		s.logger.Error("Credential encryption failed",
			slog.String("owner_id", ownerID.String()),
			slog.String("provider", string(provider)),
			slog.Any("error", err))
		return nil, fmt.Errorf("cryptographic failure: %w", err)
	}

	cred, err := s.repo.Get(ctx, ownerID, provider)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cred = &domain.Credential{
			ID:       uuid.New(),
			OwnerID:  ownerID,
			Provider: provider,
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	// Version is carried over from the loaded row so a concurrent save is
	// rejected by the repository instead of silently overwritten.
	cred.Envelope = envelope
	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	action := domain.ActionCredentialSaved
	if plaintext == "" {
		action = domain.ActionCredentialCleared
	}
	s.record(ctx, ownerID, provider, action)

	return viewOf(cred, plaintext), nil
}

// View returns the masked form of a stored credential.
func (s *CredentialService) View(ctx context.Context, ownerID uuid.UUID, provider domain.Provider) (*domain.CredentialView, error) {
	if !provider.Valid() {
		return nil, domain.ErrInvalidProvider
	}

	cred, err := s.repo.Get(ctx, ownerID, provider)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.open(ctx, cred)
	if err != nil {
		return nil, err
	}
	return viewOf(cred, plaintext), nil
}

// List returns a view for every supported provider. A row that cannot be
// decrypted is flagged for re-entry instead of failing the whole listing.
func (s *CredentialService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.CredentialView, error) {
	stored, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	byProvider := make(map[domain.Provider]*domain.Credential, len(stored))
	for i := range stored {
		byProvider[stored[i].Provider] = &stored[i]
	}

	views := make([]domain.CredentialView, 0, len(domain.Providers))
	for _, provider := range domain.Providers {
		cred, ok := byProvider[provider]
		if !ok {
			views = append(views, domain.CredentialView{Provider: provider})
			continue
		}

		plaintext, err := s.open(ctx, cred)
		switch {
		case errors.Is(err, domain.ErrCredentialUnreadable):
			views = append(views, domain.CredentialView{
				Provider:     provider,
				Configured:   true,
				NeedsReentry: true,
				UpdatedAt:    cred.UpdatedAt,
			})
		case err != nil:
			return nil, err
		default:
			views = append(views, *viewOf(cred, plaintext))
		}
	}
	return views, nil
}

// Reveal returns the plaintext for a single transient use, such as one call to
// the provider's API. The value must not be logged or sent to a client.
// An empty result with a nil error means no credential is configured.
func (s *CredentialService) Reveal(ctx context.Context, ownerID uuid.UUID, provider domain.Provider) (string, error) {
	if !provider.Valid() {
		return "", domain.ErrInvalidProvider
	}

	cred, err := s.repo.Get(ctx, ownerID, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	plaintext, err := s.open(ctx, cred)
	if err != nil {
		return "", err
	}
	if plaintext != "" {
		s.record(ctx, ownerID, provider, domain.ActionCredentialRevealed)
	}
	return plaintext, nil
}

func (s *CredentialService) Delete(ctx context.Context, ownerID uuid.UUID, provider domain.Provider) error {
	if !provider.Valid() {
		return domain.ErrInvalidProvider
	}
	if err := s.repo.Delete(ctx, ownerID, provider); err != nil {
		return err
	}
	s.record(ctx, ownerID, provider, domain.ActionCredentialDeleted)
	return nil
}

// Activity returns the most recent audit events for the owner. The limit
// defaults to 50 and is capped at 100.
func (s *CredentialService) Activity(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.CredentialEvent, error) {
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	return s.audit.ListByOwner(ctx, ownerID, limit)
}

// open decrypts a stored envelope. Corrupted and tampered envelopes both map
// to ErrCredentialUnreadable.
func (s *CredentialService) open(ctx context.Context, cred *domain.Credential) (string, error) {
	plaintext, err := s.cipher.Decrypt(cred.Envelope)
	if err == nil {
		return plaintext, nil
	}

	attrs := []any{
		slog.String("owner_id", cred.OwnerID.String()),
		slog.String("provider", string(cred.Provider)),
		slog.String("kind", crypto.KindOf(err).String()),
	}
	if crypto.IsUnreadable(err) {
		s.logger.Warn("Stored credential could not be decrypted", attrs...)
		s.record(ctx, cred.OwnerID, cred.Provider, domain.ActionCredentialUnreadable)
		return "", domain.ErrCredentialUnreadable
	}

	s.logger.Error("Credential decryption failed", attrs...)
	return "", fmt.Errorf("cryptographic failure: %w", err)
}

// record writes an audit event. Audit failures never fail the request.
func (s *CredentialService) record(ctx context.Context, ownerID uuid.UUID, provider domain.Provider, action string) {
	event := &domain.CredentialEvent{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Provider:  provider,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn("Failed to record credential audit event",
			slog.String("action", action),
			slog.String("owner_id", ownerID.String()),
			slog.Any("error", err))
	}
}

func viewOf(cred *domain.Credential, plaintext string) *domain.CredentialView {
	view := &domain.CredentialView{
		Provider:  cred.Provider,
		UpdatedAt: cred.UpdatedAt,
	}
	if plaintext != "" {
		view.Configured = true
		view.Masked = utils.Mask(plaintext)
	}
	return view
}

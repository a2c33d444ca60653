package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider names a third-party service a user can store a credential for.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{
	ProviderAnthropic,
	ProviderOpenAI,
	ProviderGemini,
	ProviderGitHub,
	ProviderGitLab,
	ProviderBitbucket,
}

func (p Provider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// Credential is a stored third-party secret. Envelope holds the sealed value
// and is never serialized.
type Credential struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Provider  Provider  `json:"provider"`
	Envelope  string    `json:"-"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialView is what a client is allowed to see.
type CredentialView struct {
	Provider     Provider  `json:"provider"`
	Configured   bool      `json:"configured"`
	Masked       string    `json:"masked,omitempty"`
	NeedsReentry bool      `json:"needs_reentry,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CredentialRepository persists sealed credentials, one per owner and provider.
type CredentialRepository interface {
	Get(ctx context.Context, ownerID uuid.UUID, provider Provider) (*Credential, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Credential, error)

	// Upsert inserts a new row when cred.Version is 0, otherwise updates the
	// row only if its version still matches and returns ErrConcurrencyConflict
	// if not. On success cred.Version and timestamps reflect the stored row.
	Upsert(ctx context.Context, cred *Credential) error

	Delete(ctx context.Context, ownerID uuid.UUID, provider Provider) error
}

// Credential audit actions.
const (
	ActionCredentialSaved      = "credential.saved"
	ActionCredentialCleared    = "credential.cleared"
	ActionCredentialDeleted    = "credential.deleted"
	ActionCredentialRevealed   = "credential.revealed"
	ActionCredentialUnreadable = "credential.unreadable"
)

// CredentialEvent is an audit record. It must never contain secret values.
type CredentialEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Provider  Provider  `db:"provider" json:"provider"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type AuditRepository interface {
	Record(ctx context.Context, event *CredentialEvent) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]CredentialEvent, error)
}

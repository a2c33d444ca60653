package services_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
	"github.com/taskpilot/taskpilot/api/internal/core/services"
	"github.com/taskpilot/taskpilot/api/internal/db/memory"
	"github.com/taskpilot/taskpilot/api/internal/infrastructure/crypto"
)

const testEncryptionSecret = "credential-service-test-secret-value"

type credentialFixture struct {
	svc    *services.CredentialService
	repo   *memory.CredentialRepository
	audit  *memory.AuditRepository
	logs   *bytes.Buffer
	owner  uuid.UUID
	cipher *crypto.SecretCipher
}

func newCredentialFixture(t *testing.T) *credentialFixture {
	t.Helper()

	cipher, err := crypto.NewSecretCipher(testEncryptionSecret)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	repo := memory.NewCredentialRepository()
	audit := memory.NewAuditRepository()

	return &credentialFixture{
		svc:    services.NewCredentialService(repo, audit, cipher, logger),
		repo:   repo,
		audit:  audit,
		logs:   logs,
		owner:  uuid.New(),
		cipher: cipher,
	}
}

func (f *credentialFixture) actions(t *testing.T) []string {
	t.Helper()
	events, err := f.audit.ListByOwner(context.Background(), f.owner, 0)
	require.NoError(t, err)
	out := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i].Action)
	}
	return out
}

func TestCredentialService_SaveStoresEnvelopeAndReturnsMaskedView(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()
	key := "sk-ant-REDACTED"

	view, err := f.svc.Save(ctx, f.owner, domain.ProviderAnthropic, key)
	require.NoError(t, err)

	assert.True(t, view.Configured)
	assert.Equal(t, "sk-a"+strings.Repeat("•", 20)+"6789", view.Masked)
	assert.False(t, view.NeedsReentry)

	stored, err := f.repo.Get(ctx, f.owner, domain.ProviderAnthropic)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Envelope)
	assert.NotContains(t, stored.Envelope, key)
	assert.Equal(t, 1, stored.Version)

	plain, err := f.cipher.Decrypt(stored.Envelope)
	require.NoError(t, err)
	assert.Equal(t, key, plain)

	assert.Equal(t, []string{domain.ActionCredentialSaved}, f.actions(t))
	assert.NotContains(t, f.logs.String(), key)
}

func TestCredentialService_SaveTwiceUpdatesSameRow(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.owner, domain.ProviderGitHub, "ghp_firstTokenValue000000000000")
	require.NoError(t, err)
	first, err := f.repo.Get(ctx, f.owner, domain.ProviderGitHub)
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, f.owner, domain.ProviderGitHub, "ghp_secondTokenValue11111111111")
	require.NoError(t, err)
	second, err := f.repo.Get(ctx, f.owner, domain.ProviderGitHub)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)

	revealed, err := f.svc.Reveal(ctx, f.owner, domain.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secondTokenValue11111111111", revealed)
}

func TestCredentialService_EmptyValueClears(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.owner, domain.ProviderOpenAI, "sk-proj-somethingsomething")
	require.NoError(t, err)

	view, err := f.svc.Save(ctx, f.owner, domain.ProviderOpenAI, "")
	require.NoError(t, err)
	assert.False(t, view.Configured)
	assert.Empty(t, view.Masked)

	stored, err := f.repo.Get(ctx, f.owner, domain.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "", stored.Envelope)

	revealed, err := f.svc.Reveal(ctx, f.owner, domain.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "", revealed)

	assert.Equal(t, []string{domain.ActionCredentialSaved, domain.ActionCredentialCleared}, f.actions(t))
}

func TestCredentialService_RejectsUnknownProvider(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.owner, domain.Provider("myspace"), "value")
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = f.svc.View(ctx, f.owner, domain.Provider(""))
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = f.svc.Reveal(ctx, f.owner, domain.Provider("nope"))
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.owner, domain.Provider("nope")), domain.ErrInvalidProvider)
}

func TestCredentialService_ViewMissingIsNotFound(t *testing.T) {
	f := newCredentialFixture(t)

	_, err := f.svc.View(context.Background(), f.owner, domain.ProviderGitLab)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	revealed, err := f.svc.Reveal(context.Background(), f.owner, domain.ProviderGitLab)
	require.NoError(t, err)
	assert.Empty(t, revealed)
}

func TestCredentialService_TamperedEnvelopeIsUnreadable(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.owner, domain.ProviderAnthropic, "sk-ant-REDACTED")
	require.NoError(t, err)

	stored, err := f.repo.Get(ctx, f.owner, domain.ProviderAnthropic)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(stored.Envelope)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	stored.Envelope = base64.StdEncoding.EncodeToString(raw)
	require.NoError(t, f.repo.Upsert(ctx, stored))

	_, err = f.svc.View(ctx, f.owner, domain.ProviderAnthropic)
	assert.ErrorIs(t, err, domain.ErrCredentialUnreadable)

	revealed, err := f.svc.Reveal(ctx, f.owner, domain.ProviderAnthropic)
	assert.ErrorIs(t, err, domain.ErrCredentialUnreadable)
	assert.Empty(t, revealed)

	assert.Contains(t, f.actions(t), domain.ActionCredentialUnreadable)
	assert.NotContains(t, f.actions(t), domain.ActionCredentialRevealed)
}

func TestCredentialService_CorruptAndTamperedLookTheSame(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Upsert(ctx, &domain.Credential{
		OwnerID: f.owner, Provider: domain.ProviderGitHub, Envelope: "not-a-valid-envelope",
	}))
	_, corruptErr := f.svc.View(ctx, f.owner, domain.ProviderGitHub)

	other, err := crypto.NewSecretCipher("some-other-deployment-secret")
	require.NoError(t, err)
	foreign, err := other.Encrypt("ghp_encryptedElsewhere")
	require.NoError(t, err)
	require.NoError(t, f.repo.Upsert(ctx, &domain.Credential{
		OwnerID: f.owner, Provider: domain.ProviderGitLab, Envelope: foreign,
	}))
	_, tamperErr := f.svc.View(ctx, f.owner, domain.ProviderGitLab)

	require.Error(t, corruptErr)
	require.Error(t, tamperErr)
	assert.Equal(t, corruptErr.Error(), tamperErr.Error())
	assert.ErrorIs(t, corruptErr, domain.ErrCredentialUnreadable)
	assert.ErrorIs(t, tamperErr, domain.ErrCredentialUnreadable)
}

func TestCredentialService_ListFlagsUnreadableRows(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.owner, domain.ProviderOpenAI, "sk-proj-listedvalue-12345")
	require.NoError(t, err)
	require.NoError(t, f.repo.Upsert(ctx, &domain.Credential{
		OwnerID: f.owner, Provider: domain.ProviderGitHub, Envelope: "%%%garbage%%%",
	}))

	views, err := f.svc.List(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, views, len(domain.Providers))

	byProvider := make(map[domain.Provider]domain.CredentialView)
	for _, v := range views {
		byProvider[v.Provider] = v
	}

	assert.True(t, byProvider[domain.ProviderOpenAI].Configured)
	assert.Equal(t, "sk-p"+strings.Repeat("•", 17)+"2345", byProvider[domain.ProviderOpenAI].Masked)

	assert.True(t, byProvider[domain.ProviderGitHub].Configured)
	assert.True(t, byProvider[domain.ProviderGitHub].NeedsReentry)
	assert.Empty(t, byProvider[domain.ProviderGitHub].Masked)

	assert.False(t, byProvider[domain.ProviderAnthropic].Configured)
}

func TestCredentialService_DeleteRecordsAudit(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, f.owner, domain.ProviderBitbucket, "ATBBxxxxxxxxxxxxxxxx")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.owner, domain.ProviderBitbucket))

	_, err = f.svc.View(ctx, f.owner, domain.ProviderBitbucket)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.owner, domain.ProviderBitbucket), domain.ErrNotFound)

	events, err := f.svc.Activity(ctx, f.owner, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ActionCredentialDeleted, events[0].Action)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestCredentialService_EncryptionFailureDoesNotPersist(t *testing.T) {
	cipher, err := crypto.NewSecretCipher(testEncryptionSecret, crypto.WithRandom(failingReader{}))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	repo := memory.NewCredentialRepository()
	svc := services.NewCredentialService(repo, memory.NewAuditRepository(), cipher, slog.New(slog.NewJSONHandler(logs, nil)))
	owner := uuid.New()

	_, err = svc.Save(context.Background(), owner, domain.ProviderGemini, "AIzaSy-never-stored-value")
	require.Error(t, err)
	assert.True(t, errors.Is(err, crypto.ErrEncryptionFailure))
	assert.NotContains(t, err.Error(), "AIzaSy-never-stored-value")
	assert.NotContains(t, logs.String(), "AIzaSy-never-stored-value")

	_, err = repo.Get(context.Background(), owner, domain.ProviderGemini)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingAudit struct{ *memory.AuditRepository }

func (failingAudit) Record(context.Context, *domain.CredentialEvent) error {
	return errors.New("audit store offline")
}

func TestCredentialService_AuditFailureDoesNotFailRequest(t *testing.T) {
	cipher, err := crypto.NewSecretCipher(testEncryptionSecret)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	svc := services.NewCredentialService(
		memory.NewCredentialRepository(),
		failingAudit{memory.NewAuditRepository()},
		cipher,
		slog.New(slog.NewJSONHandler(logs, nil)),
	)

	view, err := svc.Save(context.Background(), uuid.New(), domain.ProviderOpenAI, "sk-proj-auditless-000000")
	require.NoError(t, err)
	assert.True(t, view.Configured)
	assert.Contains(t, logs.String(), "audit store offline")
}

func TestCredentialService_RevealBranches(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row", func(t *testing.T) {
		f := newCredentialFixture(t)

		revealed, err := f.svc.Reveal(ctx, f.owner, domain.ProviderGemini)
		require.NoError(t, err)
		assert.Equal(t, "", revealed)
		assert.Empty(t, f.actions(t))
	})

	t.Run("unreadable envelope", func(t *testing.T) {
		f := newCredentialFixture(t)
		require.NoError(t, f.repo.Upsert(ctx, &domain.Credential{
			OwnerID: f.owner, Provider: domain.ProviderGemini, Envelope: "AAAA-not-sealed",
		}))

		revealed, err := f.svc.Reveal(ctx, f.owner, domain.ProviderGemini)
		assert.ErrorIs(t, err, domain.ErrCredentialUnreadable)
		assert.Equal(t, "", revealed)
		assert.Equal(t, []string{domain.ActionCredentialUnreadable}, f.actions(t))
	})

	t.Run("invalid provider", func(t *testing.T) {
		f := newCredentialFixture(t)

		revealed, err := f.svc.Reveal(ctx, f.owner, domain.Provider("friendster"))
		assert.ErrorIs(t, err, domain.ErrInvalidProvider)
		assert.Equal(t, "", revealed)
		assert.Empty(t, f.actions(t))
	})
}

func TestCredentialService_ActivityLimit(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		require.NoError(t, f.audit.Record(ctx, &domain.CredentialEvent{
			ID:        uuid.New(),
			OwnerID:   f.owner,
			Provider:  domain.ProviderOpenAI,
			Action:    domain.ActionCredentialRevealed,
			CreatedAt: time.Now().UTC(),
		}))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 50},
		{limit: -5, want: 50},
		{limit: 30, want: 30},
		{limit: 100, want: 100},
		{limit: 101, want: 100},
		{limit: 500, want: 100},
	}

	for _, tc := range tests {
		events, err := f.svc.Activity(ctx, f.owner, tc.limit)
		require.NoError(t, err)
		assert.Len(t, events, tc.want, "limit %d", tc.limit)
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
)

const pgUniqueViolation = "23505"

// CredentialRepository implements domain.CredentialRepository on pgx.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

func (r *CredentialRepository) Get(ctx context.Context, ownerID uuid.UUID, provider domain.Provider) (*domain.Credential, error) {
	const query = `
		SELECT id, owner_id, provider, envelope, version, created_at, updated_at
		FROM credentials
		WHERE owner_id = $1 AND provider = $2;
	`

	var c domain.Credential
	err := r.pool.QueryRow(ctx, query, ownerID, string(provider)).Scan(
		&c.ID,
		&c.OwnerID,
		&c.Provider,
		&c.Envelope,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	return &c, nil
}

func (r *CredentialRepository) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Credential, error) {
	const query = `
		SELECT id, owner_id, provider, envelope, version, created_at, updated_at
		FROM credentials
		WHERE owner_id = $1
		ORDER BY provider;
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	creds, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Credential])
	if err != nil {
		return nil, fmt.Errorf("failed to scan credentials: %w", err)
	}
	return creds, nil
}

// Upsert inserts when cred.Version is 0 and otherwise performs an optimistic
// update guarded by the expected version.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *domain.Credential) error {
	now := time.Now().UTC()

	if cred.Version == 0 {
		const insert = `
			INSERT INTO credentials (id, owner_id, provider, envelope, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5, $5);
		`
		if cred.ID == uuid.Nil {
			cred.ID = uuid.New()
		}
		_, err := r.pool.Exec(ctx, insert, cred.ID, cred.OwnerID, string(cred.Provider), cred.Envelope, now)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return domain.ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to insert credential: %w", err)
		}
		cred.Version = 1
		cred.CreatedAt = now
		cred.UpdatedAt = now
		return nil
	}

	const update = `
		UPDATE credentials SET
			envelope = $3,
			version = version + 1,
			updated_at = $5
		WHERE owner_id = $1 AND provider = $2 AND version = $4;
	`
	tag, err := r.pool.Exec(ctx, update, cred.OwnerID, string(cred.Provider), cred.Envelope, cred.Version, now)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	// Zero rows means the row is gone or another writer bumped the version.
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}

	cred.Version++
	cred.UpdatedAt = now
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, ownerID uuid.UUID, provider domain.Provider) error {
	const query = `DELETE FROM credentials WHERE owner_id = $1 AND provider = $2;`

	tag, err := r.pool.Exec(ctx, query, ownerID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

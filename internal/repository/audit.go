package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// ErrInvalidAuditEntry is returned for entries missing entity, action or outcome.
var ErrInvalidAuditEntry = errors.New("invalid audit entry")

// AuditLog records management actions.
type AuditLog interface {
	Record(ctx context.Context, entry *model.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

// AuditRepository stores audit entries in PostgreSQL.
type AuditRepository struct {
	repo *Repository
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(repo *Repository) *AuditRepository {
	return &AuditRepository{repo: repo}
}

// Record inserts an entry, assigning ID and CreatedAt when unset.
func (r *AuditRepository) Record(ctx context.Context, entry *model.AuditEntry) error {
	if err := prepareEntry(entry, time.Now().UTC()); err != nil {
		return err
	}

	query := `
		INSERT INTO management_audit_log (
			id, entity, action, outcome, franchise_id, store_id,
			name, user_id, request_id, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.repo.pool.Exec(ctx, query,
		entry.ID,
		entry.Entity,
		entry.Action,
		entry.Outcome,
		nullableInt(entry.FranchiseID),
		nullableInt(entry.StoreID),
		entry.Name,
		entry.UserID,
		nullableString(entry.RequestID),
		nullableString(entry.Error),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, entity, action, outcome, COALESCE(franchise_id, 0), COALESCE(store_id, 0),
		       name, user_id, COALESCE(request_id, ''), COALESCE(error, ''), created_at
		FROM management_audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.repo.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(
			&e.ID, &e.Entity, &e.Action, &e.Outcome, &e.FranchiseID, &e.StoreID,
			&e.Name, &e.UserID, &e.RequestID, &e.Error, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

// NoopAuditLog discards entries. Used when no database is configured.
type NoopAuditLog struct{}

// Record validates and drops the entry.
func (NoopAuditLog) Record(_ context.Context, entry *model.AuditEntry) error {
	return prepareEntry(entry, time.Now().UTC())
}

// ListRecent always returns nothing.
func (NoopAuditLog) ListRecent(context.Context, int) ([]model.AuditEntry, error) {
	return nil, nil
}

func prepareEntry(entry *model.AuditEntry, now time.Time) error {
	if entry == nil || entry.Entity == "" || entry.Action == "" || entry.Outcome == "" {
		return ErrInvalidAuditEntry
	}
	if entry.ID == "" {
		id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
		if err != nil {
			return fmt.Errorf("generate audit id: %w", err)
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	return nil
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

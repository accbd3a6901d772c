package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/service/suppression"
)

// SuppressionRepo implements suppression.Repository against PostgreSQL.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) Put(ctx context.Context, e *domain.Suppression) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suppression_entries (id, email_hash, reason, source, notes, active, created_at)
		VALUES ($1, $2, $3, $4, $5, true, NOW())
		ON CONFLICT (email_hash) DO UPDATE SET reason = $3, source = $4, notes = $5, active = true, updated_at = NOW()
	`, e.ID, e.EmailHash, e.Reason, e.Source, e.Notes)
	if err != nil {
		return fmt.Errorf("put suppression: %w", err)
	}
	return nil
}

func (r *SuppressionRepo) IsSuppressed(ctx context.Context, emailHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM suppression_entries WHERE email_hash = $1 AND active = true)`,
		emailHash,
	).Scan(&exists)
	return exists, err
}

func (r *SuppressionRepo) Remove(ctx context.Context, emailHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppression_entries SET active = false, updated_at = NOW() WHERE email_hash = $1 AND active = true`,
		emailHash,
	)
	if err != nil {
		return fmt.Errorf("remove suppression: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return suppression.ErrNotFound
	}
	return nil
}

func (r *SuppressionRepo) List(ctx context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suppression_entries WHERE active = true`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppressions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email_hash, reason, source, notes, created_at
		FROM suppression_entries
		WHERE active = true
		  AND ($1 = '' OR reason = $1)
		  AND ($2 = '' OR source = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.Reason, f.Source, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	for rows.Next() {
		var s domain.Suppression
		if err := rows.Scan(&s.ID, &s.EmailHash, &s.Reason, &s.Source, &s.Notes, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *SuppressionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suppression_entries WHERE active = true`,
	).Scan(&n)
	return n, err
}

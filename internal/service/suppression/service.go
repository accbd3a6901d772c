package suppression

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/emailcrypto"
)

// Service implements suppression business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Put writes a pre-built entry. This is the narrow contract consumed by the
// webhook pipeline, which hashes addresses itself.
func (s *Service) Put(ctx context.Context, entry *domain.Suppression) error {
	return s.repo.Put(ctx, entry)
}

// SuppressAddress adds a raw email address to the suppression list.
// The address is normalized and hashed; the raw form is discarded.
func (s *Service) SuppressAddress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, notes string) error {
	normalized := emailcrypto.Normalize(email)
	if normalized == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, logSafe(email))
	}
	entry := &domain.Suppression{
		EmailHash: emailcrypto.Hash(normalized),
		Reason:    reason,
		Source:    source,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.Put(ctx, entry)
}

// IsAddressSuppressed checks whether a raw email address is blocked from
// sending. An address that does not normalize is treated as suppressed:
// it cannot be delivered to anyway.
func (s *Service) IsAddressSuppressed(ctx context.Context, email string) (bool, error) {
	normalized := emailcrypto.Normalize(email)
	if normalized == "" {
		return true, nil
	}
	return s.repo.IsSuppressed(ctx, emailcrypto.Hash(normalized))
}

// IsHashSuppressed checks a pre-hashed address.
func (s *Service) IsHashSuppressed(ctx context.Context, emailHash string) (bool, error) {
	return s.repo.IsSuppressed(ctx, emailHash)
}

// RemoveAddress deletes the entry for a raw email address.
// Returns ErrNotFound if the address is not suppressed.
func (s *Service) RemoveAddress(ctx context.Context, email string) error {
	normalized := emailcrypto.Normalize(email)
	if normalized == "" {
		return ErrNotFound
	}
	return s.repo.Remove(ctx, emailcrypto.Hash(normalized))
}

// List returns suppression entries matching the given filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Suppression, int, error) {
	return s.repo.List(ctx, f)
}

// Count returns the total number of suppressed addresses.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Stats holds aggregate counts grouped by reason and source.
type Stats struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"by_reason"`
	BySource map[string]int `json:"by_source"`
}

// GetStats computes suppression statistics for the admin dashboard.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	entries, total, err := s.repo.List(ctx, ListFilter{Limit: 0})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    total,
		ByReason: make(map[string]int),
		BySource: make(map[string]int),
	}
	for _, e := range entries {
		stats.ByReason[string(e.Reason)]++
		stats.BySource[string(e.Source)]++
	}
	return stats, nil
}

// logSafe truncates a value that may contain an email address so error
// strings never carry a full raw address.
func logSafe(s string) string {
	if len(s) <= 3 {
		return s
	}
	return s[:3] + "..."
}

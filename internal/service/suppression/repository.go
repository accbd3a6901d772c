package suppression

import (
	"context"

	"github.com/nimbly/notification-service/internal/domain"
)

// ListFilter narrows List results.
type ListFilter struct {
	Reason string
	Source string
	Limit  int
	Offset int
}

// Repository is the durable store behind the suppression service.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Put inserts or refreshes an entry. Repeated puts for the same hash
	// must not fail; the store owns dedup semantics.
	Put(ctx context.Context, entry *domain.Suppression) error

	// IsSuppressed reports whether the given email hash is on the list.
	IsSuppressed(ctx context.Context, emailHash string) (bool, error)

	// Remove deletes an entry by hash. Returns ErrNotFound if absent.
	Remove(ctx context.Context, emailHash string) error

	// List returns entries matching the filter plus the unfiltered total.
	List(ctx context.Context, f ListFilter) ([]domain.Suppression, int, error)

	// Count returns the number of active entries.
	Count(ctx context.Context) (int, error)
}

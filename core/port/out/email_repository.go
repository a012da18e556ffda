package out

import (
	"context"

	"smartmail_server/core/domain"
)

// EmailRepository is the single-table store keyed by provider message id.
type EmailRepository interface {
	// FindByMessageID returns the record or nil when absent.
	FindByMessageID(ctx context.Context, messageID string) (*domain.EnrichedEmail, error)

	// Upsert inserts the record if no row with its message id exists. When
	// a concurrent insert won the race, the existing row is returned
	// instead; the uniqueness constraint is the backstop.
	Upsert(ctx context.Context, email *domain.EnrichedEmail) (*domain.EnrichedEmail, error)

	// ListByCategory returns up to limit records in the given category,
	// ordered by a single sort key. Ties are returned in storage order.
	ListByCategory(ctx context.Context, category domain.Category, sortBy domain.SortField, order domain.SortOrder, limit int) ([]*domain.EnrichedEmail, error)
}

// Package in defines inbound ports consumed by the HTTP layer.
package in

import (
	"context"
	"time"

	"smartmail_server/core/domain"
)

// ListQuery carries the listing parameters taken from the request.
type ListQuery struct {
	MaxResults int64
	PageToken  string
	Category   string
	SortBy     domain.SortField
	SortOrder  domain.SortOrder
}

// ListItem merges live provider metadata with stored enrichment fields.
type ListItem struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"from"`
	Snippet     string    `json:"snippet"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category,omitempty"`
	Importance  float64   `json:"importance"`
	Summary     string    `json:"summary,omitempty"`
	KeyPoints   []string  `json:"key_points,omitempty"`
	ActionItems []string  `json:"action_items,omitempty"`
	Sentiment   string    `json:"sentiment,omitempty"`
}

// ListPage is one page of merged listing results.
type ListPage struct {
	Messages          []ListItem `json:"messages"`
	NextPageToken     string     `json:"next_page_token,omitempty"`
	PreviousPageToken string     `json:"previous_page_token,omitempty"`
}

// Detail merges a live provider fetch with the stored enrichment row.
type Detail struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	Recipient   string    `json:"recipient,omitempty"`
	Snippet     string    `json:"snippet,omitempty"`
	Body        string    `json:"body,omitempty"`
	LabelIDs    []string  `json:"label_ids,omitempty"`
	Category    string    `json:"category"`
	Importance  float64   `json:"importance"`
	Summary     string    `json:"summary,omitempty"`
	KeyPoints   []string  `json:"key_points,omitempty"`
	ActionItems []string  `json:"action_items,omitempty"`
	Sentiment   string    `json:"sentiment,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	ProcessedAt time.Time `json:"processed_at"`
}

// EmailService is the application-facing surface over the enrichment
// pipeline and the store.
type EmailService interface {
	// Enrich runs the pipeline for one message id. Calling it again for a
	// known id returns the stored record without touching the model.
	Enrich(ctx context.Context, session domain.Session, messageID string) (*domain.EnrichedEmail, error)

	// List returns one provider page merged with enrichment data,
	// enriching any unseen id it encounters.
	List(ctx context.Context, session domain.Session, q ListQuery) (*ListPage, error)

	// Detail merges a live provider fetch with the stored row; a message
	// unknown to the store is a not-found error.
	Detail(ctx context.Context, session domain.Session, messageID string) (*Detail, error)

	// SaveRaw persists the message without invoking the model, stamping
	// UNCATEGORIZED / default importance. Idempotent.
	SaveRaw(ctx context.Context, session domain.Session, messageID string) (*domain.EnrichedEmail, error)

	// ListByCategory reads stored records only.
	ListByCategory(ctx context.Context, category domain.Category, sortBy domain.SortField, order domain.SortOrder, limit int) ([]*domain.EnrichedEmail, error)
}

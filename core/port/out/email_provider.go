// Package out defines outbound ports implemented by adapters.
package out

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// ProviderMessageMeta is the metadata-only view returned by listings.
type ProviderMessageMeta struct {
	ID      string    `json:"id"`
	Subject string    `json:"subject"`
	Sender  string    `json:"from"`
	Date    time.Time `json:"date"`
	Snippet string    `json:"snippet"`
}

// ProviderListResult carries one page of message metadata plus the
// provider's pagination tokens, passed through unmodified.
type ProviderListResult struct {
	Messages          []ProviderMessageMeta
	NextPageToken     string
	PreviousPageToken string
}

// ProviderMessage is the fully fetched, MIME-decoded message.
type ProviderMessage struct {
	ID          string
	ThreadID    string
	Subject     string
	Sender      string
	Recipient   string
	Date        time.Time
	Content     string
	HTMLContent string
	Snippet     string
	LabelIDs    []string
}

// EmailProviderPort wraps the mailbox API. Any provider failure surfaces
// as an apperr provider error; there is no retry at this layer.
type EmailProviderPort interface {
	// ListMessages returns one page of metadata. maxResults and pageToken
	// are forwarded to the provider unchanged.
	ListMessages(ctx context.Context, token *oauth2.Token, maxResults int64, pageToken string) (*ProviderListResult, error)

	// GetMessage fetches and decodes the full message.
	GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*ProviderMessage, error)

	// GetLatestMessageID returns the id of the most recent message, or ""
	// when the mailbox is empty.
	GetLatestMessageID(ctx context.Context, token *oauth2.Token) (string, error)
}

// Package domain contains the core entities of the mail enrichment system.
package domain

import "time"

// Category is the closed set of labels the classifier may assign.
type Category string

const (
	CategoryWork          Category = "WORK"
	CategoryPersonal      Category = "PERSONAL"
	CategoryNewsletter    Category = "NEWSLETTER"
	CategorySpam          Category = "SPAM"
	CategoryAdvertisement Category = "ADVERTISEMENT"
	CategorySocial        Category = "SOCIAL"
	CategoryUnknown       Category = "UNKNOWN"

	// CategoryUncategorized is stamped by the manual save path only; the
	// classifier never emits it.
	CategoryUncategorized Category = "UNCATEGORIZED"
)

// Categories lists every label the classifier may assign, in display order.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryNewsletter,
	CategorySpam,
	CategoryAdvertisement,
	CategorySocial,
	CategoryUnknown,
}

// IsValid reports whether c is one of the classifier's known labels.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Coerce maps arbitrary classifier output onto the closed set. Anything
// outside the known labels becomes UNKNOWN.
func Coerce(raw string) Category {
	c := Category(raw)
	if c.IsValid() {
		return c
	}
	return CategoryUnknown
}

// DefaultImportance is used whenever the classifier output is unusable and
// by the manual save path.
const DefaultImportance = 50.0

// EnrichedEmail is the persisted record for one provider message. The
// provider message id is the sole upsert key; derived fields are written
// once and never updated.
type EnrichedEmail struct {
	ID          int64  `json:"id"`
	MessageID   string `json:"email_id"`
	ThreadID    string `json:"thread_id,omitempty"`
	Subject     string `json:"subject"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient,omitempty"`
	Content     string `json:"content,omitempty"`
	HTMLContent string `json:"html_content,omitempty"`

	Category   Category `json:"category"`
	Importance float64  `json:"importance"`

	Summary     string   `json:"summary,omitempty"`
	KeyPoints   []string `json:"key_points,omitempty"`
	ActionItems []string `json:"action_items,omitempty"`
	// Sentiment is reserved; no pipeline stage sets it today.
	Sentiment string `json:"sentiment,omitempty"`

	LabelIDs []string `json:"label_ids,omitempty"`

	ReceivedAt  time.Time `json:"received_at"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Classification is the result of the classification stage.
type Classification struct {
	Category     Category  `json:"category"`
	Importance   float64   `json:"importance"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// Summary is the result of the summarization stage.
type Summary struct {
	Summary      string    `json:"summary"`
	KeyPoints    []string  `json:"key_points"`
	ActionItems  []string  `json:"action_items"`
	SummarizedAt time.Time `json:"summarized_at"`
}

// SortField selects the ordering key for category listings.
type SortField string

const (
	SortByImportance SortField = "importance"
	SortByReceivedAt SortField = "received_at"
)

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Package email contains the enrichment pipeline and the poll trigger.
package email

import (
	"context"
	"sort"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/in"
	"smartmail_server/core/port/out"
	"smartmail_server/pkg/apperr"
	"smartmail_server/pkg/logger"
)

const defaultCategoryListLimit = 100

// Processor is the enrichment pipeline: fetch, classify, summarize,
// persist. Classification is mandatory; summarization is best-effort.
type Processor struct {
	provider   out.EmailProviderPort
	repo       out.EmailRepository
	classifier Classifier
	summarizer Summarizer
}

// Classifier is the classification stage seen by the pipeline.
type Classifier interface {
	Classify(ctx context.Context, subject, content, sender string) (*domain.Classification, error)
}

// Summarizer is the summarization stage seen by the pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, content, subject, sender string) (*domain.Summary, error)
}

func NewProcessor(provider out.EmailProviderPort, repo out.EmailRepository, classifier Classifier, summarizer Summarizer) *Processor {
	return &Processor{
		provider:   provider,
		repo:       repo,
		classifier: classifier,
		summarizer: summarizer,
	}
}

// Enrich runs the pipeline for one message id. A known id short-circuits
// to the stored record; neither model stage runs again.
func (p *Processor) Enrich(ctx context.Context, session domain.Session, messageID string) (*domain.EnrichedEmail, error) {
	existing, err := p.repo.FindByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	msg, err := p.provider.GetMessage(ctx, session.OAuthToken(), messageID)
	if err != nil {
		return nil, err
	}

	classification, err := p.classifier.Classify(ctx, msg.Subject, msg.Content, msg.Sender)
	if err != nil {
		// A record is never stored without a category.
		return nil, err
	}

	record := &domain.EnrichedEmail{
		MessageID:   msg.ID,
		ThreadID:    msg.ThreadID,
		Subject:     msg.Subject,
		Sender:      msg.Sender,
		Recipient:   msg.Recipient,
		Content:     msg.Content,
		HTMLContent: msg.HTMLContent,
		Category:    classification.Category,
		Importance:  classification.Importance,
		LabelIDs:    msg.LabelIDs,
		ReceivedAt:  msg.Date,
		ProcessedAt: time.Now().UTC(),
	}

	summary, err := p.summarizer.Summarize(ctx, msg.Content, msg.Subject, msg.Sender)
	if err != nil {
		logger.WithError(err).WithField("message_id", messageID).Warn("summarization failed, storing without summary")
	} else {
		record.Summary = summary.Summary
		record.KeyPoints = summary.KeyPoints
		record.ActionItems = summary.ActionItems
	}

	return p.repo.Upsert(ctx, record)
}

// List returns one provider page merged with stored enrichment fields,
// enriching any unseen id it encounters.
func (p *Processor) List(ctx context.Context, session domain.Session, q in.ListQuery) (*in.ListPage, error) {
	if q.MaxResults <= 0 {
		q.MaxResults = 10
	}

	listing, err := p.provider.ListMessages(ctx, session.OAuthToken(), q.MaxResults, q.PageToken)
	if err != nil {
		return nil, err
	}

	page := &in.ListPage{
		Messages:          make([]in.ListItem, 0, len(listing.Messages)),
		NextPageToken:     listing.NextPageToken,
		PreviousPageToken: listing.PreviousPageToken,
	}

	for _, meta := range listing.Messages {
		record, err := p.Enrich(ctx, session, meta.ID)
		if err != nil {
			return nil, err
		}

		if q.Category != "" && string(record.Category) != q.Category {
			continue
		}

		page.Messages = append(page.Messages, in.ListItem{
			ID:          meta.ID,
			Subject:     meta.Subject,
			Sender:      meta.Sender,
			Snippet:     meta.Snippet,
			Date:        meta.Date,
			Category:    string(record.Category),
			Importance:  record.Importance,
			Summary:     record.Summary,
			KeyPoints:   record.KeyPoints,
			ActionItems: record.ActionItems,
			Sentiment:   record.Sentiment,
		})
	}

	sortListItems(page.Messages, q.SortBy, q.SortOrder)

	return page, nil
}

func sortListItems(items []in.ListItem, sortBy domain.SortField, order domain.SortOrder) {
	desc := order != domain.SortAsc

	switch sortBy {
	case domain.SortByReceivedAt:
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return items[i].Date.After(items[j].Date)
			}
			return items[i].Date.Before(items[j].Date)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return items[i].Importance > items[j].Importance
			}
			return items[i].Importance < items[j].Importance
		})
	}
}

// Detail merges a live provider fetch with the stored enrichment row.
func (p *Processor) Detail(ctx context.Context, session domain.Session, messageID string) (*in.Detail, error) {
	record, err := p.repo.FindByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("email")
	}

	msg, err := p.provider.GetMessage(ctx, session.OAuthToken(), messageID)
	if err != nil {
		return nil, err
	}

	body := msg.Content
	if body == "" {
		body = msg.HTMLContent
	}

	return &in.Detail{
		ID:          msg.ID,
		ThreadID:    msg.ThreadID,
		Subject:     msg.Subject,
		Sender:      msg.Sender,
		Recipient:   msg.Recipient,
		Snippet:     msg.Snippet,
		Body:        body,
		LabelIDs:    msg.LabelIDs,
		Category:    string(record.Category),
		Importance:  record.Importance,
		Summary:     record.Summary,
		KeyPoints:   record.KeyPoints,
		ActionItems: record.ActionItems,
		Sentiment:   record.Sentiment,
		ReceivedAt:  record.ReceivedAt,
		ProcessedAt: record.ProcessedAt,
	}, nil
}

// SaveRaw persists the message without touching the model, stamping
// UNCATEGORIZED and the default importance. Re-saving a known id returns
// the existing record.
func (p *Processor) SaveRaw(ctx context.Context, session domain.Session, messageID string) (*domain.EnrichedEmail, error) {
	existing, err := p.repo.FindByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	msg, err := p.provider.GetMessage(ctx, session.OAuthToken(), messageID)
	if err != nil {
		return nil, err
	}

	record := &domain.EnrichedEmail{
		MessageID:   msg.ID,
		ThreadID:    msg.ThreadID,
		Subject:     msg.Subject,
		Sender:      msg.Sender,
		Recipient:   msg.Recipient,
		Content:     msg.Content,
		HTMLContent: msg.HTMLContent,
		Category:    domain.CategoryUncategorized,
		Importance:  domain.DefaultImportance,
		LabelIDs:    msg.LabelIDs,
		ReceivedAt:  msg.Date,
		ProcessedAt: time.Now().UTC(),
	}

	return p.repo.Upsert(ctx, record)
}

// ListByCategory reads stored records only.
func (p *Processor) ListByCategory(ctx context.Context, category domain.Category, sortBy domain.SortField, order domain.SortOrder, limit int) ([]*domain.EnrichedEmail, error) {
	if limit <= 0 {
		limit = defaultCategoryListLimit
	}
	if sortBy != domain.SortByReceivedAt {
		sortBy = domain.SortByImportance
	}
	if order != domain.SortAsc {
		order = domain.SortDesc
	}
	return p.repo.ListByCategory(ctx, category, sortBy, order, limit)
}

var _ in.EmailService = (*Processor)(nil)

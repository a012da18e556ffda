// Package persistence implements the storage ports on PostgreSQL and Redis.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/out"
	"smartmail_server/pkg/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EmailAdapter implements out.EmailRepository on PostgreSQL.
type EmailAdapter struct {
	db *sqlx.DB
}

func NewEmailAdapter(db *sqlx.DB) *EmailAdapter {
	return &EmailAdapter{db: db}
}

// emailRow maps the emails table. Array columns use pq.StringArray; nullable
// text columns use sql.NullString.
type emailRow struct {
	ID          int64          `db:"id"`
	MessageID   string         `db:"email_id"`
	ThreadID    sql.NullString `db:"thread_id"`
	Subject     sql.NullString `db:"subject"`
	Sender      sql.NullString `db:"sender"`
	Recipient   sql.NullString `db:"recipient"`
	Content     sql.NullString `db:"content"`
	HTMLContent sql.NullString `db:"html_content"`
	Category    string         `db:"category"`
	Importance  float64        `db:"importance"`
	Summary     sql.NullString `db:"summary"`
	KeyPoints   pq.StringArray `db:"key_points"`
	ActionItems pq.StringArray `db:"action_items"`
	Sentiment   sql.NullString `db:"sentiment"`
	LabelIDs    pq.StringArray `db:"label_ids"`
	ReceivedAt  sql.NullTime   `db:"received_at"`
	ProcessedAt sql.NullTime   `db:"processed_at"`
}

func (r *emailRow) toDomain() *domain.EnrichedEmail {
	e := &domain.EnrichedEmail{
		ID:          r.ID,
		MessageID:   r.MessageID,
		ThreadID:    r.ThreadID.String,
		Subject:     r.Subject.String,
		Sender:      r.Sender.String,
		Recipient:   r.Recipient.String,
		Content:     r.Content.String,
		HTMLContent: r.HTMLContent.String,
		Category:    domain.Category(r.Category),
		Importance:  r.Importance,
		Summary:     r.Summary.String,
		KeyPoints:   []string(r.KeyPoints),
		ActionItems: []string(r.ActionItems),
		Sentiment:   r.Sentiment.String,
		LabelIDs:    []string(r.LabelIDs),
	}
	if r.ReceivedAt.Valid {
		e.ReceivedAt = r.ReceivedAt.Time
	}
	if r.ProcessedAt.Valid {
		e.ProcessedAt = r.ProcessedAt.Time
	}
	return e
}

const emailColumns = `id, email_id, thread_id, subject, sender, recipient,
	content, html_content, category, importance, summary, key_points,
	action_items, sentiment, label_ids, received_at, processed_at`

// FindByMessageID returns the stored record or nil when absent.
func (a *EmailAdapter) FindByMessageID(ctx context.Context, messageID string) (*domain.EnrichedEmail, error) {
	query := fmt.Sprintf(`SELECT %s FROM emails WHERE email_id = $1`, emailColumns)

	var row emailRow
	if err := a.db.GetContext(ctx, &row, query, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.DatabaseError("find email", err)
	}
	return row.toDomain(), nil
}

// Upsert inserts the record unless a row with its message id already
// exists. ON CONFLICT DO NOTHING handles the concurrent-insert race; the
// losing writer re-reads and returns the winner's row.
func (a *EmailAdapter) Upsert(ctx context.Context, email *domain.EnrichedEmail) (*domain.EnrichedEmail, error) {
	query := `
		INSERT INTO emails (
			email_id, thread_id, subject, sender, recipient, content,
			html_content, category, importance, summary, key_points,
			action_items, sentiment, label_ids, received_at, processed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (email_id) DO NOTHING
		RETURNING id`

	var id int64
	err := a.db.QueryRowContext(ctx, query,
		email.MessageID,
		nullString(email.ThreadID),
		nullString(email.Subject),
		nullString(email.Sender),
		nullString(email.Recipient),
		nullString(email.Content),
		nullString(email.HTMLContent),
		string(email.Category),
		email.Importance,
		nullString(email.Summary),
		pq.StringArray(email.KeyPoints),
		pq.StringArray(email.ActionItems),
		nullString(email.Sentiment),
		pq.StringArray(email.LabelIDs),
		email.ReceivedAt,
		email.ProcessedAt,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent insert won; return its row.
			existing, ferr := a.FindByMessageID(ctx, email.MessageID)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return existing, nil
			}
			return nil, apperr.DatabaseError("upsert email", err)
		}
		return nil, apperr.DatabaseError("upsert email", err)
	}

	stored := *email
	stored.ID = id
	return &stored, nil
}

// ListByCategory returns up to limit rows in the given category. The sort
// column is chosen from a fixed set, never interpolated from input.
func (a *EmailAdapter) ListByCategory(ctx context.Context, category domain.Category, sortBy domain.SortField, order domain.SortOrder, limit int) ([]*domain.EnrichedEmail, error) {
	sortColumn := "importance"
	if sortBy == domain.SortByReceivedAt {
		sortColumn = "received_at"
	}
	direction := "DESC"
	if order == domain.SortAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(
		`SELECT %s FROM emails WHERE category = $1 ORDER BY %s %s LIMIT $2`,
		emailColumns, sortColumn, direction,
	)

	var rows []emailRow
	if err := a.db.SelectContext(ctx, &rows, query, string(category), limit); err != nil {
		return nil, apperr.DatabaseError("list emails by category", err)
	}

	emails := make([]*domain.EnrichedEmail, 0, len(rows))
	for i := range rows {
		emails = append(emails, rows[i].toDomain())
	}
	return emails, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ out.EmailRepository = (*EmailAdapter)(nil)

package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/in"
	"smartmail_server/core/port/out"
	"smartmail_server/pkg/apperr"

	"golang.org/x/oauth2"
)

type fakeProvider struct {
	messages map[string]*out.ProviderMessage
	listing  *out.ProviderListResult
	latestID string
	getCalls int
}

func (f *fakeProvider) ListMessages(ctx context.Context, token *oauth2.Token, maxResults int64, pageToken string) (*out.ProviderListResult, error) {
	if f.listing == nil {
		return &out.ProviderListResult{}, nil
	}
	return f.listing, nil
}

func (f *fakeProvider) GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*out.ProviderMessage, error) {
	f.getCalls++
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, apperr.ProviderError("get message", errors.New("no such message"))
	}
	return msg, nil
}

func (f *fakeProvider) GetLatestMessageID(ctx context.Context, token *oauth2.Token) (string, error) {
	return f.latestID, nil
}

type fakeRepo struct {
	records map[string]*domain.EnrichedEmail
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*domain.EnrichedEmail)}
}

func (f *fakeRepo) FindByMessageID(ctx context.Context, messageID string) (*domain.EnrichedEmail, error) {
	return f.records[messageID], nil
}

func (f *fakeRepo) Upsert(ctx context.Context, email *domain.EnrichedEmail) (*domain.EnrichedEmail, error) {
	if existing, ok := f.records[email.MessageID]; ok {
		return existing, nil
	}
	stored := *email
	stored.ID = int64(len(f.records) + 1)
	f.records[email.MessageID] = &stored
	return &stored, nil
}

func (f *fakeRepo) ListByCategory(ctx context.Context, category domain.Category, sortBy domain.SortField, order domain.SortOrder, limit int) ([]*domain.EnrichedEmail, error) {
	var result []*domain.EnrichedEmail
	for _, r := range f.records {
		if r.Category == category {
			result = append(result, r)
		}
	}
	return result, nil
}

type fakeClassifier struct {
	result *domain.Classification
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, subject, content, sender string) (*domain.Classification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSummarizer struct {
	result *domain.Summary
	err    error
	calls  int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, content, subject, sender string) (*domain.Summary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testMessage(id string) *out.ProviderMessage {
	return &out.ProviderMessage{
		ID:       id,
		ThreadID: "thread-" + id,
		Subject:  "subject " + id,
		Sender:   "sender@example.com",
		Content:  "body " + id,
		Date:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testSession() domain.Session {
	return domain.Session{Email: "user@example.com", AccessToken: "at"}
}

func newTestProcessor(provider *fakeProvider, repo *fakeRepo, cls *fakeClassifier, sum *fakeSummarizer) *Processor {
	if cls.result == nil && cls.err == nil {
		cls.result = &domain.Classification{Category: domain.CategoryWork, Importance: 80, ClassifiedAt: time.Now()}
	}
	if sum.result == nil && sum.err == nil {
		sum.result = &domain.Summary{Summary: "a summary", KeyPoints: []string{"p1"}, ActionItems: []string{}, SummarizedAt: time.Now()}
	}
	return NewProcessor(provider, repo, cls, sum)
}

func TestEnrich(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}}
	repo := newFakeRepo()
	cls := &fakeClassifier{}
	sum := &fakeSummarizer{}
	p := newTestProcessor(provider, repo, cls, sum)

	got, err := p.Enrich(context.Background(), testSession(), "m1")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if got.Category != domain.CategoryWork {
		t.Errorf("Category = %v, want WORK", got.Category)
	}
	if got.Importance != 80 {
		t.Errorf("Importance = %v, want 80", got.Importance)
	}
	if got.Summary != "a summary" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.ProcessedAt.IsZero() {
		t.Error("ProcessedAt not set")
	}
}

func TestEnrichIdempotent(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}}
	repo := newFakeRepo()
	cls := &fakeClassifier{}
	sum := &fakeSummarizer{}
	p := newTestProcessor(provider, repo, cls, sum)

	first, err := p.Enrich(context.Background(), testSession(), "m1")
	if err != nil {
		t.Fatalf("first Enrich() error = %v", err)
	}

	second, err := p.Enrich(context.Background(), testSession(), "m1")
	if err != nil {
		t.Fatalf("second Enrich() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second call returned a different record: %d vs %d", second.ID, first.ID)
	}
	if cls.calls != 1 {
		t.Errorf("classifier called %d times, want 1", cls.calls)
	}
	if sum.calls != 1 {
		t.Errorf("summarizer called %d times, want 1", sum.calls)
	}
	if provider.getCalls != 1 {
		t.Errorf("provider fetched %d times, want 1", provider.getCalls)
	}
}

func TestEnrichClassificationFailureAborts(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}}
	repo := newFakeRepo()
	cls := &fakeClassifier{err: apperr.ModelError("chat completion", errors.New("boom"))}
	sum := &fakeSummarizer{}
	p := newTestProcessor(provider, repo, cls, sum)

	_, err := p.Enrich(context.Background(), testSession(), "m1")
	if err == nil {
		t.Fatal("expected error when classification fails")
	}
	if len(repo.records) != 0 {
		t.Errorf("record stored despite classification failure")
	}
	if sum.calls != 0 {
		t.Errorf("summarizer called %d times after classification failure", sum.calls)
	}
}

func TestEnrichSummarizationFailureDegrades(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}}
	repo := newFakeRepo()
	cls := &fakeClassifier{}
	sum := &fakeSummarizer{err: apperr.ModelError("chat completion", errors.New("boom"))}
	p := newTestProcessor(provider, repo, cls, sum)

	got, err := p.Enrich(context.Background(), testSession(), "m1")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if got.Category != domain.CategoryWork {
		t.Errorf("Category = %v, want WORK", got.Category)
	}
	if got.Summary != "" {
		t.Errorf("Summary = %q, want empty after degrade", got.Summary)
	}
	if len(got.KeyPoints) != 0 || len(got.ActionItems) != 0 {
		t.Errorf("lists not empty after degrade: %v %v", got.KeyPoints, got.ActionItems)
	}
}

func TestSaveRaw(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{"m1": testMessage("m1")}}
	repo := newFakeRepo()
	cls := &fakeClassifier{}
	sum := &fakeSummarizer{}
	p := newTestProcessor(provider, repo, cls, sum)

	got, err := p.SaveRaw(context.Background(), testSession(), "m1")
	if err != nil {
		t.Fatalf("SaveRaw() error = %v", err)
	}

	if got.Category != domain.CategoryUncategorized {
		t.Errorf("Category = %v, want UNCATEGORIZED", got.Category)
	}
	if got.Importance != domain.DefaultImportance {
		t.Errorf("Importance = %v, want %v", got.Importance, domain.DefaultImportance)
	}
	if cls.calls != 0 || sum.calls != 0 {
		t.Error("SaveRaw must not invoke the model")
	}

	// Re-saving returns the stored record without another fetch.
	again, err := p.SaveRaw(context.Background(), testSession(), "m1")
	if err != nil {
		t.Fatalf("second SaveRaw() error = %v", err)
	}
	if again.ID != got.ID {
		t.Error("second SaveRaw returned a different record")
	}
	if provider.getCalls != 1 {
		t.Errorf("provider fetched %d times, want 1", provider.getCalls)
	}
}

func TestDetailUnknownMessage(t *testing.T) {
	provider := &fakeProvider{messages: map[string]*out.ProviderMessage{}}
	p := newTestProcessor(provider, newFakeRepo(), &fakeClassifier{}, &fakeSummarizer{})

	_, err := p.Detail(context.Background(), testSession(), "missing")
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestListMergesAndFilters(t *testing.T) {
	provider := &fakeProvider{
		messages: map[string]*out.ProviderMessage{
			"m1": testMessage("m1"),
			"m2": testMessage("m2"),
		},
		listing: &out.ProviderListResult{
			Messages: []out.ProviderMessageMeta{
				{ID: "m1", Subject: "subject m1", Sender: "sender@example.com", Date: time.Now()},
				{ID: "m2", Subject: "subject m2", Sender: "sender@example.com", Date: time.Now()},
			},
			NextPageToken: "next-token",
		},
	}
	repo := newFakeRepo()
	p := newTestProcessor(provider, repo, &fakeClassifier{}, &fakeSummarizer{})

	page, err := p.List(context.Background(), testSession(), in.ListQuery{MaxResults: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(page.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(page.Messages))
	}
	if page.NextPageToken != "next-token" {
		t.Errorf("NextPageToken = %q", page.NextPageToken)
	}
	if len(repo.records) != 2 {
		t.Errorf("stored %d records, want 2", len(repo.records))
	}

	// Filter out everything with a category nothing matches.
	filtered, err := p.List(context.Background(), testSession(), in.ListQuery{MaxResults: 10, Category: "SPAM"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(filtered.Messages) != 0 {
		t.Errorf("got %d messages after filter, want 0", len(filtered.Messages))
	}
}

func TestSortListItems(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := func() []in.ListItem {
		return []in.ListItem{
			{ID: "a", Importance: 30, Date: base.Add(2 * time.Hour)},
			{ID: "b", Importance: 90, Date: base},
			{ID: "c", Importance: 60, Date: base.Add(time.Hour)},
		}
	}

	tests := []struct {
		name    string
		sortBy  domain.SortField
		order   domain.SortOrder
		wantIDs []string
	}{
		{"importance desc default", "", "", []string{"b", "c", "a"}},
		{"importance asc", domain.SortByImportance, domain.SortAsc, []string{"a", "c", "b"}},
		{"date desc", domain.SortByReceivedAt, domain.SortDesc, []string{"a", "c", "b"}},
		{"date asc", domain.SortByReceivedAt, domain.SortAsc, []string{"b", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := items()
			sortListItems(got, tt.sortBy, tt.order)
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, want)
				}
			}
		})
	}
}

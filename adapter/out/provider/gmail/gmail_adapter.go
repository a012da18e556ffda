// Package gmail implements the mail provider port against the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"io"
	"mime"
	"regexp"
	"strings"
	"time"

	"smartmail_server/core/port/out"
	"smartmail_server/pkg/apperr"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	oauth2api "google.golang.org/api/oauth2/v2"
)

// metadataHeaders are the only headers requested for listing calls.
var metadataHeaders = []string{"From", "Subject", "Date"}

// Adapter implements out.EmailProviderPort for Gmail. It is stateless with
// respect to users; every call takes the session's token.
type Adapter struct {
	config *oauth2.Config
	cb     *gobreaker.CircuitBreaker
}

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewAdapter creates a Gmail adapter with a circuit breaker in front of
// the Gmail API.
func NewAdapter(cfg *Config) *Adapter {
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"openid",
			gmailapi.GmailReadonlyScope,
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
	}

	return &Adapter{
		config: config,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// =============================================================================
// Authentication
// =============================================================================

// AuthCodeURL returns the OAuth authorization URL.
func (a *Adapter) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges an authorization code for a token.
func (a *Adapter) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.OAuthFailed("google", err)
	}
	return token, nil
}

// GetUserInfo fetches the authenticated user's email and display name.
func (a *Adapter) GetUserInfo(ctx context.Context, token *oauth2.Token) (email, name string, err error) {
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(a.config.Client(ctx, token)))
	if err != nil {
		return "", "", apperr.OAuthFailed("google", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", "", apperr.OAuthFailed("google", err)
	}
	return info.Email, info.Name, nil
}

// =============================================================================
// Mailbox access
// =============================================================================

func (a *Adapter) service(ctx context.Context, token *oauth2.Token) (*gmailapi.Service, error) {
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(a.config.Client(ctx, token)))
	if err != nil {
		return nil, apperr.ProviderError("create gmail service", err)
	}
	return svc, nil
}

// ListMessages returns one page of metadata. Gmail's list call returns ids
// only, so each message's headers are fetched with a metadata-format get.
func (a *Adapter) ListMessages(ctx context.Context, token *oauth2.Token, maxResults int64, pageToken string) (*out.ProviderListResult, error) {
	svc, err := a.service(ctx, token)
	if err != nil {
		return nil, err
	}

	req := svc.Users.Messages.List("me")
	if maxResults > 0 {
		req = req.MaxResults(maxResults)
	}
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	var resp *gmailapi.ListMessagesResponse
	_, cbErr := a.cb.Execute(func() (interface{}, error) {
		var execErr error
		resp, execErr = req.Context(ctx).Do()
		return nil, execErr
	})
	if cbErr != nil {
		return nil, apperr.ProviderError("list messages", cbErr)
	}

	result := &out.ProviderListResult{
		Messages:      make([]out.ProviderMessageMeta, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
	}

	for _, ref := range resp.Messages {
		var msg *gmailapi.Message
		_, cbErr := a.cb.Execute(func() (interface{}, error) {
			var execErr error
			msg, execErr = svc.Users.Messages.Get("me", ref.Id).
				Format("metadata").
				MetadataHeaders(metadataHeaders...).
				Context(ctx).
				Do()
			return nil, execErr
		})
		if cbErr != nil {
			return nil, apperr.ProviderError("get message metadata", cbErr)
		}

		meta := out.ProviderMessageMeta{
			ID:      ref.Id,
			Snippet: msg.Snippet,
			Date:    time.Now().UTC(),
		}
		for _, h := range payloadHeaders(msg.Payload) {
			switch h.Name {
			case "Subject":
				meta.Subject = h.Value
			case "From":
				meta.Sender = h.Value
			case "Date":
				// Parse failures are swallowed; the default stands.
				if t, err := time.Parse(dateLayoutPrimary, h.Value); err == nil {
					meta.Date = t
				}
			}
		}
		result.Messages = append(result.Messages, meta)
	}

	return result, nil
}

// GetMessage fetches the full message and decodes its MIME structure.
func (a *Adapter) GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*out.ProviderMessage, error) {
	svc, err := a.service(ctx, token)
	if err != nil {
		return nil, err
	}

	var msg *gmailapi.Message
	_, cbErr := a.cb.Execute(func() (interface{}, error) {
		var execErr error
		msg, execErr = svc.Users.Messages.Get("me", messageID).
			Format("full").
			Context(ctx).
			Do()
		return nil, execErr
	})
	if cbErr != nil {
		return nil, apperr.ProviderError("get message", cbErr)
	}

	return parseMessage(msg), nil
}

// GetLatestMessageID returns the id of the newest message, "" for an empty
// mailbox.
func (a *Adapter) GetLatestMessageID(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := a.service(ctx, token)
	if err != nil {
		return "", err
	}

	var resp *gmailapi.ListMessagesResponse
	_, cbErr := a.cb.Execute(func() (interface{}, error) {
		var execErr error
		resp, execErr = svc.Users.Messages.List("me").MaxResults(1).Context(ctx).Do()
		return nil, execErr
	})
	if cbErr != nil {
		return "", apperr.ProviderError("list latest message", cbErr)
	}

	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[0].Id, nil
}

// =============================================================================
// Parsing helpers
// =============================================================================

func payloadHeaders(payload *gmailapi.MessagePart) []*gmailapi.MessagePartHeader {
	if payload == nil {
		return nil
	}
	return payload.Headers
}

func parseMessage(msg *gmailapi.Message) *out.ProviderMessage {
	pm := &out.ProviderMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		LabelIDs: msg.LabelIds,
		Date:     time.Now().UTC(),
	}

	if msg.Payload == nil {
		return pm
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			pm.Subject = DecodeHeader(header.Value)
		case "from":
			pm.Sender = DecodeHeader(header.Value)
		case "to":
			pm.Recipient = DecodeHeader(header.Value)
		case "date":
			pm.Date = ParseDate(header.Value)
		}
	}

	pm.Content, pm.HTMLContent = parseBody(msg.Payload)

	return pm
}

// parseBody extracts the plain-text body, concatenating all text/plain
// parts (recursing into nested multiparts), and the first text/html part.
// Other leaf types (text/calendar, inline attachments) are skipped. A
// single-part message decodes directly whatever its type.
func parseBody(payload *gmailapi.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	if len(payload.Parts) == 0 {
		data := decodePartData(payload)
		if payload.MimeType == "text/html" {
			return "", data
		}
		return data, ""
	}

	var sb strings.Builder
	collectBodyParts(payload.Parts, &sb, &html)
	return sb.String(), html
}

func collectBodyParts(parts []*gmailapi.MessagePart, text *strings.Builder, html *string) {
	for _, part := range parts {
		if len(part.Parts) > 0 {
			collectBodyParts(part.Parts, text, html)
			continue
		}
		switch part.MimeType {
		case "text/plain":
			text.WriteString(decodePartData(part))
		case "text/html":
			if *html == "" {
				*html = decodePartData(part)
			}
		}
	}
}

func decodePartData(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	data, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		// Some providers omit padding.
		data, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
	}
	return string(data)
}

// DecodeHeader decodes RFC-2047 encoded words. Unknown charsets fall back
// to reading the bytes as-is (undecodable sequences become replacement
// runes downstream); a decode failure returns the raw header.
func DecodeHeader(header string) string {
	dec := new(mime.WordDecoder)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := ianaindex.MIME.Encoding(charset)
		if err != nil || enc == nil {
			return input, nil
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	}
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

const (
	dateLayoutPrimary = "Mon, 02 Jan 2006 15:04:05 -0700"
	dateLayoutNaive   = "Mon, 02 Jan 2006 15:04:05"
)

var trailingTZName = regexp.MustCompile(`\s+\([A-Z]+\)$`)

// ParseDate parses a Date header with a fallback chain: primary layout,
// then with any trailing "(TZNAME)" stripped, then without the UTC offset
// as naive local time. Unparseable input yields the current time.
func ParseDate(dateStr string) time.Time {
	if t, err := time.Parse(dateLayoutPrimary, dateStr); err == nil {
		return t
	}

	stripped := trailingTZName.ReplaceAllString(dateStr, "")
	if t, err := time.Parse(dateLayoutPrimary, stripped); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(dateLayoutNaive, stripped, time.Local); err == nil {
		return t
	}

	return time.Now().UTC()
}

// Ensure Adapter implements out.EmailProviderPort
var _ out.EmailProviderPort = (*Adapter)(nil)

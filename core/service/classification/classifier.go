// Package classification assigns a category and importance score to a
// message via an LLM prompt.
package classification

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/out"

	"github.com/goccy/go-json"
)

// Classifier builds the classification prompt and parses the model reply.
// Parsing is total: malformed replies resolve to (UNKNOWN, 50); only the
// underlying model call can fail.
type Classifier struct {
	llm out.LLMPort
}

func NewClassifier(llm out.LLMPort) *Classifier {
	return &Classifier{llm: llm}
}

const classifyPromptTemplate = `Analyze and classify the following email.

Subject: %s
From: %s
Content: %s

Classify it into exactly one of these categories and score its importance (0-100):
- WORK: important work-related emails (meetings, projects, reports)
- PERSONAL: personal communication (friends, family)
- NEWSLETTER: newsletters and subscription digests (news, blogs, updates)
- SPAM: unwanted or suspicious emails
- ADVERTISEMENT: marketing and promotional content
- SOCIAL: social media notifications (SNS, communities)
- UNKNOWN: cannot be classified

Respond with this exact JSON format:
{
    "category": "CATEGORY",
    "importance": 50
}`

// Classify sends the classification prompt and returns a total result.
func (c *Classifier) Classify(ctx context.Context, subject, content, sender string) (*domain.Classification, error) {
	prompt := fmt.Sprintf(classifyPromptTemplate, subject, sender, truncateBody(content, 2000))

	reply, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &domain.Classification{
		Category:     domain.CategoryUnknown,
		Importance:   domain.DefaultImportance,
		ClassifiedAt: time.Now().UTC(),
	}

	if parsed, ok := parseClassifyReply(reply); ok {
		result.Category = domain.Coerce(parsed.Category)
		if parsed.Importance != nil {
			result.Importance = float64(*parsed.Importance)
		}
	}

	return result, nil
}

type classifyReply struct {
	Category   string     `json:"category"`
	Importance *flexFloat `json:"importance"`
}

// flexFloat accepts both numeric and quoted-numeric importance values;
// models do not reliably honor the requested shape.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// parseClassifyReply attempts to extract and decode the JSON object inside
// the reply. The bool result tells the caller whether to apply fallbacks.
func parseClassifyReply(reply string) (*classifyReply, bool) {
	jsonStr, ok := ExtractJSON(reply)
	if !ok {
		return nil, false
	}

	var parsed classifyReply
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, false
	}
	return &parsed, true
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON locates the first-to-last brace substring in a model reply,
// which may carry prose before or after the JSON.
func ExtractJSON(reply string) (string, bool) {
	match := jsonObjectPattern.FindString(reply)
	if match == "" {
		return "", false
	}
	return match, true
}

func truncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "..."
}

// Package summary produces a short summary, key points, and action items
// for a message via an LLM prompt.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartmail_server/core/domain"
	"smartmail_server/core/port/out"
	"smartmail_server/core/service/classification"

	"github.com/goccy/go-json"
)

// Summarizer builds the summarization prompt and parses the model reply.
// An unparseable reply degrades to the raw text with empty lists; only the
// underlying model call can fail.
type Summarizer struct {
	llm out.LLMPort
}

func NewSummarizer(llm out.LLMPort) *Summarizer {
	return &Summarizer{llm: llm}
}

const summarizePromptTemplate = `Analyze the following email and provide:
1. A brief summary
2. Key points
3. Action items, if any

Subject: %s
From: %s
Content: %s

Respond with this exact JSON format:
{
    "summary": "brief summary",
    "key_points": [
        "key point 1",
        "key point 2"
    ],
    "action_items": [
        "action item 1",
        "action item 2"
    ]
}`

// Summarize sends the summarization prompt and returns a total result.
func (s *Summarizer) Summarize(ctx context.Context, content, subject, sender string) (*domain.Summary, error) {
	prompt := fmt.Sprintf(summarizePromptTemplate, subject, sender, truncateBody(content, 3000))

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &domain.Summary{
		Summary:      strings.TrimSpace(reply),
		KeyPoints:    []string{},
		ActionItems:  []string{},
		SummarizedAt: time.Now().UTC(),
	}

	if parsed, ok := parseSummarizeReply(reply); ok {
		result.Summary = parsed.Summary
		if parsed.KeyPoints != nil {
			result.KeyPoints = parsed.KeyPoints
		}
		if parsed.ActionItems != nil {
			result.ActionItems = parsed.ActionItems
		}
	}

	return result, nil
}

type summarizeReply struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
}

func parseSummarizeReply(reply string) (*summarizeReply, bool) {
	jsonStr, ok := classification.ExtractJSON(reply)
	if !ok {
		return nil, false
	}

	var parsed summarizeReply
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, false
	}
	return &parsed, true
}

func truncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "..."
}

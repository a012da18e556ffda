package summary

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name            string
		reply           string
		wantSummary     string
		wantKeyPoints   []string
		wantActionItems []string
	}{
		{
			name:            "clean JSON",
			reply:           `{"summary": "Quarterly review scheduled.", "key_points": ["Q3 numbers", "new hires"], "action_items": ["book room"]}`,
			wantSummary:     "Quarterly review scheduled.",
			wantKeyPoints:   []string{"Q3 numbers", "new hires"},
			wantActionItems: []string{"book room"},
		},
		{
			name:            "JSON wrapped in prose",
			reply:           "Here you go:\n{\"summary\": \"Short note.\", \"key_points\": [], \"action_items\": []}",
			wantSummary:     "Short note.",
			wantKeyPoints:   []string{},
			wantActionItems: []string{},
		},
		{
			name:            "prose only degrades to raw text",
			reply:           "  This email is about the offsite.  ",
			wantSummary:     "This email is about the offsite.",
			wantKeyPoints:   []string{},
			wantActionItems: []string{},
		},
		{
			name:            "missing lists become empty",
			reply:           `{"summary": "Just a summary."}`,
			wantSummary:     "Just a summary.",
			wantKeyPoints:   []string{},
			wantActionItems: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(&fakeLLM{reply: tt.reply})

			got, err := s.Summarize(context.Background(), "content", "subject", "sender@example.com")
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if !reflect.DeepEqual(got.KeyPoints, tt.wantKeyPoints) {
				t.Errorf("KeyPoints = %v, want %v", got.KeyPoints, tt.wantKeyPoints)
			}
			if !reflect.DeepEqual(got.ActionItems, tt.wantActionItems) {
				t.Errorf("ActionItems = %v, want %v", got.ActionItems, tt.wantActionItems)
			}
			if got.SummarizedAt.IsZero() {
				t.Error("SummarizedAt not set")
			}
		})
	}
}

func TestSummarizeModelError(t *testing.T) {
	s := NewSummarizer(&fakeLLM{err: errors.New("timeout")})

	_, err := s.Summarize(context.Background(), "content", "subject", "sender@example.com")
	if err == nil {
		t.Fatal("expected error from failed model call")
	}
}

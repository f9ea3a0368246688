package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVariants(t *testing.T) {
	p := NewProcessor(500, 300)

	tests := []struct {
		name          string
		raw           string
		wantReasoning string
		wantReaction  string
		wantMessages  []string
	}{
		{
			name:          "thinking and response with break",
			raw:           "<thinking>T</thinking><response>A[BREAK]B</response>",
			wantReasoning: "T",
			wantMessages:  []string{"A", "B"},
		},
		{
			name:         "response with message subtags",
			raw:          "<response><message>first</message><message>second</message></response>",
			wantMessages: []string{"first", "second"},
		},
		{
			name:         "response single payload",
			raw:          "<response>just one thing</response>",
			wantMessages: []string{"just one thing"},
		},
		{
			name:          "emoji extracted",
			raw:           "<thinking>hm</thinking><emoji>🎉</emoji><response>congrats!</response>",
			wantReasoning: "hm",
			wantReaction:  "🎉",
			wantMessages:  []string{"congrats!"},
		},
		{
			name:         "bare break marker",
			raw:          "one[BREAK]two[BREAK]three",
			wantMessages: []string{"one", "two", "three"},
		},
		{
			name:         "legacy separator",
			raw:          "old style ||| still works",
			wantMessages: []string{"old style", "still works"},
		},
		{
			name:         "plain text passes through",
			raw:          "hey, how was your day?",
			wantMessages: []string{"hey, how was your day?"},
		},
		{
			name:         "stray tags stripped",
			raw:          "hello</response> there<message>",
			wantMessages: []string{"hello there"},
		},
		{
			name:         "empty break segments dropped",
			raw:          "<response>A[BREAK]   [BREAK]B</response>",
			wantMessages: []string{"A", "B"},
		},
		{
			name:          "thinking only falls back to reasoning",
			raw:           "<thinking>all I have</thinking>",
			wantReasoning: "all I have",
			wantMessages:  []string{"all I have"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.raw)
			require.Equal(t, tt.wantReasoning, got.Reasoning)
			require.Equal(t, tt.wantReaction, got.Reaction)
			require.Equal(t, tt.wantMessages, got.Messages)
		})
	}
}

// Parsing output that is already plain text must return it unchanged, so
// re-parsing a delivered message is a no-op.
func TestParseIdempotent(t *testing.T) {
	p := NewProcessor(500, 300)

	raws := []string{
		"<thinking>T</thinking><response>A[BREAK]B</response>",
		"plain text here.",
		"<response><message>x</message><message>y</message></response>",
	}
	for _, raw := range raws {
		first := p.Parse(raw)
		for _, msg := range first.Messages {
			again := p.Parse(msg)
			require.Equal(t, []string{msg}, again.Messages)
			require.Empty(t, again.Reasoning)
		}
	}
}

func TestParseNonEmptyGuarantee(t *testing.T) {
	p := NewProcessor(500, 300)

	raws := []string{
		"x",
		"<response></response>fallback",
		"<thinking>only thoughts</thinking>",
		"<emoji>🙂</emoji><response>hi</response>",
		"|||",
		"<response>   </response>",
	}
	for _, raw := range raws {
		got := p.Parse(raw)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		require.NotEmpty(t, got.Messages, "raw: %q", raw)
		for _, msg := range got.Messages {
			require.NotEmpty(t, strings.TrimSpace(msg), "raw: %q", raw)
		}
	}
}

func TestParseAutoSplitsLongMessage(t *testing.T) {
	p := NewProcessor(100, 60)

	sentence := "This sentence is long enough to matter for the splitter."
	raw := strings.Repeat(sentence+" ", 5)

	got := p.Parse(raw)
	require.Greater(t, len(got.Messages), 1)
	for _, msg := range got.Messages {
		require.LessOrEqual(t, len(msg), 60)
	}
}

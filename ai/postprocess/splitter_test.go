package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLongRespectsMaxLen(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("A short sentence. Another one here! And a third? ", 10))

	chunks := splitLong(text, 120)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 120)
		require.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestSplitLongNeverCutsInsideSentence(t *testing.T) {
	text := "First sentence ends here. Second sentence is a bit longer and ends here too. Third one."

	chunks := splitLong(text, 50)
	for _, chunk := range chunks {
		// Every chunk ends on sentence-final punctuation.
		last := rune(chunk[len(chunk)-1])
		require.True(t, isSentenceEnd(last), "chunk %q does not end a sentence", chunk)
	}
}

func TestSplitLongPrefersParagraphBreaks(t *testing.T) {
	text := "Paragraph one is right here.\n\nParagraph two follows it.\n\nParagraph three closes."

	chunks := splitLong(text, 30)
	require.Equal(t, []string{
		"Paragraph one is right here.",
		"Paragraph two follows it.",
		"Paragraph three closes.",
	}, chunks)
}

// Joining the chunks back together preserves every word in order.
func TestSplitLongReconstruction(t *testing.T) {
	text := "One two three. Four five six!\n\nSeven eight nine? Ten eleven twelve. " +
		"Thirteen fourteen fifteen. Sixteen seventeen eighteen."

	chunks := splitLong(text, 40)
	got := strings.Fields(strings.Join(chunks, " "))
	want := strings.Fields(text)
	require.Equal(t, want, got)
}

func TestSplitLongOversizedSentenceKeptWhole(t *testing.T) {
	long := "This single sentence runs on far past the limit without any internal punctuation so it cannot be cut."
	text := "Short one. " + long + " Short two."

	chunks := splitLong(text, 40)
	require.Contains(t, chunks, long)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic",
			text: "Hello there. How are you? Fine!",
			want: []string{"Hello there.", "How are you?", "Fine!"},
		},
		{
			name: "ellipsis and quotes",
			text: `She said "maybe." Then left... We waited.`,
			want: []string{`She said "maybe."`, "Then left...", "We waited."},
		},
		{
			name: "decimal not split",
			text: "The bill was 12.50 total. Cheap!",
			want: []string{"The bill was 12.50 total.", "Cheap!"},
		},
		{
			name: "no terminal punctuation",
			text: "trailing fragment without an end",
			want: []string{"trailing fragment without an end"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}

package companion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/store"
)

func testSummarizer(ms *memStore, fl *fakeLLM, loc *time.Location) *Summarizer {
	a := testAssembler(ms, loc)
	return NewSummarizer(fl, ms, metrics.NewExporter(), a, loc, "")
}

// The full pass over one window writes exactly one summary and one memory
// entry sharing the batch's first/last exchange timestamps.
func TestCompactWritesPairedRecords(t *testing.T) {
	ctx := context.Background()
	loc := testLocation(t)
	ms := newMemStore()
	ms.addUser(1, "Sam")

	base := time.Date(2026, 2, 5, 12, 0, 0, 0, loc).Unix()
	seedExchanges(t, ms, 1, 10, base)
	batch, err := ms.ListExchanges(ctx, &store.FindExchange{})
	require.NoError(t, err)

	fl := &fakeLLM{responses: []string{
		"SUMMARY:\n[START] We discussed Sam's week.",
		"<title>A quiet check-in</title>\n<memory>Sam is carrying a lot right now.</memory>",
	}}
	s := testSummarizer(ms, fl, loc)

	require.NoError(t, s.Compact(ctx, 1, batch))

	summaries := ms.recordsOfKind(store.DurableRecordCompactSummary)
	memories := ms.recordsOfKind(store.DurableRecordMemoryEntry)
	require.Len(t, summaries, 1)
	require.Len(t, memories, 1)

	wantStart := batch[0].CreatedTs
	wantEnd := batch[len(batch)-1].CreatedTs
	for _, record := range []*store.DurableRecord{summaries[0], memories[0]} {
		require.NotNil(t, record.ExchangeStartTs)
		require.NotNil(t, record.ExchangeEndTs)
		require.Equal(t, wantStart, *record.ExchangeStartTs)
		require.Equal(t, wantEnd, *record.ExchangeEndTs)
	}

	require.Equal(t, int32(5), summaries[0].Importance)
	require.Equal(t, int32(6), memories[0].Importance)
	require.Equal(t, "A quiet check-in", memories[0].Title)
	require.Contains(t, memories[0].Content, "carrying a lot")
}

func TestCompactDiscardsEmptyOutput(t *testing.T) {
	ctx := context.Background()
	loc := testLocation(t)
	ms := newMemStore()
	ms.addUser(1, "Sam")

	seedExchanges(t, ms, 1, 3, time.Now().Unix()-1000)
	batch, err := ms.ListExchanges(ctx, &store.FindExchange{})
	require.NoError(t, err)

	fl := &fakeLLM{responses: []string{
		"SUMMARY:\n   \n",
		"<title></title>\n<memory>  </memory>",
	}}
	s := testSummarizer(ms, fl, loc)

	require.NoError(t, s.Compact(ctx, 1, batch))
	require.Empty(t, ms.recordsOfKind(store.DurableRecordCompactSummary))
	require.Empty(t, ms.recordsOfKind(store.DurableRecordMemoryEntry))
}

func TestCompactMemoryOnly(t *testing.T) {
	ctx := context.Background()
	loc := testLocation(t)
	ms := newMemStore()
	ms.addUser(1, "Sam")

	seedExchanges(t, ms, 1, 5, time.Now().Unix()-1000)
	batch, err := ms.ListExchanges(ctx, &store.FindExchange{})
	require.NoError(t, err)

	fl := &fakeLLM{responses: []string{
		"<title>Threads</title>\n<memory>Sam mentioned the interview again.</memory>",
	}}
	s := testSummarizer(ms, fl, loc)

	require.NoError(t, s.CompactMemoryOnly(ctx, 1, batch))
	require.Empty(t, ms.recordsOfKind(store.DurableRecordCompactSummary))
	require.Len(t, ms.recordsOfKind(store.DurableRecordMemoryEntry), 1)
}

func TestParseSummaryEnvelope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"with marker", "preamble\nSUMMARY:\nWe discussed things.", "We discussed things."},
		{"without marker", "We just discussed things.", "We just discussed things."},
		{"empty", "SUMMARY:\n   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseSummaryEnvelope(tt.raw))
		})
	}
}

func TestParseMemoryEnvelope(t *testing.T) {
	title, content := parseMemoryEnvelope("<title>T</title>\n<memory>M</memory>")
	require.Equal(t, "T", title)
	require.Equal(t, "M", content)

	// Missing tags fall back to the whole output.
	title, content = parseMemoryEnvelope("just plain text")
	require.Empty(t, title)
	require.Equal(t, "just plain text", content)
}

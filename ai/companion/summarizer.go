package companion

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/akihq/aki/ai/core/llm"
	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/store"
)

const (
	compactImportance = 5
	memoryImportance  = 6
)

var (
	titleRe  = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	memoryRe = regexp.MustCompile(`(?s)<memory>(.*?)</memory>`)
)

// SummarizerStore is the slice of the store the summarizer writes.
type SummarizerStore interface {
	CreateDurableRecord(ctx context.Context, create *store.CreateDurableRecord) (*store.DurableRecord, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// Summarizer condenses a batch of exchanges into durable records. The full
// pass writes two records over the same window: a neutral factual summary
// and a first-person memory entry. Both carry the batch's first/last
// exchange timestamps so they stay pairable.
type Summarizer struct {
	llm       llm.Service
	store     SummarizerStore
	metrics   *metrics.Exporter
	loc       *time.Location
	model     string // override for condensation calls; empty uses the default
	assembler *Assembler
}

func NewSummarizer(svc llm.Service, s SummarizerStore, m *metrics.Exporter, assembler *Assembler, loc *time.Location, model string) *Summarizer {
	if loc == nil {
		loc = time.Local
	}
	return &Summarizer{llm: svc, store: s, metrics: m, loc: loc, model: model, assembler: assembler}
}

// Compact writes both tiers for the batch.
func (s *Summarizer) Compact(ctx context.Context, userID int32, batch []*store.Exchange) error {
	if len(batch) == 0 {
		return nil
	}
	window, err := s.describeBatch(ctx, userID, batch)
	if err != nil {
		return err
	}

	if err := s.compactPass(ctx, userID, window); err != nil {
		return err
	}
	return s.memoryPass(ctx, userID, window)
}

// CompactMemoryOnly writes just the memory tier, for the second-tier
// trigger cadence.
func (s *Summarizer) CompactMemoryOnly(ctx context.Context, userID int32, batch []*store.Exchange) error {
	if len(batch) == 0 {
		return nil
	}
	window, err := s.describeBatch(ctx, userID, batch)
	if err != nil {
		return err
	}
	return s.memoryPass(ctx, userID, window)
}

// batchWindow is a rendered batch plus the metadata both records share.
type batchWindow struct {
	userName     string
	startTs      int64
	endTs        int64
	startLabel   string
	endLabel     string
	conversation string
}

func (s *Summarizer) describeBatch(ctx context.Context, userID int32, batch []*store.Exchange) (*batchWindow, error) {
	userName := "them"
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil && user.Name != "" {
		userName = user.Name
	}

	startTs := batch[0].CreatedTs
	endTs := batch[len(batch)-1].CreatedTs
	return &batchWindow{
		userName:     userName,
		startTs:      startTs,
		endTs:        endTs,
		startLabel:   time.Unix(startTs, 0).In(s.loc).Format("2006-01-02 15:04"),
		endLabel:     time.Unix(endTs, 0).In(s.loc).Format("2006-01-02 15:04"),
		conversation: s.assembler.FormatTail(batch, userName),
	}, nil
}

func (s *Summarizer) compactPass(ctx context.Context, userID int32, window *batchWindow) error {
	prompt := renderCompactPrompt(window.userName, window.startLabel, window.endLabel, window.conversation)
	raw, stats, err := s.llm.Chat(ctx, &llm.Request{
		Messages: []llm.Message{llm.UserMessage(prompt)},
		Model:    s.model,
	})
	if err != nil {
		return fmt.Errorf("compact generation failed: %w", err)
	}
	s.metrics.RecordLLMUsage("compact", stats.PromptTokens, stats.CompletionTokens)

	content := parseSummaryEnvelope(raw)
	if content == "" {
		slog.Warn("compact pass produced empty summary, discarding", "user_id", userID)
		s.metrics.RecordDiscarded(string(store.DurableRecordCompactSummary))
		return nil
	}

	return s.persist(ctx, userID, window, store.DurableRecordCompactSummary, "", content, compactImportance)
}

func (s *Summarizer) memoryPass(ctx context.Context, userID int32, window *batchWindow) error {
	prompt := renderMemoryPrompt(window.userName, window.startLabel, window.endLabel, window.conversation)
	raw, stats, err := s.llm.Chat(ctx, &llm.Request{
		Messages: []llm.Message{llm.UserMessage(prompt)},
		Model:    s.model,
	})
	if err != nil {
		return fmt.Errorf("memory generation failed: %w", err)
	}
	s.metrics.RecordLLMUsage("memory", stats.PromptTokens, stats.CompletionTokens)

	title, content := parseMemoryEnvelope(raw)
	if content == "" {
		slog.Warn("memory pass produced empty entry, discarding", "user_id", userID)
		s.metrics.RecordDiscarded(string(store.DurableRecordMemoryEntry))
		return nil
	}

	return s.persist(ctx, userID, window, store.DurableRecordMemoryEntry, title, content, memoryImportance)
}

func (s *Summarizer) persist(ctx context.Context, userID int32, window *batchWindow, kind store.DurableRecordKind, title, content string, importance int32) error {
	startTs, endTs := window.startTs, window.endTs
	_, err := s.store.CreateDurableRecord(ctx, &store.CreateDurableRecord{
		UserID:          userID,
		Kind:            kind,
		Title:           title,
		Content:         content,
		Importance:      importance,
		ExchangeStartTs: &startTs,
		ExchangeEndTs:   &endTs,
	})
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", kind, err)
	}
	s.metrics.RecordCondensation(string(kind))
	slog.Info("condensed exchange window",
		"user_id", userID,
		"kind", kind,
		"exchange_start", window.startLabel,
		"exchange_end", window.endLabel,
	)
	return nil
}

// parseSummaryEnvelope extracts the text after the SUMMARY: marker. Output
// without the marker is used whole; the envelope is a convention, not a
// gate.
func parseSummaryEnvelope(raw string) string {
	if idx := strings.Index(raw, "SUMMARY:"); idx >= 0 {
		raw = raw[idx+len("SUMMARY:"):]
	}
	return strings.TrimSpace(raw)
}

// parseMemoryEnvelope extracts <title> and <memory>. Missing tags fall back
// to the whole output as content.
func parseMemoryEnvelope(raw string) (title, content string) {
	if m := titleRe.FindStringSubmatch(raw); m != nil {
		title = strings.TrimSpace(m[1])
	}
	if m := memoryRe.FindStringSubmatch(raw); m != nil {
		content = strings.TrimSpace(m[1])
	} else {
		content = strings.TrimSpace(titleRe.ReplaceAllString(raw, ""))
	}
	return title, content
}

package companion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akihq/aki/store"
)

// noMemoriesPlaceholder renders instead of an empty summaries block. The
// model treats an empty block as license to invent a shared past; the
// explicit placeholder keeps it honest.
const noMemoriesPlaceholder = "Nothing yet. This is the beginning of your conversations together."

// AssemblerStore is the slice of the store the assembler reads.
type AssemblerStore interface {
	ListDurableRecords(ctx context.Context, find *store.FindDurableRecord) ([]*store.DurableRecord, error)
	ListExchanges(ctx context.Context, find *store.FindExchange) ([]*store.Exchange, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// ContextBundle is the bounded context for one generation call: a block of
// durable summaries and the raw tail of the conversation. The two blocks
// overlap on recent exchanges on purpose; recency fidelity wins over
// deduplication.
type ContextBundle struct {
	Summaries string
	Tail      string
}

// AssemblerConfig bounds how much history a bundle carries.
type AssemblerConfig struct {
	// SummaryFetchLimit is how many durable records to fetch before
	// filtering by kind. It exceeds DisplayLimit because all durable kinds
	// share one table.
	SummaryFetchLimit   int
	SummaryDisplayLimit int
	TailLimit           int
}

// Assembler builds context bundles with hard upper bounds, regardless of
// how much history has accumulated.
type Assembler struct {
	store AssemblerStore
	cfg   AssemblerConfig
	loc   *time.Location
}

func NewAssembler(s AssemblerStore, cfg AssemblerConfig, loc *time.Location) *Assembler {
	if loc == nil {
		loc = time.Local
	}
	return &Assembler{store: s, cfg: cfg, loc: loc}
}

// BuildBundle assembles the context for one turn of the given user.
func (a *Assembler) BuildBundle(ctx context.Context, userID int32) (*ContextBundle, error) {
	summaries, err := a.buildSummaries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build summaries block: %w", err)
	}
	tail, err := a.buildTail(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build tail block: %w", err)
	}
	return &ContextBundle{Summaries: summaries, Tail: tail}, nil
}

func (a *Assembler) buildSummaries(ctx context.Context, userID int32) (string, error) {
	fetchLimit := a.cfg.SummaryFetchLimit
	records, err := a.store.ListDurableRecords(ctx, &store.FindDurableRecord{
		UserID: &userID,
		Limit:  &fetchLimit,
	})
	if err != nil {
		return "", err
	}

	// Newest-first fetch, filter down to summaries, keep the display
	// window, then flip to oldest-first for reading order.
	var kept []*store.DurableRecord
	for _, record := range records {
		if record.Kind != store.DurableRecordCompactSummary {
			continue
		}
		kept = append(kept, record)
		if len(kept) == a.cfg.SummaryDisplayLimit {
			break
		}
	}
	if len(kept) == 0 {
		return noMemoriesPlaceholder, nil
	}

	var b strings.Builder
	for i := len(kept) - 1; i >= 0; i-- {
		record := kept[i]
		b.WriteString(a.formatRecordRange(record))
		b.WriteString("\n")
		b.WriteString(record.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func (a *Assembler) buildTail(ctx context.Context, userID int32) (string, error) {
	exchanges, err := a.store.ListExchanges(ctx, &store.FindExchange{
		UserID: &userID,
		Limit:  &a.cfg.TailLimit,
	})
	if err != nil {
		return "", err
	}

	name := "them"
	if user, err := a.store.GetUser(ctx, &store.FindUser{ID: &userID}); err == nil && user != nil && user.Name != "" {
		name = user.Name
	}

	return a.FormatTail(exchanges, name), nil
}

// FormatTail renders exchanges as one line per message, chronological, with
// local timestamps. Exported because the intent sweep reuses the same
// rendering for proactive messages.
func (a *Assembler) FormatTail(exchanges []*store.Exchange, userName string) string {
	if userName == "" {
		userName = "them"
	}
	var b strings.Builder
	for _, exchange := range exchanges {
		label := userName
		if exchange.Role == store.ExchangeRoleAssistant {
			label = "You"
		}
		ts := time.Unix(exchange.CreatedTs, 0).In(a.loc)
		fmt.Fprintf(&b, "[%s] %s: %s\n", ts.Format("2006-01-02 15:04"), label, exchange.Content)
	}
	return strings.TrimSpace(b.String())
}

func (a *Assembler) formatRecordRange(record *store.DurableRecord) string {
	if record.ExchangeStartTs == nil || record.ExchangeEndTs == nil {
		return fmt.Sprintf("[%s]", a.formatTs(record.CreatedTs))
	}
	return fmt.Sprintf("[%s to %s]", a.formatTs(*record.ExchangeStartTs), a.formatTs(*record.ExchangeEndTs))
}

func (a *Assembler) formatTs(ts int64) string {
	return time.Unix(ts, 0).In(a.loc).Format("2006-01-02 15:04")
}

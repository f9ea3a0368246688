package companion

import (
	"context"
	"fmt"

	"github.com/akihq/aki/store"
)

// TriggerStore is the slice of the store the trigger reads.
type TriggerStore interface {
	ListDurableRecords(ctx context.Context, find *store.FindDurableRecord) ([]*store.DurableRecord, error)
	ListExchanges(ctx context.Context, find *store.FindExchange) ([]*store.Exchange, error)
	CountExchangesAfter(ctx context.Context, userID int32, afterTs int64) (int, error)
}

// Condenser persists durable records for a batch of exchanges.
type Condenser interface {
	Compact(ctx context.Context, userID int32, batch []*store.Exchange) error
	CompactMemoryOnly(ctx context.Context, userID int32, batch []*store.Exchange) error
}

// TriggerConfig holds the per-tier thresholds in exchanges.
type TriggerConfig struct {
	CompactInterval int
	MemoryInterval  int
}

// Trigger decides after each turn whether enough conversation has
// accumulated to condense. It keeps no counters of its own; "since when" is
// derived from the newest durable record of each tier, so the decision
// survives restarts.
type Trigger struct {
	store     TriggerStore
	condenser Condenser
	cfg       TriggerConfig
}

func NewTrigger(s TriggerStore, c Condenser, cfg TriggerConfig) *Trigger {
	return &Trigger{store: s, condenser: c, cfg: cfg}
}

// MaybeCompact runs the threshold check for the given user and condenses
// when due. Two turns racing here may both fire; the duplicate summary is
// harmless and not worth a lock on the turn path.
func (t *Trigger) MaybeCompact(ctx context.Context, userID int32) error {
	sinceCompact, err := t.newestRecordTs(ctx, userID, store.DurableRecordCompactSummary)
	if err != nil {
		return fmt.Errorf("failed to find newest summary: %w", err)
	}
	count, err := t.store.CountExchangesAfter(ctx, userID, sinceCompact)
	if err != nil {
		return fmt.Errorf("failed to count exchanges: %w", err)
	}
	if count >= t.cfg.CompactInterval {
		batch, err := t.batchAfter(ctx, userID, sinceCompact, 2*t.cfg.CompactInterval)
		if err != nil {
			return err
		}
		// The full pass writes both tiers, so the memory threshold is
		// satisfied for this window too.
		return t.condenser.Compact(ctx, userID, batch)
	}

	sinceMemory, err := t.newestRecordTs(ctx, userID, store.DurableRecordMemoryEntry)
	if err != nil {
		return fmt.Errorf("failed to find newest memory entry: %w", err)
	}
	memoryCount, err := t.store.CountExchangesAfter(ctx, userID, sinceMemory)
	if err != nil {
		return fmt.Errorf("failed to count exchanges: %w", err)
	}
	if memoryCount >= t.cfg.MemoryInterval {
		batch, err := t.batchAfter(ctx, userID, sinceMemory, 2*t.cfg.MemoryInterval)
		if err != nil {
			return err
		}
		return t.condenser.CompactMemoryOnly(ctx, userID, batch)
	}

	return nil
}

// newestRecordTs returns the creation time of the newest record of the
// given kind, or 0 when none exists (cold start counts everything).
func (t *Trigger) newestRecordTs(ctx context.Context, userID int32, kind store.DurableRecordKind) (int64, error) {
	one := 1
	records, err := t.store.ListDurableRecords(ctx, &store.FindDurableRecord{
		UserID: &userID,
		Kind:   &kind,
		Limit:  &one,
	})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return records[0].CreatedTs, nil
}

// batchAfter loads the window to condense. A cold start over an old log or
// a run of discarded passes can leave far more than one interval above the
// last record; the limit keeps the condensation prompt bounded, taking the
// most recent exchanges.
func (t *Trigger) batchAfter(ctx context.Context, userID int32, afterTs int64, limit int) ([]*store.Exchange, error) {
	batch, err := t.store.ListExchanges(ctx, &store.FindExchange{
		UserID:  &userID,
		AfterTs: &afterTs,
		Limit:   &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange batch: %w", err)
	}
	return batch, nil
}

package companion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akihq/aki/ai/core/llm"
	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/store"
)

const observationImportance = 4

// nothingSignificant is the model's explicit "no output" token. Anything
// else that parses to zero lines is treated the same way.
const nothingSignificant = "NOTHING_SIGNIFICANT"

// ObserverStore is the slice of the store the observer touches.
type ObserverStore interface {
	CreateDurableRecord(ctx context.Context, create *store.CreateDurableRecord) (*store.DurableRecord, error)
	ListScheduledIntents(ctx context.Context, find *store.FindScheduledIntent) ([]*store.ScheduledIntent, error)
}

// IntentScheduler schedules a follow-up from a free-form time expression.
type IntentScheduler interface {
	Schedule(ctx context.Context, userID int32, expr, category, context string) (*store.ScheduledIntent, error)
}

// Observer runs the per-turn observation pass on a cheaper model. It emits
// durable observations and scheduled follow-ups; it never blocks or fails
// the turn that spawned it.
type Observer struct {
	llm     llm.Service
	store   ObserverStore
	intents IntentScheduler
	metrics *metrics.Exporter
	loc     *time.Location
	model   string
}

func NewObserver(svc llm.Service, s ObserverStore, intents IntentScheduler, m *metrics.Exporter, loc *time.Location, model string) *Observer {
	if loc == nil {
		loc = time.Local
	}
	return &Observer{llm: svc, store: s, intents: intents, metrics: m, loc: loc, model: model}
}

// Observe runs one observation pass over the turn that just completed.
func (o *Observer) Observe(ctx context.Context, userID int32, userMessage, assistantResponse, reasoning string) error {
	// The model sees what is already on the calendar, so a topic that spans
	// several turns does not pile up duplicate follow-ups.
	pending, err := o.pendingFollowUps(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list pending follow-ups: %w", err)
	}

	now := time.Now().In(o.loc).Format("2006-01-02T15:04")
	prompt := renderObservationPrompt(now, userMessage, assistantResponse, reasoning, pending)

	raw, stats, err := o.llm.Chat(ctx, &llm.Request{
		Messages:    []llm.Message{llm.UserMessage(prompt)},
		Model:       o.model,
		Temperature: 0.3,
	})
	if err != nil {
		return fmt.Errorf("observation generation failed: %w", err)
	}
	o.metrics.RecordLLMUsage("observation", stats.PromptTokens, stats.CompletionTokens)

	return o.apply(ctx, userID, raw)
}

func (o *Observer) pendingFollowUps(ctx context.Context, userID int32) (string, error) {
	executed := false
	intents, err := o.store.ListScheduledIntents(ctx, &store.FindScheduledIntent{
		UserID:   &userID,
		Executed: &executed,
	})
	if err != nil {
		return "", err
	}
	if len(intents) == 0 {
		return "(none)", nil
	}
	lines := make([]string, 0, len(intents))
	for _, intent := range intents {
		due := time.Unix(intent.ScheduledTs, 0).In(o.loc).Format("2006-01-02 15:04")
		lines = append(lines, fmt.Sprintf("- %s: %s", due, intent.Context))
	}
	return strings.Join(lines, "\n"), nil
}

// apply parses the line protocol and persists what it finds. Malformed
// lines are skipped with a log, never an error.
func (o *Observer) apply(ctx context.Context, userID int32, raw string) error {
	if strings.Contains(raw, nothingSignificant) {
		return nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "OBSERVATION:"):
			o.applyObservation(ctx, userID, strings.TrimPrefix(line, "OBSERVATION:"))
		case strings.HasPrefix(line, "FOLLOW_UP:"):
			o.applyFollowUp(ctx, userID, strings.TrimPrefix(line, "FOLLOW_UP:"))
		}
	}
	return nil
}

func (o *Observer) applyObservation(ctx context.Context, userID int32, rest string) {
	category, text, found := strings.Cut(rest, "|")
	if !found {
		category, text = "", rest
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	_, err := o.store.CreateDurableRecord(ctx, &store.CreateDurableRecord{
		UserID:     userID,
		Kind:       store.DurableRecordObservation,
		Title:      strings.TrimSpace(category),
		Content:    text,
		Importance: observationImportance,
	})
	if err != nil {
		slog.Error("failed to persist observation", "user_id", userID, "error", err)
		return
	}
	o.metrics.RecordObservation()
}

func (o *Observer) applyFollowUp(ctx context.Context, userID int32, rest string) {
	parts := strings.SplitN(rest, "|", 3)
	if len(parts) < 3 {
		slog.Warn("malformed follow-up line, skipping", "user_id", userID, "line", rest)
		return
	}
	expr := strings.TrimSpace(parts[0])
	topic := strings.TrimSpace(parts[1])
	context := strings.TrimSpace(parts[2])

	// Reminders the user asked for explicitly are never a judgment call.
	category := store.IntentCategoryFollowUp
	if strings.EqualFold(topic, "reminder") {
		category = store.IntentCategoryExplicitRequest
	}
	if topic != "" {
		context = topic + ": " + context
	}

	if _, err := o.intents.Schedule(ctx, userID, expr, category, context); err != nil {
		slog.Error("failed to schedule follow-up", "user_id", userID, "expr", expr, "error", err)
	}
}

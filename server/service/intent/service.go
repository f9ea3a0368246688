// Package intent schedules and delivers proactive follow-ups: reminders the
// user asked for and check-ins the observation pass surfaced.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/akihq/aki/ai/companion"
	"github.com/akihq/aki/ai/core/llm"
	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/ai/timeparse"
	"github.com/akihq/aki/store"
)

// historyLimit bounds the conversation tail given to the render call.
const historyLimit = 10

// skipToken is the model's way of declining a check-in that no longer makes
// sense. A skipped intent is still executed.
const skipToken = "SKIP"

// Store is the slice of the store the intent service uses.
type Store interface {
	CreateScheduledIntent(ctx context.Context, create *store.CreateScheduledIntent) (*store.ScheduledIntent, error)
	ListScheduledIntents(ctx context.Context, find *store.FindScheduledIntent) ([]*store.ScheduledIntent, error)
	MarkIntentExecuted(ctx context.Context, id int64) error
	ListExchanges(ctx context.Context, find *store.FindExchange) ([]*store.Exchange, error)
	CreateExchange(ctx context.Context, create *store.CreateExchange) (*store.Exchange, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// Deliverer pushes outbound messages to the user's chat platform.
type Deliverer interface {
	SendMessages(ctx context.Context, platformID string, messages []string) error
}

// Service owns the scheduled-intent lifecycle. Delivery is at-most-once:
// the executed flag is set whether or not rendering and delivery succeed,
// so a wedged intent can never fire on every sweep forever.
type Service struct {
	store     Store
	llm       llm.Service
	resolver  *timeparse.Resolver
	assembler *companion.Assembler
	deliverer Deliverer
	metrics   *metrics.Exporter
	loc       *time.Location
}

func NewService(s Store, svc llm.Service, resolver *timeparse.Resolver, assembler *companion.Assembler, deliverer Deliverer, m *metrics.Exporter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:     s,
		llm:       svc,
		resolver:  resolver,
		assembler: assembler,
		deliverer: deliverer,
		metrics:   m,
		loc:       loc,
	}
}

// Schedule resolves expr and stores the intent. Resolution never fails;
// unparseable expressions land 24h out.
func (s *Service) Schedule(ctx context.Context, userID int32, expr, category, context string) (*store.ScheduledIntent, error) {
	scheduledAt := s.resolver.Resolve(expr, time.Now())

	intent, err := s.store.CreateScheduledIntent(ctx, &store.CreateScheduledIntent{
		UID:         uuid.NewString(),
		UserID:      userID,
		ScheduledTs: scheduledAt.Unix(),
		Category:    category,
		Context:     context,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled intent: %w", err)
	}

	s.metrics.RecordIntentScheduled(category)
	slog.Info("scheduled intent",
		"user_id", userID,
		"category", category,
		"scheduled_at", scheduledAt.In(s.loc).Format("2006-01-02 15:04"),
	)
	return intent, nil
}

// SweepDueIntents delivers every unexecuted intent whose time has passed.
// Each intent is marked executed exactly once regardless of outcome.
func (s *Service) SweepDueIntents(ctx context.Context) error {
	now := time.Now().Unix()
	notExecuted := false
	due, err := s.store.ListScheduledIntents(ctx, &store.FindScheduledIntent{
		Executed:  &notExecuted,
		DueBefore: &now,
	})
	if err != nil {
		return fmt.Errorf("failed to list due intents: %w", err)
	}

	for _, intent := range due {
		if err := s.deliver(ctx, intent); err != nil {
			slog.Error("intent delivery failed", "intent_uid", intent.UID, "error", err)
			s.metrics.RecordIntentFailed()
		} else {
			s.metrics.RecordIntentDelivered()
		}
		if err := s.store.MarkIntentExecuted(ctx, intent.ID); err != nil {
			return fmt.Errorf("failed to mark intent executed: %w", err)
		}
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, intent *store.ScheduledIntent) error {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &intent.UserID})
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %d not found", intent.UserID)
	}

	message, err := s.renderMessage(ctx, intent, user)
	if err != nil {
		return err
	}
	if message == "" {
		// Model declined the check-in; executed without delivery.
		slog.Info("intent skipped by model", "intent_uid", intent.UID)
		return nil
	}

	if err := s.deliverer.SendMessages(ctx, user.PlatformID, []string{message}); err != nil {
		return fmt.Errorf("failed to deliver intent message: %w", err)
	}

	// The proactive message joins the conversation log so later context
	// assembly and condensation see it.
	_, err = s.store.CreateExchange(ctx, &store.CreateExchange{
		UID:     shortuuid.New(),
		UserID:  intent.UserID,
		Role:    store.ExchangeRoleAssistant,
		Content: message,
	})
	if err != nil {
		return fmt.Errorf("failed to append delivered intent to log: %w", err)
	}
	return nil
}

// renderMessage returns the text to send, or "" when the model skips.
func (s *Service) renderMessage(ctx context.Context, intent *store.ScheduledIntent, user *store.User) (string, error) {
	if intent.Message != nil && strings.TrimSpace(*intent.Message) != "" {
		return strings.TrimSpace(*intent.Message), nil
	}

	limit := historyLimit
	exchanges, err := s.store.ListExchanges(ctx, &store.FindExchange{
		UserID: &intent.UserID,
		Limit:  &limit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	history := s.assembler.FormatTail(exchanges, user.Name)

	prompt := companion.RenderProactivePrompt(intent.Context, history)
	raw, stats, err := s.llm.Chat(ctx, &llm.Request{
		Messages: []llm.Message{llm.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to render intent message: %w", err)
	}
	s.metrics.RecordLLMUsage("intent", stats.PromptTokens, stats.CompletionTokens)

	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, skipToken) {
		return "", nil
	}
	return raw, nil
}

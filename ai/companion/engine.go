// Package companion implements the conversational engine: bounded context
// assembly, the turn loop, and the background condensation passes that keep
// long-running conversations inside a fixed context budget.
package companion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/akihq/aki/ai/core/llm"
	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/ai/postprocess"
	"github.com/akihq/aki/internal/background"
	"github.com/akihq/aki/store"
)

// EngineStore is the slice of the store the turn loop writes.
type EngineStore interface {
	CreateExchange(ctx context.Context, create *store.CreateExchange) (*store.Exchange, error)
}

// CompactionTrigger is the post-turn condensation check.
type CompactionTrigger interface {
	MaybeCompact(ctx context.Context, userID int32) error
}

// TurnObserver is the post-turn observation pass.
type TurnObserver interface {
	Observe(ctx context.Context, userID int32, userMessage, assistantResponse, reasoning string) error
}

// TurnResult is what a channel delivers for one user turn.
type TurnResult struct {
	Messages []string
	Reaction string // empty unless both the model offered one and the cadence fired
}

// EngineOptions wires the engine's collaborators.
type EngineOptions struct {
	Store     EngineStore
	LLM       llm.Service
	Assembler *Assembler
	Trigger   CompactionTrigger
	Observer  TurnObserver
	Processor *postprocess.Processor
	Reactions *ReactionController
	Runner    *background.Runner
	Metrics   *metrics.Exporter
	Persona   string
	Location  *time.Location
}

// Engine runs the turn loop.
type Engine struct {
	store     EngineStore
	llm       llm.Service
	assembler *Assembler
	trigger   CompactionTrigger
	observer  TurnObserver
	processor *postprocess.Processor
	reactions *ReactionController
	runner    *background.Runner
	metrics   *metrics.Exporter
	persona   string
	loc       *time.Location
}

func NewEngine(opts EngineOptions) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		store:     opts.Store,
		llm:       opts.LLM,
		assembler: opts.Assembler,
		trigger:   opts.Trigger,
		observer:  opts.Observer,
		processor: opts.Processor,
		reactions: opts.Reactions,
		runner:    opts.Runner,
		metrics:   opts.Metrics,
		persona:   opts.Persona,
		loc:       loc,
	}
}

// ProcessTurn handles one inbound user message end to end: append, assemble,
// generate, post-process, append the reply, then detach the condensation
// trigger and the observation pass. Background failures are logged by the
// runner and never reach the caller.
func (e *Engine) ProcessTurn(ctx context.Context, userID int32, text string) (*TurnResult, error) {
	_, err := e.store.CreateExchange(ctx, &store.CreateExchange{
		UID:     shortuuid.New(),
		UserID:  userID,
		Role:    store.ExchangeRoleUser,
		Content: text,
	})
	if err != nil {
		e.metrics.RecordTurnFailure()
		return nil, fmt.Errorf("failed to append user exchange: %w", err)
	}

	bundle, err := e.assembler.BuildBundle(ctx, userID)
	if err != nil {
		e.metrics.RecordTurnFailure()
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	now := time.Now().In(e.loc).Format("Monday, 2006-01-02 15:04")
	system := renderSystemPrompt(e.persona, bundle.Summaries, bundle.Tail, now)

	content, stats, err := e.llm.Chat(ctx, &llm.Request{
		Messages: []llm.Message{
			llm.SystemPrompt(system),
			llm.UserMessage(text),
		},
	})
	if err != nil {
		e.metrics.RecordTurnFailure()
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	e.metrics.RecordLLMUsage("chat", stats.PromptTokens, stats.CompletionTokens)

	parsed := e.processor.Parse(content)
	joined := strings.Join(parsed.Messages, "\n")

	var reasoning *string
	if parsed.Reasoning != "" {
		reasoning = &parsed.Reasoning
	}
	_, err = e.store.CreateExchange(ctx, &store.CreateExchange{
		UID:       shortuuid.New(),
		UserID:    userID,
		Role:      store.ExchangeRoleAssistant,
		Content:   joined,
		Reasoning: reasoning,
	})
	if err != nil {
		e.metrics.RecordTurnFailure()
		return nil, fmt.Errorf("failed to append assistant exchange: %w", err)
	}

	e.runner.Go("compaction trigger", func(ctx context.Context) error {
		return e.trigger.MaybeCompact(ctx, userID)
	})
	e.runner.Go("observation pass", func(ctx context.Context) error {
		return e.observer.Observe(ctx, userID, text, joined, parsed.Reasoning)
	})

	reaction := ""
	if parsed.Reaction != "" && e.reactions.ShouldReact(userID) {
		reaction = parsed.Reaction
	}

	e.metrics.RecordTurn()
	return &TurnResult{Messages: parsed.Messages, Reaction: reaction}, nil
}

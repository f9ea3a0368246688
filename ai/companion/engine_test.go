package companion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/ai/postprocess"
	"github.com/akihq/aki/internal/background"
	"github.com/akihq/aki/store"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls []int32
}

func (f *fakeTrigger) MaybeCompact(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return nil
}

type observedTurn struct {
	userMessage       string
	assistantResponse string
	reasoning         string
}

type fakeObserver struct {
	mu    sync.Mutex
	turns []observedTurn
}

func (f *fakeObserver) Observe(_ context.Context, _ int32, userMessage, assistantResponse, reasoning string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, observedTurn{userMessage, assistantResponse, reasoning})
	return nil
}

func testEngine(t *testing.T, ms *memStore, fl *fakeLLM, ft *fakeTrigger, fo *fakeObserver) (*Engine, *background.Runner) {
	t.Helper()
	loc := testLocation(t)
	runner := background.NewRunner(5 * time.Second)
	engine := NewEngine(EngineOptions{
		Store:     ms,
		LLM:       fl,
		Assembler: testAssembler(ms, loc),
		Trigger:   ft,
		Observer:  fo,
		Processor: postprocess.NewProcessor(500, 300),
		Reactions: NewReactionController(1, 1),
		Runner:    runner,
		Metrics:   metrics.NewExporter(),
		Location:  loc,
	})
	return engine, runner
}

func TestProcessTurn(t *testing.T) {
	ms := newMemStore()
	ms.addUser(1, "Sam")
	fl := &fakeLLM{responses: []string{
		"<thinking>T</thinking><emoji>🎉</emoji><response>A[BREAK]B</response>",
	}}
	ft := &fakeTrigger{}
	fo := &fakeObserver{}
	engine, runner := testEngine(t, ms, fl, ft, fo)

	result, err := engine.ProcessTurn(context.Background(), 1, "big news!")
	require.NoError(t, err)
	runner.Wait()

	require.Equal(t, []string{"A", "B"}, result.Messages)
	require.Equal(t, "🎉", result.Reaction)

	// Both exchanges are in the log; the assistant one carries the full
	// joined text and the private reasoning trace.
	exchanges, err := ms.ListExchanges(context.Background(), &store.FindExchange{})
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	require.Equal(t, store.ExchangeRoleUser, exchanges[0].Role)
	require.Equal(t, "big news!", exchanges[0].Content)
	require.Equal(t, store.ExchangeRoleAssistant, exchanges[1].Role)
	require.Equal(t, "A\nB", exchanges[1].Content)
	require.NotNil(t, exchanges[1].Reasoning)
	require.Equal(t, "T", *exchanges[1].Reasoning)
	require.NotEmpty(t, exchanges[0].UID)
	require.NotEmpty(t, exchanges[1].UID)

	// Both background passes detached.
	require.Equal(t, []int32{1}, ft.calls)
	require.Len(t, fo.turns, 1)
	require.Equal(t, observedTurn{"big news!", "A\nB", "T"}, fo.turns[0])
}

func TestProcessTurnSystemPromptCarriesContext(t *testing.T) {
	ms := newMemStore()
	ms.addUser(1, "Sam")
	_, err := ms.CreateDurableRecord(context.Background(), &store.CreateDurableRecord{
		UserID:    1,
		Kind:      store.DurableRecordCompactSummary,
		Content:   "We discussed Sam's interview prep.",
		CreatedTs: time.Now().Unix() - 3600,
	})
	require.NoError(t, err)

	fl := &fakeLLM{responses: []string{"<response>good luck today!</response>"}}
	engine, runner := testEngine(t, ms, fl, &fakeTrigger{}, &fakeObserver{})

	_, err = engine.ProcessTurn(context.Background(), 1, "heading out")
	require.NoError(t, err)
	runner.Wait()

	require.Len(t, fl.requests, 1)
	system := fl.requests[0].Messages[0].Content
	require.Contains(t, system, "We discussed Sam's interview prep.")
	require.Contains(t, system, "heading out") // raw tail includes the turn itself
}

func TestProcessTurnNoReactionWithoutEmoji(t *testing.T) {
	ms := newMemStore()
	fl := &fakeLLM{responses: []string{"<response>plain reply</response>"}}
	engine, runner := testEngine(t, ms, fl, &fakeTrigger{}, &fakeObserver{})

	result, err := engine.ProcessTurn(context.Background(), 1, "hello")
	require.NoError(t, err)
	runner.Wait()

	require.Empty(t, result.Reaction)
	require.Equal(t, []string{"plain reply"}, result.Messages)
}

func TestProcessTurnGenerationFailure(t *testing.T) {
	ms := newMemStore()
	fl := &fakeLLM{} // no scripted responses: every call errors
	engine, runner := testEngine(t, ms, fl, &fakeTrigger{}, &fakeObserver{})

	_, err := engine.ProcessTurn(context.Background(), 1, "hello")
	require.Error(t, err)
	runner.Wait()

	// The user exchange is still durable; only the reply is missing.
	exchanges, listErr := ms.ListExchanges(context.Background(), &store.FindExchange{})
	require.NoError(t, listErr)
	require.Len(t, exchanges, 1)
	require.Equal(t, store.ExchangeRoleUser, exchanges[0].Role)
}

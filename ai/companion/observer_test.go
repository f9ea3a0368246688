package companion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/store"
)

type scheduledCall struct {
	userID   int32
	expr     string
	category string
	context  string
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduledCall
}

func (f *fakeScheduler) Schedule(_ context.Context, userID int32, expr, category, context string) (*store.ScheduledIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduledCall{userID, expr, category, context})
	return &store.ScheduledIntent{UserID: userID, Category: category}, nil
}

func testObserver(ms *memStore, fl *fakeLLM, fs *fakeScheduler, t *testing.T) *Observer {
	t.Helper()
	return NewObserver(fl, ms, fs, metrics.NewExporter(), testLocation(t), "")
}

func TestObserveNothingSignificant(t *testing.T) {
	ms := newMemStore()
	fs := &fakeScheduler{}
	fl := &fakeLLM{responses: []string{"NOTHING_SIGNIFICANT"}}
	o := testObserver(ms, fl, fs, t)

	require.NoError(t, o.Observe(context.Background(), 1, "hi", "hey", ""))
	require.Empty(t, ms.recordsOfKind(store.DurableRecordObservation))
	require.Empty(t, fs.calls)
}

func TestObservePersistsObservations(t *testing.T) {
	ms := newMemStore()
	fs := &fakeScheduler{}
	fl := &fakeLLM{responses: []string{
		"OBSERVATION: emotions | Still grinding through the job search.\n" +
			"OBSERVATION: patterns | Deflects with humor when things get heavy.",
	}}
	o := testObserver(ms, fl, fs, t)

	require.NoError(t, o.Observe(context.Background(), 1, "hi", "hey", "thinking"))

	records := ms.recordsOfKind(store.DurableRecordObservation)
	require.Len(t, records, 2)
	require.Equal(t, "emotions", records[0].Title)
	require.Equal(t, "Still grinding through the job search.", records[0].Content)
	require.Equal(t, int32(observationImportance), records[0].Importance)
}

func TestObserveSchedulesFollowUps(t *testing.T) {
	ms := newMemStore()
	fs := &fakeScheduler{}
	fl := &fakeLLM{responses: []string{
		"OBSERVATION: circumstances | Interview at 3pm today.\n" +
			"FOLLOW_UP: 2026-02-05T17:00 | interview | check in after the 3pm interview\n" +
			"FOLLOW_UP: 2026-02-05T14:40 | reminder | they asked to be reminded in 10 minutes",
	}}
	o := testObserver(ms, fl, fs, t)

	require.NoError(t, o.Observe(context.Background(), 1, "hi", "hey", ""))

	require.Len(t, fs.calls, 2)
	require.Equal(t, "2026-02-05T17:00", fs.calls[0].expr)
	require.Equal(t, store.IntentCategoryFollowUp, fs.calls[0].category)
	require.Equal(t, "interview: check in after the 3pm interview", fs.calls[0].context)
	// Explicit reminder requests are promoted.
	require.Equal(t, store.IntentCategoryExplicitRequest, fs.calls[1].category)
}

// Pending check-ins ride along in the prompt so the model can see what is
// already scheduled instead of piling up duplicates across turns.
func TestObservePromptIncludesPendingFollowUps(t *testing.T) {
	ms := newMemStore()
	fs := &fakeScheduler{}
	fl := &fakeLLM{responses: []string{"NOTHING_SIGNIFICANT"}}
	o := testObserver(ms, fl, fs, t)

	due := time.Date(2026, 2, 5, 17, 0, 0, 0, testLocation(t)).Unix()
	ms.addIntent(&store.ScheduledIntent{
		UserID:      1,
		ScheduledTs: due,
		Category:    store.IntentCategoryFollowUp,
		Context:     "interview: check in after the 3pm interview",
	})
	ms.addIntent(&store.ScheduledIntent{UserID: 2, ScheduledTs: due, Context: "someone else's check-in"})
	ms.addIntent(&store.ScheduledIntent{UserID: 1, ScheduledTs: due, Context: "already delivered", Executed: true})

	require.NoError(t, o.Observe(context.Background(), 1, "hi", "hey", ""))

	require.Len(t, fl.requests, 1)
	prompt := fl.requests[0].Messages[0].Content
	require.Contains(t, prompt, "- 2026-02-05 17:00: interview: check in after the 3pm interview")
	require.NotContains(t, prompt, "someone else's check-in")
	require.NotContains(t, prompt, "already delivered")
}

func TestObservePromptWithNoPendingFollowUps(t *testing.T) {
	ms := newMemStore()
	fs := &fakeScheduler{}
	fl := &fakeLLM{responses: []string{"NOTHING_SIGNIFICANT"}}
	o := testObserver(ms, fl, fs, t)

	require.NoError(t, o.Observe(context.Background(), 1, "hi", "hey", ""))

	require.Len(t, fl.requests, 1)
	require.Contains(t, fl.requests[0].Messages[0].Content, "Check-ins you already have scheduled:\n(none)")
}

func TestObserveSkipsMalformedLines(t *testing.T) {
	ms := newMemStore()
	fs := &fakeScheduler{}
	fl := &fakeLLM{responses: []string{
		"FOLLOW_UP: missing fields\n" +
			"OBSERVATION: emotions |    \n" +
			"some stray chatter\n" +
			"OBSERVATION: growth | Sat with it this time instead of deflecting.",
	}}
	o := testObserver(ms, fl, fs, t)

	require.NoError(t, o.Observe(context.Background(), 1, "hi", "hey", ""))
	require.Empty(t, fs.calls)
	records := ms.recordsOfKind(store.DurableRecordObservation)
	require.Len(t, records, 1)
	require.Equal(t, "growth", records[0].Title)
}

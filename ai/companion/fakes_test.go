package companion

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akihq/aki/ai/core/llm"
	"github.com/akihq/aki/store"
)

// memStore is an in-memory stand-in for the store facade, covering every
// narrow interface the companion components consume.
type memStore struct {
	mu        sync.Mutex
	users     map[int32]*store.User
	exchanges []*store.Exchange
	records   []*store.DurableRecord
	intents   []*store.ScheduledIntent
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{users: map[int32]*store.User{}}
}

func (m *memStore) addUser(id int32, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &store.User{ID: id, Name: name}
}

func (m *memStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if find.ID != nil {
		return m.users[*find.ID], nil
	}
	return nil, nil
}

func (m *memStore) CreateExchange(_ context.Context, create *store.CreateExchange) (*store.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	exchange := &store.Exchange{
		ID:        m.nextID,
		UID:       create.UID,
		UserID:    create.UserID,
		Role:      create.Role,
		Content:   create.Content,
		Reasoning: create.Reasoning,
		CreatedTs: createdTs,
	}
	m.exchanges = append(m.exchanges, exchange)
	return exchange, nil
}

func (m *memStore) ListExchanges(_ context.Context, find *store.FindExchange) ([]*store.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Exchange
	for _, e := range m.exchanges {
		if find.UserID != nil && e.UserID != *find.UserID {
			continue
		}
		if find.AfterTs != nil && e.CreatedTs <= *find.AfterTs {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedTs < out[j].CreatedTs })
	if find.Limit != nil && len(out) > *find.Limit {
		out = out[len(out)-*find.Limit:]
	}
	return out, nil
}

func (m *memStore) CountExchangesAfter(_ context.Context, userID int32, afterTs int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.exchanges {
		if e.UserID == userID && e.CreatedTs > afterTs {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CreateDurableRecord(_ context.Context, create *store.CreateDurableRecord) (*store.DurableRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	record := &store.DurableRecord{
		ID:              m.nextID,
		UserID:          create.UserID,
		Kind:            create.Kind,
		Title:           create.Title,
		Content:         create.Content,
		Importance:      create.Importance,
		ExchangeStartTs: create.ExchangeStartTs,
		ExchangeEndTs:   create.ExchangeEndTs,
		CreatedTs:       createdTs,
	}
	m.records = append(m.records, record)
	return record, nil
}

func (m *memStore) ListDurableRecords(_ context.Context, find *store.FindDurableRecord) ([]*store.DurableRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.DurableRecord
	for _, r := range m.records {
		if find.UserID != nil && r.UserID != *find.UserID {
			continue
		}
		if find.Kind != nil && r.Kind != *find.Kind {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedTs != out[j].CreatedTs {
			return out[i].CreatedTs > out[j].CreatedTs
		}
		return out[i].ID > out[j].ID
	})
	if find.Limit != nil && len(out) > *find.Limit {
		out = out[:*find.Limit]
	}
	return out, nil
}

func (m *memStore) addIntent(intent *store.ScheduledIntent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	intent.ID = m.nextID
	m.intents = append(m.intents, intent)
}

func (m *memStore) ListScheduledIntents(_ context.Context, find *store.FindScheduledIntent) ([]*store.ScheduledIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.ScheduledIntent
	for _, i := range m.intents {
		if find.UserID != nil && i.UserID != *find.UserID {
			continue
		}
		if find.Executed != nil && i.Executed != *find.Executed {
			continue
		}
		if find.DueBefore != nil && i.ScheduledTs > *find.DueBefore {
			continue
		}
		out = append(out, i)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledTs < out[j].ScheduledTs })
	if find.Limit != nil && len(out) > *find.Limit {
		out = out[:*find.Limit]
	}
	return out, nil
}

func (m *memStore) recordsOfKind(kind store.DurableRecordKind) []*store.DurableRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.DurableRecord
	for _, r := range m.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// fakeLLM returns scripted responses in order and records requests.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	requests  []*llm.Request
}

func (f *fakeLLM) Chat(_ context.Context, req *llm.Request) (string, *llm.CallStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return "", nil, context.Canceled
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, &llm.CallStats{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

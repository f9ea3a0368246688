// Package store provides database access to all raw objects.
package store

import (
	"context"

	"github.com/akihq/aki/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// User methods.

func (s *Store) UpsertUser(ctx context.Context, upsert *UpsertUser) (*User, error) {
	return s.driver.UpsertUser(ctx, upsert)
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	return s.driver.GetUser(ctx, find)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// Exchange methods (append-only conversation log).

func (s *Store) CreateExchange(ctx context.Context, create *CreateExchange) (*Exchange, error) {
	return s.driver.CreateExchange(ctx, create)
}

func (s *Store) ListExchanges(ctx context.Context, find *FindExchange) ([]*Exchange, error) {
	return s.driver.ListExchanges(ctx, find)
}

func (s *Store) CountExchangesAfter(ctx context.Context, userID int32, afterTs int64) (int, error) {
	return s.driver.CountExchangesAfter(ctx, userID, afterTs)
}

// Durable record methods (compact summaries, memory entries, observations).

func (s *Store) CreateDurableRecord(ctx context.Context, create *CreateDurableRecord) (*DurableRecord, error) {
	return s.driver.CreateDurableRecord(ctx, create)
}

func (s *Store) ListDurableRecords(ctx context.Context, find *FindDurableRecord) ([]*DurableRecord, error) {
	return s.driver.ListDurableRecords(ctx, find)
}

// Scheduled intent methods.

func (s *Store) CreateScheduledIntent(ctx context.Context, create *CreateScheduledIntent) (*ScheduledIntent, error) {
	return s.driver.CreateScheduledIntent(ctx, create)
}

func (s *Store) ListScheduledIntents(ctx context.Context, find *FindScheduledIntent) ([]*ScheduledIntent, error) {
	return s.driver.ListScheduledIntents(ctx, find)
}

func (s *Store) MarkIntentExecuted(ctx context.Context, id int64) error {
	return s.driver.MarkIntentExecuted(ctx, id)
}

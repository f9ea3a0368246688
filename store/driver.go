package store

import "context"

// Driver is an interface for store driver.
// It contains all the methods that the store needs to implement.
type Driver interface {
	GetDB() any
	Close() error
	Migrate(ctx context.Context) error

	// User model related methods.
	UpsertUser(ctx context.Context, upsert *UpsertUser) (*User, error)
	GetUser(ctx context.Context, find *FindUser) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)

	// Exchange model related methods.
	CreateExchange(ctx context.Context, create *CreateExchange) (*Exchange, error)
	ListExchanges(ctx context.Context, find *FindExchange) ([]*Exchange, error)
	CountExchangesAfter(ctx context.Context, userID int32, afterTs int64) (int, error)

	// DurableRecord model related methods.
	CreateDurableRecord(ctx context.Context, create *CreateDurableRecord) (*DurableRecord, error)
	ListDurableRecords(ctx context.Context, find *FindDurableRecord) ([]*DurableRecord, error)

	// ScheduledIntent model related methods.
	CreateScheduledIntent(ctx context.Context, create *CreateScheduledIntent) (*ScheduledIntent, error)
	ListScheduledIntents(ctx context.Context, find *FindScheduledIntent) ([]*ScheduledIntent, error)
	MarkIntentExecuted(ctx context.Context, id int64) error
}

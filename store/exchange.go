package store

// ExchangeRole identifies who authored an exchange.
type ExchangeRole string

const (
	ExchangeRoleUser      ExchangeRole = "user"
	ExchangeRoleAssistant ExchangeRole = "assistant"
)

// Exchange is one turn in the conversation log. Exchanges are immutable once
// written and ordered by CreatedTs.
type Exchange struct {
	ID        int64
	UID       string
	UserID    int32
	Role      ExchangeRole
	Content   string
	Reasoning *string // private reasoning trace, assistant turns only
	CreatedTs int64
}

// CreateExchange is the create condition for an exchange.
type CreateExchange struct {
	UID       string
	UserID    int32
	Role      ExchangeRole
	Content   string
	Reasoning *string
	CreatedTs int64 // zero means "now" (set by the driver)
}

// FindExchange is the find condition for exchanges.
// Results are chronological, newest-last. When Limit is set, it bounds the
// most recent exchanges (the tail), still returned in chronological order.
type FindExchange struct {
	UserID  *int32
	AfterTs *int64 // strictly newer than this timestamp
	Limit   *int
}

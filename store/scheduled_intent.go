package store

// Intent categories. Explicit requests must always be scheduled; the other
// categories are inferred from conversation and are a judgment call.
const (
	IntentCategoryExplicitRequest = "explicit_request"
	IntentCategoryFollowUp        = "follow_up"
	IntentCategoryEventReminder   = "event_reminder"
)

// ScheduledIntent is a stored, time-resolved instruction to proactively
// deliver a message in the future. Executed is a one-way flag: once set it is
// never cleared, even when rendering or delivery failed (at-most-once).
type ScheduledIntent struct {
	ID          int64
	UID         string
	UserID      int32
	ScheduledTs int64
	Category    string
	Context     string  // free-text context for rendering the message
	Message     *string // optional pre-rendered message
	Executed    bool
	CreatedTs   int64
}

// CreateScheduledIntent is the create condition for a scheduled intent.
type CreateScheduledIntent struct {
	UID         string
	UserID      int32
	ScheduledTs int64
	Category    string
	Context     string
	Message     *string
	CreatedTs   int64 // zero means "now" (set by the driver)
}

// FindScheduledIntent is the find condition for scheduled intents.
// Results are ordered by ScheduledTs ascending.
type FindScheduledIntent struct {
	UserID    *int32
	Executed  *bool
	DueBefore *int64 // scheduled_ts <= DueBefore
	Limit     *int
}

package store

// DurableRecordKind discriminates the durable memory tiers sharing one table.
type DurableRecordKind string

const (
	// DurableRecordCompactSummary is a short, neutral, factual condensation
	// of a window of exchanges.
	DurableRecordCompactSummary DurableRecordKind = "COMPACT_SUMMARY"
	// DurableRecordMemoryEntry is a longer, meaning-bearing condensation of
	// the same window, addressed to who the person is.
	DurableRecordMemoryEntry DurableRecordKind = "MEMORY_ENTRY"
	// DurableRecordObservation is a single significant fact noticed during
	// a turn by the observation pass.
	DurableRecordObservation DurableRecordKind = "OBSERVATION"
)

// DurableRecord is a persisted condensation of conversation history.
// A COMPACT_SUMMARY and a MEMORY_ENTRY are paired when their
// ExchangeStartTs/ExchangeEndTs match; both are copied verbatim from the
// first/last exchange of the batch they condense.
type DurableRecord struct {
	ID              int64
	UserID          int32
	Kind            DurableRecordKind
	Title           string
	Content         string
	Importance      int32
	ExchangeStartTs *int64
	ExchangeEndTs   *int64
	CreatedTs       int64
}

// CreateDurableRecord is the create condition for a durable record.
type CreateDurableRecord struct {
	UserID          int32
	Kind            DurableRecordKind
	Title           string
	Content         string
	Importance      int32
	ExchangeStartTs *int64
	ExchangeEndTs   *int64
	CreatedTs       int64 // zero means "now" (set by the driver)
}

// FindDurableRecord is the find condition for durable records.
// Results are newest-first.
type FindDurableRecord struct {
	UserID *int32
	Kind   *DurableRecordKind
	Limit  *int
}

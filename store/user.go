package store

// User represents the one person this companion instance talks to on a
// given chat platform. Users are keyed by their platform identity and
// created lazily on first contact.
type User struct {
	ID           int32
	PlatformID   string // e.g. Telegram user ID, as a string
	Name         string // display name; may be empty
	Username     string // platform handle; may be empty
	CreatedTs    int64
	LastActiveTs int64
}

// UpsertUser is the upsert condition for a user, keyed by PlatformID.
type UpsertUser struct {
	PlatformID   string
	Name         string
	Username     string
	LastActiveTs int64
}

// FindUser is the find condition for users.
type FindUser struct {
	ID         *int32
	PlatformID *string
}

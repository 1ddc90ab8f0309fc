package domain

// Chat is the persisted conversation record. Messages are append-only and
// insertion order is conversation order; the first message, when present,
// has the system role.
type Chat struct {
	UID          int64     `json:"uid"`
	Owner        int64     `json:"owner"`
	Title        string    `json:"title"`
	CreatedAt    int64     `json:"created_at"`
	LastAccessed int64     `json:"last_accessed"`
	Messages     []Message `json:"messages"`
}

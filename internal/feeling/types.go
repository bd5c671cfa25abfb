package feeling

import "time"

// User is the single onboarded profile on this device.
type User struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	City  string `json:"city"`
}

// IsZero reports whether the user has not onboarded yet.
func (u User) IsZero() bool {
	return u.Phone == "" && u.Name == "" && u.City == ""
}

// Entry is one logged feeling. Entries are immutable once created and the
// log keeps them in insertion order, oldest first.
type Entry struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Intensity int    `json:"intensity"` // 1-5
	Note      string `json:"note"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Color     string `json:"color"`
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Type describes one selectable feeling in the check-in catalog.
type Type struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one turn of a Buddy conversation. Messages are never
// persisted.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Stable record keys.
const (
	KeyUser     = "fb_user"
	KeyFeelings = "fb_feelings"
	// KeyFeelingsCorrupt holds the last unreadable feelings log, kept
	// before an append replaces it.
	KeyFeelingsCorrupt = "fb_feelings_corrupt"
)

// Record is one keyed JSON document.
type Record struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

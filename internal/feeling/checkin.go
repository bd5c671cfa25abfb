package feeling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinIntensity = 1
	MaxIntensity = 5
)

var (
	// ErrMissingType is returned when a check-in has no feeling selected.
	ErrMissingType = errors.New("feeling type is required")
	// ErrIntensityRange is returned when intensity falls outside 1..5.
	ErrIntensityRange = fmt.Errorf("intensity must be between %d and %d", MinIntensity, MaxIntensity)
	// ErrIncompleteUser is returned when onboarding omits a field.
	ErrIncompleteUser = errors.New("name, phone and city are required")
)

// CheckIn is the input of the check-in flow.
type CheckIn struct {
	Type      string `json:"type"`
	Intensity int    `json:"intensity"`
	Note      string `json:"note"`
}

// NewEntry validates a check-in and builds the entry that will be appended
// to the log. The colour comes from the catalog.
func NewEntry(in CheckIn, now time.Time) (Entry, error) {
	typ := strings.TrimSpace(in.Type)
	if typ == "" {
		return Entry{}, ErrMissingType
	}
	if in.Intensity < MinIntensity || in.Intensity > MaxIntensity {
		return Entry{}, ErrIntensityRange
	}
	return Entry{
		ID:        uuid.New().String(),
		Type:      typ,
		Intensity: in.Intensity,
		Note:      in.Note,
		Timestamp: now.UnixMilli(),
		Color:     ColorFor(typ),
	}, nil
}

// ValidateUser checks that every onboarding field is filled in.
func ValidateUser(u User) error {
	if strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Phone) == "" || strings.TrimSpace(u.City) == "" {
		return ErrIncompleteUser
	}
	return nil
}

// NewChatMessage builds a chat message stamped with now.
func NewChatMessage(role Role, text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}
}

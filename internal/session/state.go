// Package session holds the application's single state value and the pure
// transitions between its views.
package session

import "github.com/kalambet/feelbuddy/internal/feeling"

// View names one screen of the app.
type View string

const (
	ViewSplash   View = "SPLASH"
	ViewAuth     View = "AUTH"
	ViewHome     View = "HOME"
	ViewFeelings View = "FEELINGS"
	ViewCreate   View = "CREATE"
	ViewBuddy    View = "BUDDY"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	switch v {
	case ViewSplash, ViewAuth, ViewHome, ViewFeelings, ViewCreate, ViewBuddy:
		return true
	}
	return false
}

// ShowsNav reports whether the bottom navigation is visible on v.
func (v View) ShowsNav() bool {
	switch v {
	case ViewHome, ViewFeelings, ViewCreate, ViewBuddy:
		return true
	}
	return false
}

// State is the whole application state. Transitions return a new value and
// never mutate the receiver's log.
type State struct {
	View     View            `json:"view"`
	User     *feeling.User   `json:"user,omitempty"`
	Feelings []feeling.Entry `json:"feelings"`
}

// Initial returns the state at launch.
func Initial(user *feeling.User, feelings []feeling.Entry) State {
	if feelings == nil {
		feelings = []feeling.Entry{}
	}
	return State{View: ViewSplash, User: user, Feelings: feelings}
}

// CompleteSplash leaves the splash screen for HOME when a user exists,
// otherwise for AUTH.
func (s State) CompleteSplash() State {
	if s.View != ViewSplash {
		return s
	}
	if s.User != nil {
		s.View = ViewHome
	} else {
		s.View = ViewAuth
	}
	return s
}

// Login records the user and moves to HOME.
func (s State) Login(u feeling.User) State {
	s.User = &u
	s.View = ViewHome
	return s
}

// SaveFeeling appends e and moves to HOME.
func (s State) SaveFeeling(e feeling.Entry) State {
	feelings := make([]feeling.Entry, len(s.Feelings), len(s.Feelings)+1)
	copy(feelings, s.Feelings)
	s.Feelings = append(feelings, e)
	s.View = ViewHome
	return s
}

// Navigate switches view. Screens that need a user fall back to AUTH, and
// SPLASH cannot be re-entered.
func (s State) Navigate(v View) State {
	if !v.Valid() || v == ViewSplash {
		return s
	}
	if v != ViewAuth && s.User == nil {
		s.View = ViewAuth
		return s
	}
	s.View = v
	return s
}

// Cancel abandons the current screen and returns HOME.
func (s State) Cancel() State {
	return s.Navigate(ViewHome)
}

package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/quote"
	"github.com/kalambet/feelbuddy/internal/storage"
)

// Journal is the persistence the controller writes through to.
// Implemented by journal.Manager.
type Journal interface {
	User() (feeling.User, error)
	Feelings() ([]feeling.Entry, error)
	SaveUser(u feeling.User) error
	Append(e feeling.Entry) error
	Export() ([]storage.Record, error)
	Purge() error
}

// Home is what the home screen shows.
type Home struct {
	User        feeling.User   `json:"user"`
	LastFeeling *feeling.Entry `json:"last_feeling,omitempty"`
	Quote       quote.Quote    `json:"quote"`
}

// Controller owns the single State and keeps it in step with the journal.
type Controller struct {
	journal Journal
	quotes  *quote.Selector
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// NewController loads persisted data and starts on the splash screen.
// Unreadable data starts the app empty.
func NewController(j Journal, quotes *quote.Selector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	var user *feeling.User
	if u, err := j.User(); err != nil {
		logger.Warn("loading user", "error", err)
	} else if !u.IsZero() {
		user = &u
	}
	feelings, err := j.Feelings()
	if err != nil {
		logger.Warn("loading feelings", "error", err)
	}
	return &Controller{
		journal: j,
		quotes:  quotes,
		logger:  logger,
		now:     time.Now,
		state:   Initial(user, feelings),
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Feelings = append([]feeling.Entry{}, c.state.Feelings...)
	return s
}

// CompleteSplash leaves the splash screen.
func (c *Controller) CompleteSplash() State {
	return c.apply(State.CompleteSplash)
}

// Navigate switches view.
func (c *Controller) Navigate(v View) State {
	return c.apply(func(s State) State { return s.Navigate(v) })
}

// Cancel returns HOME.
func (c *Controller) Cancel() State {
	return c.apply(State.Cancel)
}

func (c *Controller) apply(fn func(State) State) State {
	c.mu.Lock()
	c.state = fn(c.state)
	c.mu.Unlock()
	return c.State()
}

// Login validates and records the user. A failed write is logged and the
// in-memory state still advances.
func (c *Controller) Login(u feeling.User) (State, error) {
	if err := feeling.ValidateUser(u); err != nil {
		return c.State(), err
	}
	if err := c.journal.SaveUser(u); err != nil {
		c.logger.Warn("persisting user", "error", err)
	}
	return c.apply(func(s State) State { return s.Login(u) }), nil
}

// CheckIn validates and appends a feeling, then returns HOME. As with
// Login, a failed write is logged and the entry is kept in memory.
func (c *Controller) CheckIn(in feeling.CheckIn) (feeling.Entry, error) {
	c.mu.Lock()
	hasUser := c.state.User != nil
	c.mu.Unlock()
	if !hasUser {
		return feeling.Entry{}, fmt.Errorf("check-in before onboarding: %w", feeling.ErrIncompleteUser)
	}

	e, err := feeling.NewEntry(in, c.now())
	if err != nil {
		return feeling.Entry{}, err
	}
	if err := c.journal.Append(e); err != nil {
		c.logger.Warn("persisting feeling", "error", err)
	}
	c.apply(func(s State) State { return s.SaveFeeling(e) })
	return e, nil
}

// Export returns the persisted records.
func (c *Controller) Export() ([]storage.Record, error) {
	return c.journal.Export()
}

// Reset wipes the journal and starts over at AUTH. Unlike Login and
// CheckIn it is not best-effort: when the purge fails the state is kept.
func (c *Controller) Reset() (State, error) {
	if err := c.journal.Purge(); err != nil {
		return c.State(), err
	}
	return c.apply(func(State) State { return State{View: ViewAuth, Feelings: []feeling.Entry{}} }), nil
}

// Home builds the home screen snapshot with a freshly picked quote.
func (c *Controller) Home() Home {
	s := c.State()
	h := Home{}
	if s.User != nil {
		h.User = *s.User
	}
	if n := len(s.Feelings); n > 0 {
		last := s.Feelings[n-1]
		h.LastFeeling = &last
	}
	h.Quote = c.quotes.Pick(h.LastFeeling)
	return h
}

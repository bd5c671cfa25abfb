// Package journal gives typed, cached access to the persisted user profile
// and feelings log.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/storage"
)

// RecordStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type RecordStore interface {
	GetRecord(key string) (storage.Record, error)
	PutRecord(key, value string) error
	UpdateRecord(key string, fn func(old string, found bool) (string, error)) error
	DeleteRecord(key string) error
	ListRecords() ([]storage.Record, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type snapshot struct {
	user     feeling.User
	feelings []feeling.Entry
}

// Manager reads and writes the two journal records. Reads are cached for a
// short TTL; every write invalidates the cache.
type Manager struct {
	store  RecordStore
	clock  Clock
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	cached   *snapshot
	cachedAt time.Time
}

// NewManager creates a Manager with a 30-second cache TTL.
func NewManager(store RecordStore, logger *slog.Logger) *Manager {
	return NewManagerWithClock(store, realClock{}, 30*time.Second, logger)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store RecordStore, clock Clock, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		logger: logger,
	}
}

// User returns the onboarded user, or the zero User if nobody has
// onboarded.
func (m *Manager) User() (feeling.User, error) {
	snap, err := m.load()
	if err != nil {
		return feeling.User{}, err
	}
	return snap.user, nil
}

// Feelings returns a copy of the full log, oldest first.
func (m *Manager) Feelings() ([]feeling.Entry, error) {
	snap, err := m.load()
	if err != nil {
		return nil, err
	}
	out := make([]feeling.Entry, len(snap.feelings))
	copy(out, snap.feelings)
	return out, nil
}

// Latest returns the newest entry, or nil when the log is empty.
func (m *Manager) Latest() (*feeling.Entry, error) {
	snap, err := m.load()
	if err != nil {
		return nil, err
	}
	if len(snap.feelings) == 0 {
		return nil, nil
	}
	last := snap.feelings[len(snap.feelings)-1]
	return &last, nil
}

func (m *Manager) load() (snapshot, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		s := *m.cached
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return *m.cached, nil
	}

	var snap snapshot
	userJSON, err := m.read(storage.KeyUser)
	if err != nil {
		return snapshot{}, err
	}
	if userJSON != "" {
		if err := json.Unmarshal([]byte(userJSON), &snap.user); err != nil {
			m.logger.Warn("stored user is corrupt, treating as absent", "error", err)
			snap.user = feeling.User{}
		}
	}

	feelingsJSON, err := m.read(storage.KeyFeelings)
	if err != nil {
		return snapshot{}, err
	}
	snap.feelings = m.decodeFeelings(feelingsJSON)

	m.cached = &snap
	m.cachedAt = m.clock.Now()
	return snap, nil
}

func (m *Manager) read(key string) (string, error) {
	r, err := m.store.GetRecord(key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", key, err)
	}
	return r.Value, nil
}

func (m *Manager) decodeFeelings(raw string) []feeling.Entry {
	entries := []feeling.Entry{}
	if raw == "" {
		return entries
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		m.logger.Warn("stored feelings log is corrupt, treating as empty", "error", err)
		return []feeling.Entry{}
	}
	return entries
}

// SaveUser validates and stores the user, replacing any previous one.
func (m *Manager) SaveUser(u feeling.User) error {
	if err := feeling.ValidateUser(u); err != nil {
		return err
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshalling user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.PutRecord(storage.KeyUser, string(b)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	m.cached = nil
	return nil
}

// Append adds e to the end of the log. An unreadable log is copied to
// storage.KeyFeelingsCorrupt before a fresh one is started; if that copy
// fails nothing is written.
func (m *Manager) Append(e feeling.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backupCorruptLog(); err != nil {
		return fmt.Errorf("appending feeling: %w", err)
	}

	err := m.store.UpdateRecord(storage.KeyFeelings, func(old string, _ bool) (string, error) {
		entries := append(m.decodeFeelings(old), e)
		b, err := json.Marshal(entries)
		if err != nil {
			return "", fmt.Errorf("marshalling feelings: %w", err)
		}
		return string(b), nil
	})
	if err != nil {
		return fmt.Errorf("appending feeling: %w", err)
	}
	m.cached = nil
	return nil
}

func (m *Manager) backupCorruptLog() error {
	raw, err := m.read(storage.KeyFeelings)
	if err != nil || raw == "" {
		return err
	}
	var entries []feeling.Entry
	if json.Unmarshal([]byte(raw), &entries) == nil {
		return nil
	}
	if err := m.store.PutRecord(storage.KeyFeelingsCorrupt, raw); err != nil {
		return fmt.Errorf("backing up corrupt feelings log: %w", err)
	}
	m.logger.Warn("corrupt feelings log backed up before starting a new one", "key", storage.KeyFeelingsCorrupt)
	return nil
}

// Export returns every stored record as-is, including ones this version
// does not understand.
func (m *Manager) Export() ([]storage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records, err := m.store.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("exporting records: %w", err)
	}
	if records == nil {
		records = []storage.Record{}
	}
	return records, nil
}

// Purge deletes the user, the whole log and any corrupt-log backup.
func (m *Manager) Purge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	for _, key := range []string{storage.KeyUser, storage.KeyFeelings, storage.KeyFeelingsCorrupt} {
		if err := m.store.DeleteRecord(key); err != nil {
			return fmt.Errorf("purging %s: %w", key, err)
		}
	}
	m.logger.Info("journal purged")
	return nil
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Memory is an in-process Backend, used by default and in tests.
// It also serves sessions so the HTTP API can run without a database.
type Memory struct {
	mu       sync.RWMutex
	seq      int64
	entries  map[string]map[string]memEntry // userID -> symbol -> entry
	users    map[string]string              // email -> userID
	sessions map[string]types.Session       // token -> session
}

type memEntry struct {
	types.WatchlistEntry
	seq int64
}

func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[string]map[string]memEntry),
		users:    make(map[string]string),
		sessions: make(map[string]types.Session),
	}
}

// AddUser registers an identity for email lookups.
func (m *Memory) AddUser(userID, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email] = userID
}

// AddSession registers a session token.
func (m *Memory) AddSession(s types.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
}

func (m *Memory) Insert(_ context.Context, e types.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser, ok := m.entries[e.UserID]
	if !ok {
		byUser = make(map[string]memEntry)
		m.entries[e.UserID] = byUser
	}
	if _, dup := byUser[e.Symbol]; dup {
		return ErrDuplicate
	}
	m.seq++
	byUser[e.Symbol] = memEntry{WatchlistEntry: e, seq: m.seq}
	return nil
}

func (m *Memory) Delete(_ context.Context, userID, symbol string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[userID][symbol]; !ok {
		return 0, nil
	}
	delete(m.entries[userID], symbol)
	return 1, nil
}

func (m *Memory) FindByUser(_ context.Context, userID string) ([]types.WatchlistEntry, error) {
	m.mu.RLock()
	list := make([]memEntry, 0, len(m.entries[userID]))
	for _, e := range m.entries[userID] {
		list = append(list, e)
	}
	m.mu.RUnlock()

	// newest first; insertion order breaks timestamp ties
	sort.Slice(list, func(i, j int) bool {
		if !list[i].AddedAt.Equal(list[j].AddedAt) {
			return list[i].AddedAt.After(list[j].AddedAt)
		}
		return list[i].seq > list[j].seq
	})
	out := make([]types.WatchlistEntry, len(list))
	for i, e := range list {
		out[i] = e.WatchlistEntry
	}
	return out, nil
}

func (m *Memory) FindSymbols(_ context.Context, userID string, symbols []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, sym := range symbols {
		if _, ok := m.entries[userID][sym]; ok {
			out = append(out, sym)
		}
	}
	return out, nil
}

func (m *Memory) Exists(_ context.Context, userID, symbol string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[userID][symbol]
	return ok, nil
}

func (m *Memory) UserIDByEmail(_ context.Context, email string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.users[email]
	if !ok {
		return "", ErrUserNotFound
	}
	return id, nil
}

// FindSession returns the session for token, or nil when there is none.
func (m *Memory) FindSession(_ context.Context, token string) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

var _ Backend = (*Memory)(nil)

// tick is a deterministic clock for tests and imports.
type tick struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// SteppingClock returns a clock starting at start that advances by step
// on every call.
func SteppingClock(start time.Time, step time.Duration) func() time.Time {
	t := &tick{next: start, step: step}
	return func() time.Time {
		t.mu.Lock()
		defer t.mu.Unlock()
		now := t.next
		t.next = t.next.Add(t.step)
		return now
	}
}

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore() (*Store, *Memory) {
	mem := NewMemory()
	return New(mem).WithClock(SteppingClock(t0, time.Minute)), mem
}

func TestAddThenContains(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	res := s.Add(ctx, "u1", "aapl", "Apple Inc")
	require.True(t, res.Success)
	assert.Equal(t, MsgAdded, res.Message)

	assert.True(t, s.Contains(ctx, "u1", "AAPL"))
	assert.True(t, s.Contains(ctx, "u1", " aapl "))
	assert.False(t, s.Contains(ctx, "u2", "AAPL"))

	list := s.ListByUser(ctx, "u1")
	require.Len(t, list, 1)
	assert.Equal(t, "AAPL", list[0].Symbol)
	assert.Equal(t, "Apple Inc", list[0].Company)
	assert.Equal(t, t0, list[0].AddedAt)
}

func TestAddDuplicate(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.True(t, s.Add(ctx, "u1", "AAPL", "Apple").Success)
	res := s.Add(ctx, "u1", "aapl", "Apple again")
	assert.False(t, res.Success)
	assert.Equal(t, MsgAlreadyExists, res.Message)
	assert.True(t, res.Is(types.ErrAlreadyExists))

	assert.Len(t, s.ListByUser(ctx, "u1"), 1)
}

func TestAddConcurrentDuplicates(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]types.Result, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Add(ctx, "u1", "MSFT", "Microsoft")
		}(i)
	}
	wg.Wait()

	added := 0
	for _, r := range results {
		if r.Success {
			added++
		} else {
			assert.True(t, r.Is(types.ErrAlreadyExists))
		}
	}
	assert.Equal(t, 1, added)
	assert.Len(t, s.ListByUser(ctx, "u1"), 1)
}

func TestAddValidation(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	res := s.Add(ctx, "", "AAPL", "Apple")
	assert.True(t, res.Is(types.ErrUnauthorized))
	assert.Equal(t, MsgUnauthorized, res.Message)

	res = s.Add(ctx, "u1", "  ", "")
	assert.True(t, res.Is(types.ErrInvalidSymbol))
}

func TestRemove(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	res := s.Remove(ctx, "u1", "AAPL")
	assert.False(t, res.Success)
	assert.Equal(t, MsgNotFound, res.Message)
	assert.True(t, res.Is(types.ErrNotFound))

	require.True(t, s.Add(ctx, "u1", "AAPL", "Apple").Success)
	res = s.Remove(ctx, "u1", "aapl")
	assert.True(t, res.Success)
	assert.Equal(t, MsgRemoved, res.Message)
	assert.False(t, s.Contains(ctx, "u1", "AAPL"))
}

func TestListByUserNewestFirst(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	for _, sym := range []string{"X", "Y", "Z"} {
		require.True(t, s.Add(ctx, "u1", sym, "").Success)
	}
	require.True(t, s.Add(ctx, "u2", "Q", "").Success)

	var got []string
	for _, e := range s.ListByUser(ctx, "u1") {
		got = append(got, e.Symbol)
		assert.Equal(t, "u1", e.UserID)
	}
	assert.Equal(t, []string{"Z", "Y", "X"}, got)
}

func TestListByUserTiesKeepInsertionOrder(t *testing.T) {
	mem := NewMemory()
	s := New(mem).WithClock(func() time.Time { return t0 })
	ctx := context.Background()

	for _, sym := range []string{"A", "B", "C"} {
		require.True(t, s.Add(ctx, "u1", sym, "").Success)
	}
	var got []string
	for _, e := range s.ListByUser(ctx, "u1") {
		got = append(got, e.Symbol)
	}
	assert.Equal(t, []string{"C", "B", "A"}, got)
}

func TestStatusForSymbols(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.True(t, s.Add(ctx, "u1", "B", "").Success)

	got := s.StatusForSymbols(ctx, "u1", []string{"A", "b", "C", "B"})
	assert.Equal(t, map[string]bool{"A": false, "B": true, "C": false}, got)

	assert.Empty(t, s.StatusForSymbols(ctx, "u1", nil))
	assert.Equal(t, map[string]bool{"B": false}, s.StatusForSymbols(ctx, "", []string{"B"}))
}

func TestListSymbolsByEmail(t *testing.T) {
	s, mem := newStore()
	ctx := context.Background()
	mem.AddUser("u1", "ann@example.com")

	require.True(t, s.Add(ctx, "u1", "X", "").Success)
	require.True(t, s.Add(ctx, "u1", "Y", "").Success)

	assert.Equal(t, []string{"Y", "X"}, s.ListSymbolsByEmail(ctx, "ann@example.com"))
	assert.Equal(t, []string{}, s.ListSymbolsByEmail(ctx, "nobody@example.com"))
	assert.Equal(t, []string{}, s.ListSymbolsByEmail(ctx, ""))
}

// brokenBackend fails every call.
type brokenBackend struct{}

var errDown = errors.New("connection refused")

func (brokenBackend) Insert(context.Context, types.WatchlistEntry) error { return errDown }
func (brokenBackend) Delete(context.Context, string, string) (int64, error) {
	return 0, errDown
}
func (brokenBackend) FindByUser(context.Context, string) ([]types.WatchlistEntry, error) {
	return nil, errDown
}
func (brokenBackend) FindSymbols(context.Context, string, []string) ([]string, error) {
	return nil, errDown
}
func (brokenBackend) Exists(context.Context, string, string) (bool, error) { return false, errDown }
func (brokenBackend) UserIDByEmail(context.Context, string) (string, error) {
	return "", errDown
}

func TestFailuresYieldDefaults(t *testing.T) {
	s := New(brokenBackend{})
	ctx := context.Background()

	res := s.Add(ctx, "u1", "AAPL", "Apple")
	assert.False(t, res.Success)
	assert.Equal(t, MsgAddFailed, res.Message)
	assert.True(t, res.Is(types.ErrPersistence))

	res = s.Remove(ctx, "u1", "AAPL")
	assert.Equal(t, MsgRemoveFailed, res.Message)
	assert.True(t, res.Is(types.ErrPersistence))

	assert.Equal(t, []types.WatchlistEntry{}, s.ListByUser(ctx, "u1"))
	assert.Equal(t, []string{}, s.ListSymbolsByEmail(ctx, "ann@example.com"))
	assert.False(t, s.Contains(ctx, "u1", "AAPL"))
	assert.Equal(t, map[string]bool{"A": false, "B": false},
		s.StatusForSymbols(ctx, "u1", []string{"a", "B"}))
}

// racyBackend reports absence and then loses the insert race.
type racyBackend struct{ brokenBackend }

func (racyBackend) Exists(context.Context, string, string) (bool, error) { return false, nil }
func (racyBackend) Insert(context.Context, types.WatchlistEntry) error  { return ErrDuplicate }

func TestAddUniqueViolationIsAlreadyExists(t *testing.T) {
	res := New(racyBackend{}).Add(context.Background(), "u1", "AAPL", "")
	assert.True(t, res.Is(types.ErrAlreadyExists))
	assert.Equal(t, MsgAlreadyExists, res.Message)
}

func TestMemorySessions(t *testing.T) {
	mem := NewMemory()
	mem.AddSession(types.Session{Token: "tok", UserID: "u1", ExpiresAt: t0})

	s, err := mem.FindSession(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.UserID)

	s, err = mem.FindSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, s)
}

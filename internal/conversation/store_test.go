package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)}
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Get("U1"))
	assert.Zero(t, s.Len())
}

func TestStore_AppendAndGet(t *testing.T) {
	s := NewStore()
	s.Append("U1", Turn{Role: RoleUser, Content: "hi"})
	s.Append("U1", Turn{Role: RoleAssistant, Content: "hello"})
	s.Append("U2", Turn{Role: RoleUser, Content: "other"})

	got := s.Get("U1")
	require.Len(t, got, 2)
	assert.Equal(t, RoleUser, got[0].Role)
	assert.Equal(t, "hello", got[1].Content)

	// Returned slices are copies.
	got[0].Content = "mutated"
	assert.Equal(t, "hi", s.Get("U1")[0].Content)

	assert.Len(t, s.Get("U2"), 1)
}

func TestStore_BoundedHistory(t *testing.T) {
	s := NewStore(WithMaxTurns(20))
	for i := 0; i < 25; i++ {
		s.Append("U1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	got := s.Get("U1")
	require.Len(t, got, 20)
	assert.Equal(t, "m5", got[0].Content)
	assert.Equal(t, "m24", got[19].Content)
}

func TestStore_Expiry(t *testing.T) {
	clock := newClock()
	s := NewStore(WithClock(clock.Now), WithTTL(30*time.Minute))

	s.Append("U1", Turn{Role: RoleUser, Content: "hi"})

	clock.Advance(30 * time.Minute)
	assert.Len(t, s.Get("U1"), 1, "exactly TTL is still alive")

	clock.Advance(time.Second)
	assert.Empty(t, s.Get("U1"), "expired without any sweep")
	assert.Zero(t, s.Len())
}

func TestStore_AppendAfterExpiryStartsFresh(t *testing.T) {
	clock := newClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("U1", Turn{Role: RoleUser, Content: "old"})
	clock.Advance(31 * time.Minute)
	s.Append("U1", Turn{Role: RoleUser, Content: "new"})

	got := s.Get("U1")
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
}

func TestStore_ActivityRefreshes(t *testing.T) {
	clock := newClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("U1", Turn{Role: RoleUser, Content: "a"})
	clock.Advance(20 * time.Minute)
	s.Append("U1", Turn{Role: RoleAssistant, Content: "b"})
	clock.Advance(20 * time.Minute)

	assert.Len(t, s.Get("U1"), 2)
}

func TestStore_Sweep(t *testing.T) {
	clock := newClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("old", Turn{Role: RoleUser, Content: "a"})
	clock.Advance(25 * time.Minute)
	s.Append("fresh", Turn{Role: RoleUser, Content: "b"})
	clock.Advance(10 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Get("fresh"), 1)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Append("U1", Turn{Role: RoleUser, Content: "a"})
	s.Clear("U1")
	s.Clear("U1")
	assert.Empty(t, s.Get("U1"))
}

func TestStore_StartStop(t *testing.T) {
	clock := newClock()
	s := NewStore(WithClock(clock.Now))
	s.Append("U1", Turn{Role: RoleUser, Content: "a"})
	clock.Advance(time.Hour)

	s.Start(5 * time.Millisecond)
	s.Start(5 * time.Millisecond)
	defer s.Stop()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(WithMaxTurns(50))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Append("U1", Turn{Role: RoleUser, Content: "x"})
				_ = s.Get("U1")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Get("U1"), 50)
}

package db

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/go-feed-cache/internal/cache/db/model"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

func entry(key string, v int, ttl time.Duration) *model.Entry[int] {
	return model.NewEntry(key, v, epoch, ttl)
}

// TestMap_Get_HitMissExpired covers the three lookup outcomes.
func TestMap_Get_HitMissExpired(t *testing.T) {
	m := NewMap[int](10)
	m.Set(entry("a", 1, time.Minute))

	e, res := m.Get("a", epoch)
	require.Equal(t, Hit, res)
	require.Equal(t, 1, e.Value())

	_, res = m.Get("b", epoch)
	require.Equal(t, Miss, res)

	_, res = m.Get("a", epoch.Add(time.Minute))
	require.Equal(t, Expired, res)
	require.Equal(t, 0, m.Len(), "expired entry must be removed on read")

	_, res = m.Get("a", epoch)
	require.Equal(t, Miss, res)
}

// TestMap_Set_EvictsOldestInserted evicts in insertion order once full.
func TestMap_Set_EvictsOldestInserted(t *testing.T) {
	m := NewMap[int](3)
	for i, k := range []string{"k1", "k2", "k3"} {
		require.Nil(t, m.Set(entry(k, i, time.Hour)))
	}

	// reads do not affect order
	_, res := m.Get("k1", epoch)
	require.Equal(t, Hit, res)

	victim := m.Set(entry("k4", 4, time.Hour))
	require.NotNil(t, victim)
	require.Equal(t, "k1", victim.Key())
	require.Equal(t, 3, m.Len())

	_, res = m.Get("k1", epoch)
	require.Equal(t, Miss, res)
	for _, k := range []string{"k2", "k3", "k4"} {
		_, res = m.Get(k, epoch)
		require.Equal(t, Hit, res, k)
	}
}

// TestMap_Set_OverwriteKeepsPosition neither evicts nor moves an existing key.
func TestMap_Set_OverwriteKeepsPosition(t *testing.T) {
	m := NewMap[int](2)
	m.Set(entry("a", 1, time.Hour))
	m.Set(entry("b", 2, time.Hour))

	require.Nil(t, m.Set(entry("a", 10, time.Hour)))
	require.Equal(t, 2, m.Len())

	victim := m.Set(entry("c", 3, time.Hour))
	require.Equal(t, "a", victim.Key(), "overwritten key keeps its original insertion slot")
}

// TestMap_Unbounded never evicts with a non-positive max size.
func TestMap_Unbounded(t *testing.T) {
	m := NewMap[int](0)
	for i := 0; i < 100; i++ {
		require.Nil(t, m.Set(entry(strings.Repeat("k", i+1), i, time.Hour)))
	}
	require.Equal(t, 100, m.Len())
}

// TestMap_EvictOldest_EmptyIsNoop does nothing on an empty map.
func TestMap_EvictOldest_EmptyIsNoop(t *testing.T) {
	m := NewMap[int](1)
	m.Lock()
	require.Nil(t, m.evictOldestUnlocked())
	m.Unlock()
}

// TestMap_RemoveIf_OnlyWhenConditionHolds protects a concurrently replaced entry.
func TestMap_RemoveIf_OnlyWhenConditionHolds(t *testing.T) {
	m := NewMap[int](10)
	old := entry("a", 1, time.Hour)
	m.Set(old)
	fresh := entry("a", 2, time.Hour)
	m.Set(fresh)

	require.False(t, m.RemoveIf("a", func(e *model.Entry[int]) bool { return e == old }))
	require.Equal(t, 1, m.Len())
	require.True(t, m.RemoveIf("a", func(e *model.Entry[int]) bool { return e == fresh }))
	require.Equal(t, 0, m.Len())
	require.False(t, m.RemoveIf("a", func(*model.Entry[int]) bool { return true }))
}

// TestMap_RemoveKeys_ByPrefix removes only matching keys.
func TestMap_RemoveKeys_ByPrefix(t *testing.T) {
	m := NewMap[int](10)
	m.Set(entry("x:1", 1, time.Hour))
	m.Set(entry("x:2", 2, time.Hour))
	m.Set(entry("y:1", 3, time.Hour))

	require.Equal(t, 2, m.CountKeys(func(k string) bool { return strings.HasPrefix(k, "x:") }))
	removed := m.RemoveKeys(func(k string) bool { return strings.HasPrefix(k, "x:") })
	require.Equal(t, 2, removed)
	require.Equal(t, 1, m.Len())
}

// TestMap_Update_LiveAndExpired mutates live values and drops expired ones.
func TestMap_Update_LiveAndExpired(t *testing.T) {
	m := NewMap[int](10)
	m.Set(entry("c", 5, time.Minute))

	e, res := m.Update("c", epoch, func(v int) int { return v + 1 })
	require.Equal(t, Hit, res)
	require.Equal(t, 6, e.Value())
	require.Equal(t, epoch.Add(time.Minute), e.ExpiresAt())

	called := false
	_, res = m.Update("c", epoch.Add(time.Minute), func(v int) int { called = true; return v })
	require.Equal(t, Expired, res)
	require.False(t, called)
	require.Equal(t, 0, m.Len())

	_, res = m.Update("missing", epoch, func(v int) int { return v })
	require.Equal(t, Miss, res)
}

// TestMap_GetMany_OmitsMissesAndExpired returns only live entries.
func TestMap_GetMany_OmitsMissesAndExpired(t *testing.T) {
	m := NewMap[int](10)
	m.Set(entry("a", 1, time.Hour))
	m.Set(entry("b", 2, time.Second))

	found, expired := m.GetMany([]string{"a", "b", "c"}, epoch.Add(time.Minute))
	require.Len(t, found, 1)
	require.Contains(t, found, "a")
	require.Equal(t, 1, expired)
	require.Equal(t, 1, m.Len())
}

// TestMap_CleanupExpired_CountAndClear sweeps expired entries only.
func TestMap_CleanupExpired_CountAndClear(t *testing.T) {
	m := NewMap[int](10)
	m.Set(entry("short", 1, time.Second))
	m.Set(entry("long", 2, time.Hour))

	total, expired := m.Count(epoch.Add(time.Minute))
	require.Equal(t, 2, total)
	require.Equal(t, 1, expired)

	require.Equal(t, 1, m.CleanupExpired(epoch.Add(time.Minute)))
	require.Equal(t, 1, m.Len())

	require.Equal(t, 1, m.Clear())
	require.Equal(t, 0, m.Len())
}

// TestMap_Concurrent keeps the size bound under parallel writers.
func TestMap_Concurrent(t *testing.T) {
	m := NewMap[int](50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := string(rune('a'+g)) + ":" + time.Duration(i).String()
				m.Set(entry(k, i, time.Hour))
				m.Get(k, epoch)
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, 50, m.Len())
}

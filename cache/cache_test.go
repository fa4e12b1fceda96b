package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_PutGet(t *testing.T) {
	m := NewManager()
	m.Put("k", []byte("data"), []string{"a.ttl"}, 0)

	entry := m.Get("k")
	require.NotNil(t, entry)
	assert.Equal(t, []byte("data"), entry.Data)
	assert.Equal(t, []string{"a.ttl"}, entry.Dependencies)

	assert.Nil(t, m.Get("missing"))
	assert.Equal(t, 1, m.Len())
}

func TestManager_TTLExpiresLazily(t *testing.T) {
	m := NewManager()
	m.Put("short", []byte("x"), nil, time.Nanosecond)
	m.Put("forever", []byte("y"), nil, 0)

	time.Sleep(2 * time.Millisecond)

	assert.Nil(t, m.Get("short"))
	assert.NotNil(t, m.Get("forever"))
	assert.Equal(t, 1, m.Len())
}

func TestManager_InvalidateByDependency(t *testing.T) {
	m := NewManager()
	m.Put("k1", []byte("1"), []string{"a.ttl", "t.tmpl"}, 0)
	m.Put("k2", []byte("2"), []string{"b.ttl", "t.tmpl"}, 0)
	m.Put("k3", []byte("3"), []string{"c.ttl"}, 0)

	removed := m.Invalidate([]string{"a.ttl"})
	assert.Equal(t, []string{"k1"}, removed)
	assert.Equal(t, 2, m.Len())

	removed = m.Invalidate([]string{"t.tmpl"})
	assert.Equal(t, []string{"k2"}, removed)

	assert.Empty(t, m.Invalidate([]string{"unknown"}))
	assert.Empty(t, m.Invalidate(nil))
	assert.NotNil(t, m.Get("k3"))
}

func TestManager_KnownDependency(t *testing.T) {
	m := NewManager()
	m.Put("k", []byte("1"), []string{"a.ttl"}, 0)

	assert.True(t, m.KnownDependency("a.ttl"))
	assert.False(t, m.KnownDependency("b.ttl"))

	m.Invalidate([]string{"a.ttl"})
	assert.False(t, m.KnownDependency("a.ttl"))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				m.Put(key, []byte("data"), []string{"dep"}, 0)
				m.Get(key)
				if j%25 == 0 {
					m.Invalidate([]string{"dep"})
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestKey_SeparatesParts(t *testing.T) {
	assert.Equal(t, Key([]byte("a"), []byte("b")), Key([]byte("a"), []byte("b")))
	assert.NotEqual(t, Key([]byte("ab")), Key([]byte("a"), []byte("b")))
	assert.NotEqual(t, Key([]byte("a"), []byte("b")), Key([]byte("ab"), []byte("")))
	assert.Len(t, Key([]byte("a")), 64)
}

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache(time.Hour, 0)

	if err := c.Set("key1", "value1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Errorf("Get returned %q, %v", val, ok)
	}

	val, ok = c.Get("nonexistent")
	if ok || val != "" {
		t.Errorf("Get of missing key returned %q, %v", val, ok)
	}
}

func TestInMemoryCache_TTL(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("Value should be available immediately after set")
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("key1"); ok {
		t.Error("Value should be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be removed, Len = %d", c.Len())
	}
}

func TestInMemoryCache_NoTTL(t *testing.T) {
	c := NewInMemoryCache(0, 0)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("key1", "value1")
	now = now.Add(24 * 365 * time.Hour)

	if _, ok := c.Get("key1"); !ok {
		t.Error("Entries should never expire without a TTL")
	}
}

func TestInMemoryCache_EvictsOldest(t *testing.T) {
	c := NewInMemoryCache(0, 2)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	now = now.Add(time.Second)
	c.Set("b", "2")
	now = now.Add(time.Second)
	c.Set("c", "3")

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry should be kept")
	}

	c.Set("b", "updated")
	if c.Len() != 2 {
		t.Errorf("overwriting should not evict, Len = %d", c.Len())
	}
}

func TestInMemoryCache_DeleteClear(t *testing.T) {
	c := NewInMemoryCache(0, 0)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key should be gone")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestInMemoryCache_Entries(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("old", "x")
	now = now.Add(2 * time.Minute)
	c.Set("new", "y")

	entries, err := c.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries["new"] != "y" {
		t.Errorf("Entries = %v", entries)
	}
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache(time.Hour, 50)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", i%20)
			c.Set(key, "value")
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d exceeds bound", c.Len())
	}
}

func TestNew(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*InMemoryCache); !ok {
		t.Errorf("default backend should be memory, got %T", c)
	}

	if _, err := New(Config{Backend: "memcached"}); err == nil {
		t.Error("unknown backend should fail")
	}
	if _, err := New(Config{Backend: BackendRedis, RedisURL: "::not a url"}); err == nil {
		t.Error("invalid redis URL should fail")
	}
}

package server

import (
	"bytes"
	"testing"
	"time"
)

// TestStoreCacheResolution tests named cache lookup and the default cache
func TestStoreCacheResolution(t *testing.T) {
	store := NewStore("sessions", "tokens")

	tests := []struct {
		name    string
		defined bool
	}{
		{"", true}, // empty selects the default cache
		{DefaultCacheName, true},
		{"sessions", true},
		{"tokens", true},
		{"missing", false},
	}

	for _, tt := range tests {
		if _, ok := store.Cache(tt.name); ok != tt.defined {
			t.Errorf("Cache(%q): defined=%t, expected %t", tt.name, ok, tt.defined)
		}
	}

	// empty name and the default name resolve to the same cache
	a, _ := store.Cache("")
	b, _ := store.Cache(DefaultCacheName)
	if a != b {
		t.Error("empty cache name did not resolve to the default cache")
	}
}

// TestCacheBasicOperations tests put/get/remove/contains semantics
func TestCacheBasicOperations(t *testing.T) {
	cache := newCache("test")
	key := []byte("k")

	if _, found := cache.Get(key); found {
		t.Error("get on an empty cache reported a hit")
	}
	if cache.Contains(key) {
		t.Error("contains on an empty cache reported a hit")
	}

	if prev, had := cache.Put(key, []byte("v1"), 0, 0); had {
		t.Errorf("first put reported previous value %q", prev)
	}
	if value, found := cache.Get(key); !found || !bytes.Equal(value, []byte("v1")) {
		t.Errorf("get after put: found=%t value=%q", found, value)
	}
	if !cache.Contains(key) {
		t.Error("contains after put reported a miss")
	}

	if prev, had := cache.Put(key, []byte("v2"), 0, 0); !had || !bytes.Equal(prev, []byte("v1")) {
		t.Errorf("overwrite: had=%t prev=%q", had, prev)
	}

	if prev, had := cache.Remove(key); !had || !bytes.Equal(prev, []byte("v2")) {
		t.Errorf("remove: had=%t prev=%q", had, prev)
	}
	if _, had := cache.Remove(key); had {
		t.Error("second remove reported a previous value")
	}
}

// TestCachePutIfAbsent tests the conditional store
func TestCachePutIfAbsent(t *testing.T) {
	cache := newCache("test")
	key := []byte("k")

	if prev, applied := cache.PutIfAbsent(key, []byte("v1"), 0, 0); !applied || prev != nil {
		t.Errorf("first putIfAbsent: applied=%t prev=%q", applied, prev)
	}
	if prev, applied := cache.PutIfAbsent(key, []byte("v2"), 0, 0); applied || !bytes.Equal(prev, []byte("v1")) {
		t.Errorf("second putIfAbsent: applied=%t prev=%q", applied, prev)
	}
	if value, _ := cache.Get(key); !bytes.Equal(value, []byte("v1")) {
		t.Errorf("putIfAbsent overwrote the value: %q", value)
	}
}

// TestCacheLifespanExpiry tests that entries die after their lifespan
func TestCacheLifespanExpiry(t *testing.T) {
	cache := newCache("test")
	key := []byte("k")

	cache.Put(key, []byte("v"), 30*time.Millisecond, 0)
	if _, found := cache.Get(key); !found {
		t.Fatal("entry expired immediately")
	}

	time.Sleep(60 * time.Millisecond)

	if _, found := cache.Get(key); found {
		t.Error("entry survived its lifespan")
	}
	if cache.Contains(key) {
		t.Error("contains reported an expired entry")
	}

	// an expired entry is invisible to conditional stores
	if _, applied := cache.PutIfAbsent(key, []byte("v2"), 0, 0); !applied {
		t.Error("putIfAbsent treated an expired entry as live")
	}
}

// TestCacheMaxIdleExpiry tests that entries die when idle, and that reads
// keep them alive
func TestCacheMaxIdleExpiry(t *testing.T) {
	cache := newCache("test")
	key := []byte("k")

	cache.Put(key, []byte("v"), 0, 50*time.Millisecond)

	// touch the entry before the idle limit twice; it must survive past
	// the original deadline
	for i := 0; i < 2; i++ {
		time.Sleep(25 * time.Millisecond)
		if _, found := cache.Get(key); !found {
			t.Fatal("entry expired while being accessed")
		}
	}

	time.Sleep(100 * time.Millisecond)
	if _, found := cache.Get(key); found {
		t.Error("entry survived its idle limit")
	}
}

package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// "a" was just used, so inserting "c" must evict "b".
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a retained")
	}
}

func TestLRUTTL(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expiry")
	}
	if n := c.Size(); n != 0 {
		t.Fatalf("size after expired get = %d, want 0", n)
	}
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("old1", 1)
	c.Set("old2", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired removed %d, want 2", n)
	}
	if n := c.Size(); n != 1 {
		t.Fatalf("size after sweep = %d, want 1", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("fresh entry swept")
	}
}

func TestLRUDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("user1:day", 1)
	c.Set("user1:month", 2)
	c.Set("user2:day", 3)

	if n := c.DeletePrefix("user1:"); n != 2 {
		t.Fatalf("DeletePrefix removed %d, want 2", n)
	}
	if _, ok := c.Get("user2:day"); !ok {
		t.Fatalf("unrelated key dropped")
	}
}

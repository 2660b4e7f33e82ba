package cache

import (
	"sync"
	"testing"
	"time"
)

func TestCache_Basic(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("d"); ok {
		t.Error("Get(d) should return false for missing key")
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Access 'a' to make it recently used
	c.Get("a")

	// Add 'c', should evict 'b' (least recently used)
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("'b' should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if c.Stats().Evicts != 1 {
		t.Errorf("Evicts = %d; want 1", c.Stats().Evicts)
	}
}

func TestCache_Update(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("a", 10)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should return false after delete")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", c.Len())
	}
}

func TestCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := New[string, int](10, WithTTL(time.Minute), WithClock(clock))

	c.Set("a", 1)
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) before TTL = miss")
	}

	c.Set("b", 2)
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) at TTL = hit; want expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Get(b) before its TTL = miss")
	}

	s := c.Stats()
	if s.Expires != 1 {
		t.Errorf("Expires = %d; want 1", s.Expires)
	}
	if s.Size != 1 {
		t.Errorf("Size = %d; want 1", s.Size)
	}
}

func TestCache_TTLRefreshedOnSet(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](10, WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	c.Set("a", 1)
	now = now.Add(50 * time.Second)
	c.Set("a", 2)
	now = now.Add(50 * time.Second)

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
}

func TestCache_Purge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](10, WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Minute)
	c.Set("c", 3)

	if n := c.Purge(); n != 2 {
		t.Errorf("Purge() = %d; want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_NoTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, int](10, WithTTL(0), WithClock(func() time.Time { return now }))

	c.Set("a", 1)
	now = now.Add(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Error("entry expired without TTL")
	}
	if n := c.Purge(); n != 0 {
		t.Errorf("Purge() = %d; want 0", n)
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](10)

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Sets != 1 {
		t.Errorf("Stats() = %+v; want 2 hits, 1 miss, 1 set", s)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Errorf("HitRate = %f; want ~0.667", s.HitRate)
	}
	if s.Capacity != 10 {
		t.Errorf("Capacity = %d; want 10", s.Capacity)
	}
}

func TestCache_ZeroCapacity(t *testing.T) {
	c := New[string, int](0)
	if c.Stats().Capacity != 100 {
		t.Errorf("Capacity = %d; want default 100", c.Stats().Capacity)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](100, WithTTL(time.Hour))
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				key := (id*1000 + j) % 150
				c.Set(key, j)
				c.Get(key)
				if j%100 == 0 {
					c.Delete(key)
					c.Purge()
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d; exceeds capacity 100", c.Len())
	}
}

func TestKey(t *testing.T) {
	a := Key("MSH|...", "2.16.840.1")
	if a != Key("MSH|...", "2.16.840.1") {
		t.Error("Key() not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len(Key()) = %d; want 64", len(a))
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key() ambiguous across part boundaries")
	}
	if Key("a") == Key("a", "") {
		t.Error("Key() ignores empty trailing part")
	}
}

func BenchmarkCache_Get(b *testing.B) {
	c := New[string, int](1000)
	c.Set("key", 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key")
	}
}

func BenchmarkKey(b *testing.B) {
	msg := "MSH|^~\\&|EHR|FAC|IIS|IIS|20200101||VXU^V04^VXU_V04|1|P|2.5.1"
	for i := 0; i < b.N; i++ {
		Key(msg, "2.16.840.1.113883.3.72.2.3.99002")
	}
}

package matcher

import (
	"sync"
	"testing"
)

func TestCache(t *testing.T) {
	c, err := NewCache(2)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	a, err := c.Pattern("/users/_id")
	if err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}
	b, err := c.Pattern("/users/_id")
	if err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}
	if a != b {
		t.Error("expected cached pattern to be reused")
	}

	if _, err := c.Pattern("/___a/b"); err == nil {
		t.Error("expected error for invalid key")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (invalid keys are not cached)", c.Len())
	}

	_, _ = c.Pattern("/a")
	_, _ = c.Pattern("/b")
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after eviction", c.Len())
	}
}

func TestCache_DefaultSize(t *testing.T) {
	c, err := NewCache(0)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	if _, err := c.Pattern("/"); err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c, err := NewCache(8)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.Pattern("/docs/___slug")
			if err != nil {
				t.Errorf("Pattern failed: %v", err)
				return
			}
			if _, ok, _ := p.Match("/docs/a/b"); !ok {
				t.Error("expected match")
			}
		}()
	}
	wg.Wait()
}

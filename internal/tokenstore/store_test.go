package tokenstore

import (
	"strings"
	"sync"
	"testing"
)

func TestSetReplacesWholesale(t *testing.T) {
	s := New()

	s.Set("first-token", map[string]any{"source": "login", "expires_in": 3600})
	s.Set("second-token", map[string]any{"source": "refresh"})

	token, ok := s.Get()
	if !ok {
		t.Fatal("expected token to be present")
	}
	if token != "second-token" {
		t.Errorf("Get() = %q, want %q", token, "second-token")
	}

	meta := s.Metadata()
	if len(meta) != 1 {
		t.Errorf("metadata = %v, want only the second set's keys", meta)
	}
	if meta["source"] != "refresh" {
		t.Errorf("metadata[source] = %v, want %q", meta["source"], "refresh")
	}
	if _, merged := meta["expires_in"]; merged {
		t.Error("metadata from the first Set leaked into the second")
	}
}

func TestMetadataIsACopy(t *testing.T) {
	s := New()
	original := map[string]any{"issued_at": "2026-01-01T00:00:00Z"}
	s.Set("token", original)

	// Mutating the caller's map must not affect the store.
	original["issued_at"] = "mutated"
	if got := s.Metadata()["issued_at"]; got != "2026-01-01T00:00:00Z" {
		t.Errorf("store observed caller mutation: %v", got)
	}

	// Mutating the returned copy must not affect the store either.
	copied := s.Metadata()
	copied["injected"] = true
	if _, ok := s.Metadata()["injected"]; ok {
		t.Error("mutation of returned metadata copy reached the store")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := New()
	s.Set("token", nil)

	if !s.Clear() {
		t.Error("first Clear() = false, want true")
	}
	if s.Has() {
		t.Error("Has() = true after Clear")
	}
	if s.Clear() {
		t.Error("second Clear() = true, want false")
	}
	if s.Has() {
		t.Error("Has() = true after second Clear")
	}
}

func TestStatus(t *testing.T) {
	t.Run("present token is previewed and truncated", func(t *testing.T) {
		s := New()
		token := strings.Repeat("a", 10) + strings.Repeat("b", 20) // length 30
		s.Set(token, map[string]any{"source": "login"})

		status := s.Status()
		if !status.Available {
			t.Error("Available = false, want true")
		}
		want := token[:20] + "..."
		if status.Preview != want {
			t.Errorf("Preview = %q, want %q", status.Preview, want)
		}
		if status.Length != 30 {
			t.Errorf("Length = %d, want 30", status.Length)
		}
		if status.Metadata["source"] != "login" {
			t.Errorf("Metadata = %v, want source=login", status.Metadata)
		}
		if status.Recommendation != recommendationAvailable {
			t.Errorf("Recommendation = %q, want %q", status.Recommendation, recommendationAvailable)
		}
	})

	t.Run("empty store has no preview and zero length", func(t *testing.T) {
		status := New().Status()
		if status.Available {
			t.Error("Available = true, want false")
		}
		if status.Preview != "" {
			t.Errorf("Preview = %q, want empty", status.Preview)
		}
		if status.Length != 0 {
			t.Errorf("Length = %d, want 0", status.Length)
		}
		if status.Recommendation != recommendationGenerate {
			t.Errorf("Recommendation = %q, want %q", status.Recommendation, recommendationGenerate)
		}
	})
}

func TestConcurrentAccess(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				s.Set("token", map[string]any{"worker": i})
			} else {
				s.Clear()
			}
			_, _ = s.Get()
			_ = s.Metadata()
			_ = s.Status()
		}()
	}
	wg.Wait()

	// Last-writer-wins: whichever operation landed last, the store must be
	// internally consistent.
	token, ok := s.Get()
	if ok && token != "token" {
		t.Errorf("Get() = %q, want %q", token, "token")
	}
	if !ok && token != "" {
		t.Errorf("Get() returned %q for an empty store", token)
	}
}

package tokenstore

import (
	"maps"
	"sync"
)

// previewLength is the number of leading token characters exposed by Status.
const previewLength = 20

// Recommendation strings returned by Status.
const (
	recommendationAvailable = "Token is available"
	recommendationGenerate  = "Call generate_token to authenticate"
)

// Store is the single authoritative holder of the current gateway credential.
// The zero value is not ready for use; construct with New.
type Store struct {
	mu       sync.RWMutex
	token    string
	present  bool
	metadata map[string]any
}

// Status is a diagnostic snapshot of the store.
type Status struct {
	Available      bool           `json:"token_available"`
	Preview        string         `json:"token_preview,omitempty"`
	Length         int            `json:"token_length"`
	Metadata       map[string]any `json:"metadata"`
	Recommendation string         `json:"recommendation"`
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Set stores a token together with optional metadata (expiry hints, source),
// replacing any previous token and metadata wholesale. The metadata map is
// copied; later mutation by the caller does not affect the store.
func (s *Store) Set(token string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.present = true
	s.metadata = copyMetadata(metadata)
}

// Get returns the stored token and whether one is present.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.present
}

// Metadata returns a copy of the current token metadata. The copy is never
// nil and callers cannot observe later mutation of the store through it.
func (s *Store) Metadata() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyMetadata(s.metadata)
}

// Has reports whether a token is currently stored.
func (s *Store) Has() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.present
}

// Clear removes the token and metadata. It reports whether a token was
// actually present; clearing an empty store is not an error.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := s.present
	s.token = ""
	s.present = false
	s.metadata = nil
	return had
}

// Status returns a diagnostic snapshot: presence, a truncated preview of the
// token, its length, a metadata copy, and a human-readable recommendation.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Available:      s.present,
		Metadata:       copyMetadata(s.metadata),
		Recommendation: recommendationGenerate,
	}
	if s.present {
		status.Preview = preview(s.token)
		status.Length = len(s.token)
		status.Recommendation = recommendationAvailable
	}
	return status
}

func preview(token string) string {
	if len(token) > previewLength {
		return token[:previewLength] + "..."
	}
	return token + "..."
}

func copyMetadata(metadata map[string]any) map[string]any {
	copied := make(map[string]any, len(metadata))
	maps.Copy(copied, metadata)
	return copied
}

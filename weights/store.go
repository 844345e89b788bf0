// SPDX-License-Identifier: MIT
// File: store.go
// Role: Parameter catalog lifecycle & queries.
//
// Determinism:
//   - Names() returns names sorted lexicographically ascending.
//
// Concurrency:
//   - Catalog and trainable flags protected by mu.

package weights

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/katalvlaran/lorainit/matrix"
)

// Sentinel errors for store operations.
var (
	// ErrEmptyName indicates that a parameter was registered with an empty name.
	ErrEmptyName = errors.New("weights: parameter name is empty")

	// ErrNotFound indicates an operation referenced a non-existent parameter.
	ErrNotFound = errors.New("weights: parameter not found")

	// ErrDuplicate indicates a second registration under an existing name.
	ErrDuplicate = errors.New("weights: parameter already registered")

	// ErrNilMatrix indicates a nil matrix was passed to Register.
	ErrNilMatrix = errors.New("weights: nil matrix")
)

// Params is the read side of a weight store.
// Lookup returns the live matrix; writes through it are visible to every holder.
type Params interface {
	Lookup(name string) (*matrix.Dense, bool)
	Names() []string
}

// Store is a named, shape-stable collection of weight matrices.
//
// The zero value is not usable; construct with NewStore.
type Store struct {
	mu     sync.RWMutex
	params map[string]*matrix.Dense
	frozen map[string]struct{} // names excluded from gradient computation
}

var _ Params = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		params: make(map[string]*matrix.Dense),
		frozen: make(map[string]struct{}),
	}
}

// Register inserts m under name. The store takes ownership of m: later
// in-place updates to the returned pointer are the store's contents.
//
// Errors:
//   - ErrEmptyName, ErrNilMatrix, ErrDuplicate.
//
// Complexity:
//   - Time O(1) amortized, Space O(1).
func (s *Store) Register(name string, m *matrix.Dense) error {
	if name == "" {
		return ErrEmptyName
	}
	if m == nil {
		return fmt.Errorf("%q: %w", name, ErrNilMatrix)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.params[name]; exists {
		return fmt.Errorf("%q: %w", name, ErrDuplicate)
	}
	s.params[name] = m

	return nil
}

// Lookup returns the live matrix registered under name.
func (s *Store) Lookup(name string) (*matrix.Dense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.params[name]

	return m, ok
}

// Names returns all parameter names in ascending order.
//
// Complexity:
//   - Time O(P log P), Space O(P).
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.params))
	var name string
	for name = range s.params {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Len returns the number of registered parameters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.params)
}

// SetTrainable marks name as trainable (true) or frozen (false).
// Parameters are trainable by default.
func (s *Store) SetTrainable(name string, trainable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.params[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if trainable {
		delete(s.frozen, name)
	} else {
		s.frozen[name] = struct{}{}
	}

	return nil
}

// Trainable reports whether name is registered and not frozen.
func (s *Store) Trainable(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.params[name]; !ok {
		return false
	}
	_, frozen := s.frozen[name]

	return !frozen
}

// Snapshot returns deep copies of every parameter, keyed by name.
// The returned matrices share nothing with the store.
//
// Complexity:
//   - Time O(Σ r*c), Space O(Σ r*c).
func (s *Store) Snapshot() map[string]*matrix.Dense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*matrix.Dense, len(s.params))
	for name, m := range s.params {
		out[name] = m.CloneDense()
	}

	return out
}

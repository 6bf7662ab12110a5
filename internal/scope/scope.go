// Package scope implements the key/value context threaded through a workflow
// run. Values can be bound lazily: a producer attached with SetCall runs the
// first time its key is read and its result is cached from then on.
//
// A Scope belongs to one running workflow and is not safe for concurrent use.
package scope

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/stagegrid/internal/pattern"
)

// ErrMissing is matched by errors returned for absent keys.
var ErrMissing = errors.New("scope key not found")

// Producer computes a deferred value.
type Producer func() (any, error)

// KeyError names the key a lookup failed on.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("scope key %q: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Scope maps string keys to values or pending producers.
type Scope struct {
	values  map[string]any
	pending map[string]Producer
}

// New returns a scope holding a shallow copy of initial.
func New(initial map[string]any) *Scope {
	s := &Scope{
		values:  make(map[string]any, len(initial)),
		pending: make(map[string]Producer),
	}
	maps.Copy(s.values, initial)
	return s
}

// Set stores a materialized value, replacing any pending producer.
func (s *Scope) Set(key string, value any) {
	delete(s.pending, key)
	s.values[key] = value
}

// SetCall binds a producer to key without running it. An existing value
// under key is dropped.
func (s *Scope) SetCall(key string, fn Producer) {
	delete(s.values, key)
	s.pending[key] = fn
}

// Has reports whether key holds a value or a pending producer.
func (s *Scope) Has(key string) bool {
	if _, ok := s.values[key]; ok {
		return true
	}
	_, ok := s.pending[key]
	return ok
}

// Pending reports whether key is bound to a producer that has not run yet.
func (s *Scope) Pending(key string) bool {
	_, ok := s.pending[key]
	return ok
}

// Get returns the value under key, running its producer first if one is
// pending. A producer runs at most once: if it fails, it is discarded, the
// key becomes absent and the producer's error is returned.
func (s *Scope) Get(key string) (any, error) {
	if fn, ok := s.pending[key]; ok {
		delete(s.pending, key)
		v, err := fn()
		if err != nil {
			return nil, &KeyError{Key: key, Err: err}
		}
		s.values[key] = v
		return v, nil
	}
	v, ok := s.values[key]
	if !ok {
		return nil, &KeyError{Key: key, Err: ErrMissing}
	}
	return v, nil
}

// GetOr is like Get but returns def when key is absent.
func (s *Scope) GetOr(key string, def any) (any, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Get(key)
}

// Delete removes key and any pending producer.
func (s *Scope) Delete(key string) {
	delete(s.values, key)
	delete(s.pending, key)
}

// Keys returns every present key, pending ones included, sorted.
func (s *Scope) Keys() []string {
	keys := slices.Collect(maps.Keys(s.values))
	for k := range s.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Snapshot returns the materialized values without resolving producers.
func (s *Scope) Snapshot() map[string]any {
	return maps.Clone(s.values)
}

// Clone returns an independent scope. Values are deep-copied and pending
// producers are shared, so each copy may resolve them separately.
func (s *Scope) Clone() *Scope {
	c := &Scope{
		values:  make(map[string]any, len(s.values)),
		pending: maps.Clone(s.pending),
	}
	for k, v := range s.values {
		c.values[k] = pattern.Clone(v)
	}
	return c
}

// As reads key and asserts its type.
func As[T any](s *Scope, key string) (T, error) {
	var zero T
	v, err := s.Get(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &KeyError{Key: key, Err: fmt.Errorf("holds %T, want %T", v, zero)}
	}
	return t, nil
}

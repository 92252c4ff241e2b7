// Package derive provides recompute-on-read memoization for values that
// are pure functions of configuration.
package derive

import "sync"

// Memo caches the last value computed for a fingerprint of its inputs.
// Get recomputes only when the fingerprint differs from the cached one, so
// callers never invalidate by hand: changing an input changes the
// fingerprint.
type Memo[V any] struct {
	mu          sync.Mutex
	fingerprint string
	valid       bool
	value       V
	computes    int
}

// Get returns the cached value for fingerprint, computing it if needed.
// A failed compute is not cached.
func (m *Memo[V]) Get(fingerprint string, compute func() (V, error)) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.fingerprint == fingerprint {
		return m.value, nil
	}

	v, err := compute()
	m.computes++
	if err != nil {
		var zero V
		return zero, err
	}
	m.fingerprint = fingerprint
	m.value = v
	m.valid = true
	return v, nil
}

// Computes reports how many times compute ran.
func (m *Memo[V]) Computes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computes
}

// Reset forgets the cached value.
func (m *Memo[V]) Reset() {
	m.mu.Lock()
	m.valid = false
	m.fingerprint = ""
	var zero V
	m.value = zero
	m.mu.Unlock()
}

// Fingerprint joins string lists into a stable key. Lists are separated so
// that ["a","b"],["c"] and ["a"],["b","c"] differ.
func Fingerprint(parts ...[]string) string {
	n := 0
	for _, p := range parts {
		for _, s := range p {
			n += len(s) + 1
		}
		n++
	}
	b := make([]byte, 0, n)
	for _, p := range parts {
		for _, s := range p {
			b = append(b, s...)
			b = append(b, 0x1f)
		}
		b = append(b, 0x1e)
	}
	return string(b)
}

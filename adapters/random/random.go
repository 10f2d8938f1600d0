// Package random provides Random implementations.
package random

import (
	"crypto/rand"
	"sync"

	"github.com/artpar/coursesync/ports"
)

// alphabet keeps generated strings valid inside a slug.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Real uses crypto/rand for secure randomness.
type Real struct{}

// Bytes generates n cryptographically secure random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// String generates a random lowercase alphanumeric string of n characters.
func (r Real) String(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return encode(b), nil
}

func encode(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = alphabet[int(c)%len(alphabet)]
	}
	return string(out)
}

var _ ports.Random = Real{}

// Fake provides deterministic randomness for testing.
type Fake struct {
	mu      sync.Mutex
	counter int
	strings []string
	err     error
}

// NewFake creates a fake random source.
func NewFake() *Fake {
	return &Fake{}
}

// WithStrings sets preset values returned by String, in order.
func (f *Fake) WithStrings(values ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings = values
	return f
}

// WithError makes every call fail with err.
func (f *Fake) WithError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// Bytes returns deterministic bytes based on a counter.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.counter++
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte((f.counter + i) % 256)
	}
	return b, nil
}

// String returns the next preset string, or a deterministic one.
func (f *Fake) String(n int) (string, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return "", f.err
	}
	if len(f.strings) > 0 {
		s := f.strings[0]
		f.strings = f.strings[1:]
		f.mu.Unlock()
		return s, nil
	}
	f.mu.Unlock()

	b, err := f.Bytes(n)
	if err != nil {
		return "", err
	}
	return encode(b), nil
}

// Reset resets the fake to initial state.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter = 0
	f.strings = nil
	f.err = nil
}

var _ ports.Random = (*Fake)(nil)

// Package cache memoizes compilation: identical source text compiled
// with identical embedder-declared global names always produces an
// identical ir.Program, so a runner spinning up one VM per symbol from
// the same script can skip recompiling it per symbol. A hash-keyed LRU
// sits in front of a pure compile step.
package cache

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"barlang/internal/ir"
)

// Key identifies one compilation: the exact source digest plus the
// embedder-declared global names, since WithGlobals shifts slot numbers
// and two otherwise-identical sources compiled against different global
// sets are not interchangeable.
type Key [blake2b.Size256]byte

// NewKey digests source and globals into a cache Key. globals order
// matters (it determines slot assignment) and is folded into the digest
// as given, not sorted.
func NewKey(source string, globals []string) Key {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(globals, "\x00")))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Programs is an LRU cache of compiled programs keyed by Key.
type Programs struct {
	mu    sync.Mutex
	inner *lru.Cache[Key, *ir.Program]
}

// NewPrograms builds a Programs cache holding at most size entries.
func NewPrograms(size int) (*Programs, error) {
	inner, err := lru.New[Key, *ir.Program](size)
	if err != nil {
		return nil, err
	}
	return &Programs{inner: inner}, nil
}

// GetOrCompile returns the cached *ir.Program for key, calling compile
// and storing its result on a miss. compile is only ever invoked while
// holding the cache's lock, so two concurrent GetOrCompile calls for the
// same uncached key never compile the same source twice.
func (p *Programs) GetOrCompile(key Key, compile func() (*ir.Program, error)) (*ir.Program, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prog, ok := p.inner.Get(key); ok {
		return prog, nil
	}
	prog, err := compile()
	if err != nil {
		return nil, err
	}
	p.inner.Add(key, prog)
	return prog, nil
}

// Len reports the number of cached programs.
func (p *Programs) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inner.Len()
}

// Purge clears every cached program.
func (p *Programs) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inner.Purge()
}

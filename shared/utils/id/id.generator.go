package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator produces lexicographically sortable ids. Ids generated within
// the same millisecond stay ordered thanks to monotonic entropy.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Generate returns a new id, optionally prefixed ("ltx_01H...").
func (g *ULIDGenerator) Generate(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	if prefix == "" {
		return id.String()
	}
	return prefix + "_" + id.String()
}

var defaultGenerator = NewULIDGenerator()

func GenerateULID(prefix string) string {
	return defaultGenerator.Generate(prefix)
}

// Package idgen generates time-sortable, globally unique system
// identifiers: a fixed prefix (ent_, asrt_, pv_, ce_, ir_, src_) followed by
// a 32-character hex payload, fitting the fixed 64-byte identifier column
// every vertex type is stored under.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"
)

const (
	PrefixEntity          = "ent_"
	PrefixAssertionRecord = "asrt_"
	PrefixPropertyValue   = "pv_"
	PrefixChangeEvent     = "ce_"
	PrefixImportRun       = "ir_"
	PrefixSource          = "src_"
)

// Generator produces prefixed, time-sortable IDs against a clock, so tests
// can fix time without faking crypto/rand.
type Generator struct {
	clock clockwork.Clock
}

// NewGenerator builds a Generator against the given clock. Pass
// clockwork.NewRealClock() in production and a clockwork.FakeClock in
// tests that assert on ID ordering.
func NewGenerator(clock clockwork.Clock) *Generator {
	return &Generator{clock: clock}
}

// Generate returns a new ID: prefix + 32 hex chars. The leading bytes of
// the payload are derived from xid's timestamp-ordered ID (12 bytes, using
// the generator's clock rather than wall time) so lexical order tracks
// creation order; the remaining 4 bytes are cryptographically random to
// reach the 16-byte (32 hex char) payload width the identifier column
// requires.
func (g *Generator) Generate(prefix string) string {
	id := xid.NewWithTime(g.clock.Now())

	var tail [4]byte
	if _, err := rand.Read(tail[:]); err != nil {
		// crypto/rand failing is not something callers can meaningfully
		// recover from; fall back to the zero tail rather than panicking,
		// which keeps ID generation a total function.
		tail = [4]byte{}
	}

	payload := append(id.Bytes(), tail[:]...)
	return fmt.Sprintf("%s%s", prefix, hex.EncodeToString(payload))
}

// GenerateEntity, GenerateAssertion, etc. are thin convenience wrappers
// over Generate for the six vertex-type prefixes.
func (g *Generator) GenerateEntity() string    { return g.Generate(PrefixEntity) }
func (g *Generator) GenerateAssertion() string { return g.Generate(PrefixAssertionRecord) }
func (g *Generator) GeneratePropertyValue() string {
	return g.Generate(PrefixPropertyValue)
}
func (g *Generator) GenerateChangeEvent() string { return g.Generate(PrefixChangeEvent) }
func (g *Generator) GenerateImportRun() string    { return g.Generate(PrefixImportRun) }
func (g *Generator) GenerateSource() string       { return g.Generate(PrefixSource) }

package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestGenerate_PrefixAndLength(t *testing.T) {
	t.Parallel()

	g := NewGenerator(clockwork.NewRealClock())
	id := g.GenerateEntity()
	require.True(t, strings.HasPrefix(id, PrefixEntity))
	require.Len(t, id, len(PrefixEntity)+32)
}

func TestGenerate_Unique(t *testing.T) {
	t.Parallel()

	g := NewGenerator(clockwork.NewRealClock())
	seen := make(map[string]bool)
	for range 100 {
		id := g.Generate(PrefixAssertionRecord)
		require.False(t, seen[id], "generated duplicate id %q", id)
		seen[id] = true
	}
}

func TestGenerate_LexicalOrderTracksTime(t *testing.T) {
	t.Parallel()

	fake := clockwork.NewFakeClock()
	g := NewGenerator(fake)

	first := g.Generate(PrefixImportRun)
	fake.Advance(time.Second)
	second := g.Generate(PrefixImportRun)

	require.Less(t, first, second)
}

func TestAllPrefixHelpers(t *testing.T) {
	t.Parallel()

	g := NewGenerator(clockwork.NewRealClock())
	require.True(t, strings.HasPrefix(g.GenerateEntity(), PrefixEntity))
	require.True(t, strings.HasPrefix(g.GenerateAssertion(), PrefixAssertionRecord))
	require.True(t, strings.HasPrefix(g.GeneratePropertyValue(), PrefixPropertyValue))
	require.True(t, strings.HasPrefix(g.GenerateChangeEvent(), PrefixChangeEvent))
	require.True(t, strings.HasPrefix(g.GenerateImportRun(), PrefixImportRun))
	require.True(t, strings.HasPrefix(g.GenerateSource(), PrefixSource))
}

package hashing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeRawHash_Deterministic(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	h1 := ComputeRawHash([]any{"Widget", 9.99, nil}, spec)
	h2 := ComputeRawHash([]any{"Widget", 9.99, nil}, spec)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}

func TestComputeRawHash_SensitiveToWhitespace(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	h1 := ComputeRawHash([]any{"Widget"}, spec)
	h2 := ComputeRawHash([]any{"  Widget  "}, spec)
	require.NotEqual(t, h1, h2)
}

func TestComputeNormalizedHash_WhitespaceAndCaseInsensitive(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	rules := DefaultNormalizationRules()

	h1 := ComputeNormalizedHash([]any{"Widget"}, spec, rules, []CellType{CellTypeString})
	h2 := ComputeNormalizedHash([]any{"  WIDGET  "}, spec, rules, []CellType{CellTypeString})
	require.Equal(t, h1, h2)
}

func TestComputeNormalizedHash_NullPatterns(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	rules := DefaultNormalizationRules()

	base := ComputeNormalizedHash([]any{nil}, spec, rules, []CellType{CellTypeString})
	for _, v := range []any{"", "N/A", "n/a", "null", "-"} {
		got := ComputeNormalizedHash([]any{v}, spec, rules, []CellType{CellTypeString})
		require.Equal(t, base, got, "value %q should normalize identically to nil", v)
	}
}

func TestComputeNormalizedHash_DecimalPlaces(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	rules := DefaultNormalizationRules()
	places := 2
	rules.DecimalPlaces = &places

	h1 := ComputeNormalizedHash([]any{9.9}, spec, rules, []CellType{CellTypeNumber})
	h2 := ComputeNormalizedHash([]any{"9.90"}, spec, rules, []CellType{CellTypeNumber})
	require.Equal(t, h1, h2)
}

func TestComputePropertyHash_EqualsSingleElementRow(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	require.Equal(t, ComputeRawHash([]any{"x"}, spec), ComputePropertyRawHash("x", spec))
}

func TestAssertionKeyProperty(t *testing.T) {
	t.Parallel()

	key := AssertionKeyProperty("ws1", "Item", "ITM001", "price")
	require.Equal(t, "ws1:Item:ITM001:prop:price", key)
}

func TestAssertionKeyRelationship(t *testing.T) {
	t.Parallel()

	key := AssertionKeyRelationship("ws1", "Item", "ITM001", "STORED_AT", "Location", "LOC01")
	require.Equal(t, "ws1:Item:ITM001:STORED_AT:Location:LOC01", key)
}

func TestCanonicalSerialization_NullUsesConfiguredMarker(t *testing.T) {
	t.Parallel()

	spec := DefaultSerializationSpec()
	spec.NullRepresentation = "~MISSING~"
	h := ComputeRawHash([]any{nil, "a"}, spec)
	expected := ComputeRawHash([]any{"~MISSING~", "a"}, spec)
	require.Equal(t, h, expected)
}

package resolvedview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/factlake/factlake/pkg/model"
)

func strPtr(s string) *string { return &s }

func assertion(id string, opts ...func(*model.AssertionRecord)) model.AssertionRecord {
	a := model.AssertionRecord{
		AssertionID:      id,
		AssertionKey:     "ws:Item:ITM001:prop:price",
		ScenarioID:       model.ScenarioBase,
		SourceType:       model.SourceTypeExcel,
		RelationshipType: model.RelationshipTypeHasProperty,
		Confidence:       1.0,
		RecordedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidFrom:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func TestResolveAssertion_AuthorityRankBreaksTie(t *testing.T) {
	t.Parallel()

	lowAuthority := assertion("a_low", func(a *model.AssertionRecord) {
		a.SourceID = strPtr("src_b")
		a.RecordedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	})
	highAuthority := assertion("a_high", func(a *model.AssertionRecord) {
		a.SourceID = strPtr("src_a")
		a.RecordedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	winner := ResolveAssertion([]model.AssertionRecord{lowAuthority, highAuthority}, Options{
		Authority: map[string]int{"src_a": 1, "src_b": 5},
	})
	require.NotNil(t, winner)
	require.Equal(t, "a_high", winner.AssertionID, "rank 1 beats rank 5 even though it is older")
}

func TestResolveAssertion_RecencyBreaksTieWhenAuthorityEqual(t *testing.T) {
	t.Parallel()

	older := assertion("a_older", func(a *model.AssertionRecord) {
		a.SourceID = strPtr("src_a")
		a.RecordedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	newer := assertion("a_newer", func(a *model.AssertionRecord) {
		a.SourceID = strPtr("src_a")
		a.RecordedAt = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	})

	winner := ResolveAssertion([]model.AssertionRecord{older, newer}, Options{
		Authority: map[string]int{"src_a": 1},
	})
	require.NotNil(t, winner)
	require.Equal(t, "a_newer", winner.AssertionID)
}

func TestResolveAssertion_ManualOverrideBeatsHigherAuthority(t *testing.T) {
	t.Parallel()

	automated := assertion("a_auto", func(a *model.AssertionRecord) {
		a.SourceID = strPtr("src_a")
		a.SourceType = model.SourceTypeExcel
	})
	manual := assertion("a_manual", func(a *model.AssertionRecord) {
		a.SourceID = strPtr("src_b")
		a.SourceType = model.SourceTypeManual
	})

	winner := ResolveAssertion([]model.AssertionRecord{automated, manual}, Options{
		Authority: map[string]int{"src_a": 1, "src_b": 999},
	})
	require.NotNil(t, winner)
	require.Equal(t, "a_manual", winner.AssertionID)
}

func TestResolveAssertion_ScenarioOverlayFallsBackToBase(t *testing.T) {
	t.Parallel()

	base := assertion("a_base", func(a *model.AssertionRecord) {
		a.ScenarioID = model.ScenarioBase
	})
	scenario := assertion("a_scenario", func(a *model.AssertionRecord) {
		a.ScenarioID = "what_if_2027"
	})

	winnerInScenario := ResolveAssertion([]model.AssertionRecord{base, scenario}, Options{ScenarioID: "what_if_2027"})
	require.NotNil(t, winnerInScenario)
	require.Equal(t, "a_scenario", winnerInScenario.AssertionID)

	winnerInUnrelatedScenario := ResolveAssertion([]model.AssertionRecord{base}, Options{ScenarioID: "what_if_2027"})
	require.NotNil(t, winnerInUnrelatedScenario, "falls back to base when the target scenario has no override")
	require.Equal(t, "a_base", winnerInUnrelatedScenario.AssertionID)
}

func TestResolveAssertion_TemporalFilterExcludesClosedAndFutureAssertions(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	closedBefore := assertion("a_closed", func(a *model.AssertionRecord) {
		validTo := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		a.ValidTo = &validTo
	})
	future := assertion("a_future", func(a *model.AssertionRecord) {
		a.ValidFrom = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	})
	open := assertion("a_open", func(a *model.AssertionRecord) {})

	winner := ResolveAssertion([]model.AssertionRecord{closedBefore, future, open}, Options{AtTime: &at})
	require.NotNil(t, winner)
	require.Equal(t, "a_open", winner.AssertionID)
}

func TestResolveAssertion_EmptyInputReturnsNil(t *testing.T) {
	t.Parallel()
	require.Nil(t, ResolveAssertion(nil, Options{}))
}

func TestResolveAssertion_ConfidenceBreaksTieWhenAuthorityAndRecencyEqual(t *testing.T) {
	t.Parallel()

	lowConfidence := assertion("a_low_conf", func(a *model.AssertionRecord) { a.Confidence = 0.4 })
	highConfidence := assertion("a_high_conf", func(a *model.AssertionRecord) { a.Confidence = 0.9 })

	winner := ResolveAssertion([]model.AssertionRecord{lowConfidence, highConfidence}, Options{})
	require.NotNil(t, winner)
	require.Equal(t, "a_high_conf", winner.AssertionID)
}

func TestResolveEntityView_GroupsByAssertionKey(t *testing.T) {
	t.Parallel()

	price := assertion("a_price")
	name := assertion("a_name", func(a *model.AssertionRecord) {
		a.AssertionKey = "ws:Item:ITM001:prop:name"
	})

	resolved := ResolveEntityView([]model.AssertionRecord{price, name}, Options{})
	require.Len(t, resolved, 2)
	require.Equal(t, "a_price", resolved["ws:Item:ITM001:prop:price"].AssertionID)
	require.Equal(t, "a_name", resolved["ws:Item:ITM001:prop:name"].AssertionID)
}

func TestGetAllClaims_FlagsExactlyOneWinnerPerKey(t *testing.T) {
	t.Parallel()

	older := assertion("a_older", func(a *model.AssertionRecord) {
		a.RecordedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	newer := assertion("a_newer", func(a *model.AssertionRecord) {
		a.RecordedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	})

	claims := GetAllClaims([]model.AssertionRecord{older, newer}, Options{})
	require.Len(t, claims, 2)

	winners := 0
	for _, c := range claims {
		if c.IsWinner {
			winners++
			require.Equal(t, "a_newer", c.AssertionID)
		}
	}
	require.Equal(t, 1, winners)
}

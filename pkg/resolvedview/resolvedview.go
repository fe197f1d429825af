// Package resolvedview implements the Resolved View Engine: a pure,
// deterministic function that picks a single winning assertion out of a
// set of competing claims for the same assertion key. It holds no state and
// talks to no store — callers fetch candidate assertions through pkg/dap
// and pass them in.
//
// Resolution runs six stages in order. The first three narrow the candidate
// set; the last three order what remains, and the first candidate wins:
//
//  1. Temporal validity: valid_from <= at_time < valid_to
//  2. Scenario preference: prefer the target scenario, fall back to base
//  3. Manual override: source_type=manual wins over all else
//  4. Authority rank: lower rank number wins
//  5. Recency: most recent recorded_at wins
//  6. Confidence: highest confidence wins
package resolvedview

import (
	"sort"
	"time"

	"github.com/factlake/factlake/pkg/model"
)

// unknownAuthorityRank is assigned to assertions whose source_id is absent
// from the authority map, so unranked sources lose to any ranked one.
const unknownAuthorityRank = 999

// Options configures a resolution pass.
type Options struct {
	ScenarioID string
	AtTime     *time.Time
	Authority  map[string]int
}

func (o Options) scenario() string {
	if o.ScenarioID == "" {
		return model.ScenarioBase
	}
	return o.ScenarioID
}

// ResolveAssertion picks the single winning assertion from candidates, all
// of which must share the same assertion_key. Returns nil if no candidate
// survives the temporal or scenario filters.
func ResolveAssertion(candidates []model.AssertionRecord, opts Options) *model.AssertionRecord {
	if len(candidates) == 0 {
		return nil
	}

	filtered := filterTemporal(candidates, opts.AtTime)
	if len(filtered) == 0 {
		return nil
	}

	filtered = filterScenario(filtered, opts.scenario())
	if len(filtered) == 0 {
		return nil
	}

	if manual := filterManual(filtered); len(manual) > 0 {
		filtered = manual
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return less(filtered[i], filtered[j], opts.Authority)
	})
	winner := filtered[0]
	return &winner
}

// ResolveEntityView groups assertions by assertion_key and resolves each
// group independently, returning the winner per key.
func ResolveEntityView(assertions []model.AssertionRecord, opts Options) map[string]model.AssertionRecord {
	grouped := make(map[string][]model.AssertionRecord)
	for _, a := range assertions {
		grouped[a.AssertionKey] = append(grouped[a.AssertionKey], a)
	}

	resolved := make(map[string]model.AssertionRecord, len(grouped))
	for key, group := range grouped {
		if winner := ResolveAssertion(group, opts); winner != nil {
			resolved[key] = *winner
		}
	}
	return resolved
}

// Claim is an assertion annotated with whether it is the resolved winner
// for its assertion_key, for callers rendering the full claim history
// alongside the resolved value (e.g. an entity detail view).
type Claim struct {
	model.AssertionRecord
	IsWinner bool
}

// GetAllClaims returns every assertion passed in, each flagged with whether
// it is the winner of ResolveEntityView for its assertion_key.
func GetAllClaims(assertions []model.AssertionRecord, opts Options) []Claim {
	winners := ResolveEntityView(assertions, opts)
	winnerIDs := make(map[string]bool, len(winners))
	for _, w := range winners {
		winnerIDs[w.AssertionID] = true
	}

	claims := make([]Claim, 0, len(assertions))
	for _, a := range assertions {
		claims = append(claims, Claim{AssertionRecord: a, IsWinner: winnerIDs[a.AssertionID]})
	}
	return claims
}

func filterTemporal(assertions []model.AssertionRecord, atTime *time.Time) []model.AssertionRecord {
	if atTime == nil {
		return assertions
	}
	out := make([]model.AssertionRecord, 0, len(assertions))
	for _, a := range assertions {
		if a.ValidFrom.After(*atTime) {
			continue
		}
		if a.ValidTo != nil && !a.ValidTo.After(*atTime) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func filterScenario(assertions []model.AssertionRecord, scenarioID string) []model.AssertionRecord {
	var inScenario []model.AssertionRecord
	for _, a := range assertions {
		if a.ScenarioID == scenarioID {
			inScenario = append(inScenario, a)
		}
	}
	if len(inScenario) > 0 {
		return inScenario
	}
	if scenarioID != model.ScenarioBase {
		var base []model.AssertionRecord
		for _, a := range assertions {
			if a.ScenarioID == model.ScenarioBase {
				base = append(base, a)
			}
		}
		return base
	}
	return assertions
}

func filterManual(assertions []model.AssertionRecord) []model.AssertionRecord {
	var manual []model.AssertionRecord
	for _, a := range assertions {
		if a.SourceType == model.SourceTypeManual {
			manual = append(manual, a)
		}
	}
	return manual
}

func authorityRank(a model.AssertionRecord, authority map[string]int) int {
	if a.SourceID == nil {
		return unknownAuthorityRank
	}
	if rank, ok := authority[*a.SourceID]; ok {
		return rank
	}
	return unknownAuthorityRank
}

// less orders candidates by (authority asc, recorded_at desc, confidence
// desc) — the tail of the resolution chain once the winner isn't forced by
// a manual override.
func less(a, b model.AssertionRecord, authority map[string]int) bool {
	ra, rb := authorityRank(a, authority), authorityRank(b, authority)
	if ra != rb {
		return ra < rb
	}
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return a.Confidence > b.Confidence
}

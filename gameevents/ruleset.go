package gameevents

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRuleDocumentCorrupt reports a stored rule document that fails to
// parse. This is fatal for the request that hit it; it is never downgraded
// to "no rules configured".
var ErrRuleDocumentCorrupt = errors.New("rule document corrupt")

// Rule is the ordered condition list configured for one event type.
// A rule with zero conditions is well-formed and trivially satisfied.
type Rule struct {
	Conditions []Condition `json:"conditions"`
}

// RuleSet maps event-type names to their rules. One league owns exactly
// one rule set, persisted as a single JSON document.
type RuleSet map[string]Rule

// ParseRuleSet parses a league's stored rule document. An empty document
// parses to an empty rule set; anything else must be a JSON object mapping
// event types to rules.
func ParseRuleSet(document string) (RuleSet, error) {
	if strings.TrimSpace(document) == "" {
		return RuleSet{}, nil
	}

	var rs RuleSet
	if err := json.Unmarshal([]byte(document), &rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleDocumentCorrupt, err)
	}
	return rs, nil
}

// Document serializes the rule set back to its persisted form.
func (rs RuleSet) Document() (string, error) {
	b, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("serialize rule set: %w", err)
	}
	return string(b), nil
}

// Merge applies the merge update discipline: each event type in incoming
// overwrites or extends the corresponding entry, event types not named by
// incoming are left untouched. Replacing the whole document is only
// possible by clearing the league's rules first; this asymmetry is the
// documented contract.
func (rs RuleSet) Merge(incoming RuleSet) {
	for eventType, rule := range incoming {
		rs[eventType] = rule
	}
}

// EventTypes returns the configured event types in sorted order, for
// inclusion in "no rule defined" responses.
func (rs RuleSet) EventTypes() []string {
	types := make([]string, 0, len(rs))
	for t := range rs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Evaluate runs every condition in the rule against the event data.
// The verdict is the logical AND of all condition results, vacuously true
// for an empty condition list; the diagnostic trail always covers every
// condition, pass or fail.
func (r Rule) Evaluate(data map[string]any) Verdict {
	results := make([]ConditionResult, 0, len(r.Conditions))
	valid := true
	for _, cond := range r.Conditions {
		res := EvaluateCondition(cond, data)
		if !res.Passed {
			valid = false
		}
		results = append(results, res)
	}
	return Verdict{Valid: valid, Results: results}
}

// Verdict is the outcome of evaluating one rule against one event.
type Verdict struct {
	Valid   bool              `json:"valid"`
	Results []ConditionResult `json:"conditions"`
}

package gameevents

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Condition variants. Unknown variants evaluate to failed, never to an
// error: rule authoring mistakes must not take down event ingestion.
const (
	ConditionValueComparison = "valueComparison"
	ConditionFieldComparison = "fieldComparison"
)

// Comparison operators accepted by both condition variants.
var operators = map[string]bool{
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
}

// Condition is a single comparison inside a rule. Type selects the
// variant: valueComparison compares Field against the literal Value,
// fieldComparison compares FieldA against FieldB.
type Condition struct {
	Type     string `json:"type"`
	Field    string `json:"field,omitempty"`
	FieldA   string `json:"fieldA,omitempty"`
	FieldB   string `json:"fieldB,omitempty"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// ConditionResult is the per-condition diagnostic attached to a verdict.
// Reason carries enough of the failing comparison to reconstruct it from
// the play-by-play record alone.
type ConditionResult struct {
	Condition Condition `json:"condition"`
	Passed    bool      `json:"passed"`
	Reason    string    `json:"reason"`
}

// operand is a resolved comparison side. present is false for a missing
// field, an explicit null, or a null rule literal; the comparison policy
// treats all three identically.
type operand struct {
	value   any
	present bool
}

// EvaluateCondition evaluates one condition against event data. It is
// total: every condition/payload pair yields a definite boolean and a
// human-readable reason, and it never panics.
func EvaluateCondition(cond Condition, data map[string]any) ConditionResult {
	var left, right operand

	switch cond.Type {
	case ConditionValueComparison:
		v, ok := ResolvePath(data, cond.Field)
		left = operand{value: v, present: ok}
		right = operand{value: cond.Value, present: cond.Value != nil}
	case ConditionFieldComparison:
		va, oka := ResolvePath(data, cond.FieldA)
		vb, okb := ResolvePath(data, cond.FieldB)
		left = operand{value: va, present: oka}
		right = operand{value: vb, present: okb}
	default:
		return ConditionResult{
			Condition: cond,
			Passed:    false,
			Reason:    fmt.Sprintf("unknown condition type %q", cond.Type),
		}
	}

	if !operators[cond.Operator] {
		return ConditionResult{
			Condition: cond,
			Passed:    false,
			Reason:    fmt.Sprintf("unknown operator %q", cond.Operator),
		}
	}

	passed := applyOperator(cond.Operator, left, right)
	outcome := "Failed"
	if passed {
		outcome = "Passed"
	}
	return ConditionResult{
		Condition: cond,
		Passed:    passed,
		Reason: fmt.Sprintf("%s: %s %s %s",
			outcome, formatOperand(left), cond.Operator, formatOperand(right)),
	}
}

// applyOperator applies one of the six operators under the loose coercion
// policy. The full truth table:
//
//   ==, !=   both absent            -> equal
//            one absent             -> not equal
//            both strings           -> string equality
//            both coerce to number  -> numeric equality ("3" == 3, true == 1)
//            otherwise              -> not equal
//   > >= < <= either absent         -> false
//            both strings           -> lexicographic comparison
//            both coerce to number  -> numeric comparison
//            otherwise              -> false
func applyOperator(op string, left, right operand) bool {
	switch op {
	case "==":
		return looseEqual(left, right)
	case "!=":
		return !looseEqual(left, right)
	}

	// Relational operators.
	if !left.present || !right.present {
		return false
	}

	ls, lIsStr := left.value.(string)
	rs, rIsStr := right.value.(string)
	if lIsStr && rIsStr {
		return relationHolds(op, strings.Compare(ls, rs))
	}

	lf, lok := asNumber(left.value)
	rf, rok := asNumber(right.value)
	if !lok || !rok {
		return false
	}
	switch {
	case lf < rf:
		return relationHolds(op, -1)
	case lf > rf:
		return relationHolds(op, 1)
	default:
		return relationHolds(op, 0)
	}
}

func relationHolds(op string, cmp int) bool {
	switch op {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}

func looseEqual(left, right operand) bool {
	if !left.present || !right.present {
		return !left.present && !right.present
	}

	if ls, ok := left.value.(string); ok {
		if rs, ok := right.value.(string); ok {
			return ls == rs
		}
	}

	lf, lok := asNumber(left.value)
	rf, rok := asNumber(right.value)
	if lok && rok {
		return lf == rf
	}

	return false
}

// asNumber coerces a payload or literal value to float64. Numeric strings
// coerce; booleans coerce to 0/1; anything else does not.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func formatOperand(o operand) string {
	if !o.present {
		return "null"
	}
	return fmt.Sprintf("%v", o.value)
}

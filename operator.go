package smaq

import (
	"encoding/json"
	"fmt"
)

// Op is the closed set of comparison operators the Predicate Parser recognises (spec §4.1).
// Per spec §9's note on "dynamic operator dispatch", the set is small and fixed, so it is
// modeled as a tagged enumeration with evaluation and skip/outlier rules derived by pattern
// match, rather than stringly-typed comparisons spread through the codebase.
type Op int

const (
	OpInvalid Op = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// ParseOp maps the operator's surface syntax to its tagged value. Used only at serialisation
// boundaries (the parser and Op's JSON decoding); the rest of the codebase should dispatch on
// the Op value itself.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "=":
		return OpEq, true
	case "!=":
		return OpNeq, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLte, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGte, true
	default:
		return OpInvalid, false
	}
}

// String renders the operator back to its SQL surface syntax.
func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// Evaluate applies the operator to (value OP literal).
func (op Op) Evaluate(value, literal float64) bool {
	switch op {
	case OpEq:
		return value == literal
	case OpNeq:
		return value != literal
	case OpLt:
		return value < literal
	case OpLte:
		return value <= literal
	case OpGt:
		return value > literal
	case OpGte:
		return value >= literal
	default:
		return false
	}
}

// SkipsFile reports whether, given the column's [min, max] extrema, every row in the file is
// guaranteed to fail the predicate (spec §4.5's skip rule). Only '>' and '<' ever skip;
// '=' / '!=' / '<=' / '>=' never do under this design.
func (op Op) SkipsFile(literal, min, max float64) bool {
	switch op {
	case OpGt:
		return literal > max
	case OpLt:
		return literal < min
	default:
		return false
	}
}

// IsOutlierShortcut reports whether, given the column's fence, every row satisfying the
// predicate must already be a materialised outlier (spec §4.5's outlier rule). Only '>' and
// '<' ever qualify.
func (op Op) IsOutlierShortcut(literal, lowerThreshold, upperThreshold float64) bool {
	switch op {
	case OpGt:
		return literal > upperThreshold
	case OpLt:
		return literal < lowerThreshold
	default:
		return false
	}
}

// Valid reports whether op is one of the recognised operators.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

func (op Op) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

func (op *Op) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseOp(s)
	if !ok {
		return fmt.Errorf("unknown operator %q", s)
	}
	*op = parsed
	return nil
}

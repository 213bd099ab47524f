package smaq

import "fmt"

// Table is this module's driver-independent tabular result. It is used for the SMA outlier
// payload, fallback scan results, and the unioned per-query result returned to callers.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Project returns a new Table containing only the named columns, in the order requested.
// Columns not present in t are silently skipped (the caller is expected to have validated
// the projection against the schema already). A nil/empty projection returns t unchanged.
func (t *Table) Project(columns []string) *Table {
	if t == nil || len(columns) == 0 {
		return t
	}
	idx := make([]int, 0, len(columns))
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		for i, existing := range t.Columns {
			if existing == c {
				idx = append(idx, i)
				names = append(names, existing)
				break
			}
		}
	}
	rows := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		projected := make([]any, len(idx))
		for j, i := range idx {
			projected[j] = row[i]
		}
		rows[r] = projected
	}
	return &Table{Columns: names, Rows: rows}
}

// Union returns a new table holding t's rows followed by other's. When either side is nil or
// has no rows, the other side is returned as is (not copied). Schemas are assumed compatible
// (same source predicate/projection); cross-fragment row order is unspecified per spec, so
// Union simply appends.
func (t *Table) Union(other *Table) *Table {
	if t == nil || t.NumRows() == 0 {
		return other
	}
	if other == nil || other.NumRows() == 0 {
		return t
	}
	rows := make([][]any, 0, len(t.Rows)+len(other.Rows))
	rows = append(rows, t.Rows...)
	rows = append(rows, other.Rows...)
	return &Table{Columns: t.Columns, Rows: rows}
}

// PredicateKey is the stable string identifier for a (file, column, op, literal) tuple
// described in spec §3. It is the index used by the SMA Store, the Stats Manager and the
// Economic Controller.
type PredicateKey string

// NewPredicateKey builds the key for a parsed predicate against a single file, formatted
// "<basename>_<column>_<op>_<literal>" per spec §3. The literal is rendered with the
// shortest round-trippable representation so the same float always yields the same key.
func NewPredicateKey(baseName, column string, op Op, literal float64) PredicateKey {
	return PredicateKey(fmt.Sprintf("%s_%s_%s_%s", baseName, column, op.String(), formatLiteral(literal)))
}

func formatLiteral(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Predicate is the single recognised filter clause: "column OP literal".
type Predicate struct {
	Column  string
	Op      Op
	Literal float64
}

// ParsedQuery is what the Predicate Parser produces from a recognised query string.
type ParsedQuery struct {
	Files      []string
	Projection []string // nil means "*", no projection
	Predicate  Predicate
}

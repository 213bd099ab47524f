package smastore

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/lychee-technology/smaq"
)

// ColumnReader is the narrow backend dependency the SMA Builder needs: the full table for
// one parquet file, in source row order, with all columns materialised. It is satisfied by
// internal/backend's DuckDB-backed engine and, in tests, by an in-memory fake.
type ColumnReader interface {
	ReadFile(ctx context.Context, path string) (*smaq.Table, error)
}

// Build computes the SMA for one (file, column, op, literal) predicate: the column's
// min/max, its IQR outlier fences, and the materialised rows that are both outside the
// fences and satisfy the predicate. It returns (nil, nil) when the column has no non-null
// values to build bounds from, mirroring spec §4.3's "nothing to index" case.
func Build(ctx context.Context, reader ColumnReader, path string, predicate smaq.Predicate, key smaq.PredicateKey, queryID int64, iqrMultiplier float64) (*Artifact, error) {
	table, err := reader.ReadFile(ctx, path)
	if err != nil {
		return nil, smaq.NewBuildFailureError(key, err)
	}

	colIdx := columnIndex(table, predicate.Column)
	if colIdx < 0 {
		return nil, smaq.NewBuildFailureError(key, &columnNotFoundError{column: predicate.Column})
	}

	values := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		v, ok := numericValue(row[colIdx])
		if !ok {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - iqrMultiplier*iqr
	upper := q3 + iqrMultiplier*iqr

	outlierRows := make([][]any, 0)
	for _, row := range table.Rows {
		v, ok := numericValue(row[colIdx])
		if !ok {
			continue
		}
		if v >= lower && v <= upper {
			continue
		}
		if !predicate.Op.Evaluate(v, predicate.Literal) {
			continue
		}
		outlierRows = append(outlierRows, row)
	}

	return &Artifact{
		Key:               key,
		Column:            predicate.Column,
		Op:                predicate.Op,
		Min:               sorted[0],
		Max:               sorted[len(sorted)-1],
		LowerThreshold:    lower,
		UpperThreshold:    upper,
		SchemaFingerprint: columnFingerprint(table.Columns),
		OutlierRowCount:   len(outlierRows),
		Outliers:          &smaq.Table{Columns: table.Columns, Rows: outlierRows},
		BuiltAt:           time.Now(),
		BuiltAtQuery:      queryID,
	}, nil
}

// quantile computes the p-th quantile of an ascending-sorted slice by linear interpolation
// between the two bracketing order statistics, matching the reference implementation this
// module's fence computation is grounded on.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	low := int(math.Floor(idx))
	high := int(math.Ceil(idx))
	if low == high {
		return sorted[low]
	}
	frac := idx - float64(low)
	return sorted[low] + frac*(sorted[high]-sorted[low])
}

func columnIndex(t *smaq.Table, name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

type columnNotFoundError struct {
	column string
}

func (e *columnNotFoundError) Error() string {
	return "column not found: " + e.column
}

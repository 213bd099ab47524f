package smastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/smaq"
)

type fakeReader struct {
	tables map[string]*smaq.Table
}

func (f *fakeReader) ReadFile(ctx context.Context, path string) (*smaq.Table, error) {
	t, ok := f.tables[path]
	if !ok {
		return &smaq.Table{}, nil
	}
	return t, nil
}

func TestBuildComputesBoundsAndOutliers(t *testing.T) {
	reader := &fakeReader{tables: map[string]*smaq.Table{
		"orders.parquet": {
			Columns: []string{"id", "price"},
			Rows: [][]any{
				{int64(1), 10.0},
				{int64(2), 12.0},
				{int64(3), 11.0},
				{int64(4), 13.0},
				{int64(5), 900.0}, // outlier
				{int64(6), 14.0},
				{int64(7), nil},
			},
		},
	}}

	pred := smaq.Predicate{Column: "price", Op: smaq.OpGt, Literal: 200}
	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 200)

	artifact, err := Build(context.Background(), reader, "orders.parquet", pred, key, 0, 1.5)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Equal(t, 10.0, artifact.Min)
	assert.Equal(t, 900.0, artifact.Max)
	assert.Less(t, artifact.UpperThreshold, 900.0)
	require.Equal(t, 1, artifact.Outliers.NumRows())
	assert.Equal(t, int64(5), artifact.Outliers.Rows[0][0])
}

func TestBuildExcludesOutliersNotMatchingPredicate(t *testing.T) {
	reader := &fakeReader{tables: map[string]*smaq.Table{
		"orders.parquet": {
			Columns: []string{"price"},
			Rows: [][]any{
				{10.0}, {11.0}, {12.0}, {13.0}, {-900.0}, // outlier on the low side
			},
		},
	}}
	pred := smaq.Predicate{Column: "price", Op: smaq.OpGt, Literal: 5000}
	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 5000)

	artifact, err := Build(context.Background(), reader, "orders.parquet", pred, key, 0, 1.5)
	require.NoError(t, err)
	// -900 is an outlier but does not satisfy "price > 5000".
	assert.Equal(t, 0, artifact.Outliers.NumRows())
}

func TestBuildReturnsNilForAllNullColumn(t *testing.T) {
	reader := &fakeReader{tables: map[string]*smaq.Table{
		"orders.parquet": {
			Columns: []string{"price"},
			Rows:    [][]any{{nil}, {nil}},
		},
	}}
	pred := smaq.Predicate{Column: "price", Op: smaq.OpGt, Literal: 1}
	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 1)

	artifact, err := Build(context.Background(), reader, "orders.parquet", pred, key, 0, 1.5)
	require.NoError(t, err)
	assert.Nil(t, artifact)
}

func TestBuildMissingColumnIsBuildFailure(t *testing.T) {
	reader := &fakeReader{tables: map[string]*smaq.Table{
		"orders.parquet": {Columns: []string{"qty"}, Rows: [][]any{{int64(1)}}},
	}}
	pred := smaq.Predicate{Column: "price", Op: smaq.OpGt, Literal: 1}
	key := smaq.NewPredicateKey("orders.parquet", "price", smaq.OpGt, 1)

	_, err := Build(context.Background(), reader, "orders.parquet", pred, key, 0, 1.5)
	require.Error(t, err)
	var smaErr *smaq.SmaError
	require.ErrorAs(t, err, &smaErr)
	assert.Equal(t, smaq.ErrorTypeBuildFailure, smaErr.Type)
}

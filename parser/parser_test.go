package parser

import (
	"testing"

	"github.com/lychee-technology/smaq"
	"github.com/stretchr/testify/require"
)

func TestParseReadParquetForm(t *testing.T) {
	q, err := Parse(`SELECT price FROM read_parquet(['orders.parquet', 'orders2.parquet']) WHERE price > 200`)
	require.NoError(t, err)
	require.Equal(t, []string{"orders.parquet", "orders2.parquet"}, q.Files)
	require.Equal(t, []string{"price"}, q.Projection)
	require.Equal(t, "price", q.Predicate.Column)
	require.Equal(t, smaq.OpGt, q.Predicate.Op)
	require.Equal(t, 200.0, q.Predicate.Literal)
}

func TestParseQuotedPathForm(t *testing.T) {
	q, err := Parse(`SELECT * FROM 'orders.parquet' WHERE price > 10000`)
	require.NoError(t, err)
	require.Equal(t, []string{"orders.parquet"}, q.Files)
	require.Nil(t, q.Projection)
	require.Equal(t, smaq.OpGt, q.Predicate.Op)
	require.Equal(t, 10000.0, q.Predicate.Literal)
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	q, err := Parse(`select price from 'orders.parquet' where price <= 5`)
	require.NoError(t, err)
	require.Equal(t, smaq.OpLte, q.Predicate.Op)
}

func TestParseMultiColumnProjection(t *testing.T) {
	q, err := Parse(`SELECT id, price, qty FROM 'orders.parquet' WHERE qty = 3`)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "price", "qty"}, q.Projection)
}

func TestParseAllOperators(t *testing.T) {
	ops := map[string]smaq.Op{
		"=":  smaq.OpEq,
		"!=": smaq.OpNeq,
		"<":  smaq.OpLt,
		"<=": smaq.OpLte,
		">":  smaq.OpGt,
		">=": smaq.OpGte,
	}
	for sym, want := range ops {
		q, err := Parse(`SELECT * FROM 'orders.parquet' WHERE price ` + sym + ` 1`)
		require.NoError(t, err)
		require.Equal(t, want, q.Predicate.Op)
	}
}

func TestParseUnsupportedQuery(t *testing.T) {
	_, err := Parse(`DELETE FROM 'orders.parquet' WHERE price > 1`)
	var smaErr *smaq.SmaError
	require.ErrorAs(t, err, &smaErr)
	require.Equal(t, smaq.ErrorTypeUnsupportedQuery, smaErr.Type)
}

func TestParseMalformedQueryMissingWhere(t *testing.T) {
	_, err := Parse(`SELECT * FROM 'orders.parquet'`)
	var smaErr *smaq.SmaError
	require.ErrorAs(t, err, &smaErr)
	require.Equal(t, smaq.ErrorTypeMalformedQuery, smaErr.Type)
}

func TestParseMalformedQueryEmptyFileList(t *testing.T) {
	_, err := Parse(`SELECT * FROM read_parquet([]) WHERE price > 1`)
	var smaErr *smaq.SmaError
	require.ErrorAs(t, err, &smaErr)
	require.Equal(t, smaq.ErrorTypeMalformedQuery, smaErr.Type)
}

func TestParseMalformedQueryBadOperator(t *testing.T) {
	_, err := Parse(`SELECT * FROM 'orders.parquet' WHERE price <> 1`)
	var smaErr *smaq.SmaError
	require.ErrorAs(t, err, &smaErr)
	require.Equal(t, smaq.ErrorTypeMalformedQuery, smaErr.Type)
}

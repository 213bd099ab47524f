package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/smaq"
)

func TestOpenDisabledReturnsError(t *testing.T) {
	cfg := smaq.DuckDBConfig{Enabled: false}
	_, err := Open(context.Background(), cfg, S3Credentials{}, nil)
	require.Error(t, err)
}

func TestEscapeSQLStringDoublesQuotes(t *testing.T) {
	assert.Equal(t, "o''brien", escapeSQLString("o'brien"))
	assert.Equal(t, "plain", escapeSQLString("plain"))
}

func TestNormalizeRowConvertsByteSlices(t *testing.T) {
	row := normalizeRow([]any{[]byte("hello"), int64(5), nil})
	assert.Equal(t, "hello", row[0])
	assert.Equal(t, int64(5), row[1])
	assert.Nil(t, row[2])
}

func TestCloseOnNilEngineIsNoop(t *testing.T) {
	var e *Engine
	assert.NoError(t, e.Close())
}

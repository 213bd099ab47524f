package smastore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/lychee-technology/smaq"
)

// pool is the Arrow allocator used for every record built or read by this package. A single
// Go-backed allocator is enough here: artifacts are built and released within one call.
var pool = memory.NewGoAllocator()

// encodeTable serialises t as a single-batch Arrow IPC stream (self-delimiting via the
// stream's own end-of-stream marker, independently round-trippable). Column types are
// inferred from the first non-nil value seen in each column; an entirely-null column
// defaults to a nullable string field.
func encodeTable(t *smaq.Table) ([]byte, error) {
	schema := inferSchema(t)

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	for _, row := range t.Rows {
		for i, v := range row {
			appendValue(b.Field(i), v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("create arrow ipc writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("write arrow record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close arrow ipc writer: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeTable reverses encodeTable. Multiple record batches (should the writer ever emit
// more than one) are concatenated in order.
func decodeTable(data []byte) (*smaq.Table, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(pool))
	if err != nil {
		if err == io.EOF {
			return &smaq.Table{}, nil
		}
		return nil, fmt.Errorf("create arrow ipc reader: %w", err)
	}
	defer r.Release()

	schema := r.Schema()
	columns := make([]string, schema.NumFields())
	for i := range columns {
		columns[i] = schema.Field(i).Name
	}

	table := &smaq.Table{Columns: columns}
	for r.Next() {
		rec := r.Record()
		for rowIdx := 0; rowIdx < int(rec.NumRows()); rowIdx++ {
			row := make([]any, rec.NumCols())
			for colIdx := 0; colIdx < int(rec.NumCols()); colIdx++ {
				row[colIdx] = readValue(rec.Column(colIdx), rowIdx)
			}
			table.Rows = append(table.Rows, row)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read arrow records: %w", err)
	}
	return table, nil
}

func inferSchema(t *smaq.Table) *arrow.Schema {
	fields := make([]arrow.Field, len(t.Columns))
	for i, name := range t.Columns {
		fields[i] = arrow.Field{Name: name, Type: inferColumnType(t, i), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func inferColumnType(t *smaq.Table, col int) arrow.DataType {
	for _, row := range t.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		switch row[col].(type) {
		case int64, int:
			return arrow.PrimitiveTypes.Int64
		case float64, float32:
			return arrow.PrimitiveTypes.Float64
		case bool:
			return arrow.FixedWidthTypes.Boolean
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

func appendValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		switch n := v.(type) {
		case int64:
			fb.Append(n)
		case int:
			fb.Append(int64(n))
		case float64:
			fb.Append(int64(n))
		default:
			fb.AppendNull()
		}
	case *array.Float64Builder:
		switch n := v.(type) {
		case float64:
			fb.Append(n)
		case float32:
			fb.Append(float64(n))
		case int64:
			fb.Append(float64(n))
		case int:
			fb.Append(float64(n))
		default:
			fb.AppendNull()
		}
	case *array.BooleanBuilder:
		if bv, ok := v.(bool); ok {
			fb.Append(bv)
		} else {
			fb.AppendNull()
		}
	case *array.StringBuilder:
		fb.Append(fmt.Sprintf("%v", v))
	default:
		b.AppendNull()
	}
}

func readValue(col arrow.Array, row int) any {
	if col.IsNull(row) {
		return nil
	}
	switch a := col.(type) {
	case *array.Int64:
		return a.Value(row)
	case *array.Float64:
		return a.Value(row)
	case *array.Boolean:
		return a.Value(row)
	case *array.String:
		return a.Value(row)
	default:
		return nil
	}
}

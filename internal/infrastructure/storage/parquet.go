package storage

import (
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

// writeParquet writes rows as a single-record parquet file. Every column is
// UTF-8: the warehouse tables arrive pre-rendered as strings, and consumers
// take typing from the warehouse schema, not from the lake files.
func writeParquet(path string, columns []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	pool := memory.NewGoAllocator()

	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{Name: col, Type: arrow.BinaryTypes.String}
	}
	schema := arrow.NewSchema(fields, nil)

	builders := make([]*array.StringBuilder, len(columns))
	for i := range columns {
		builders[i] = array.NewStringBuilder(pool)
		defer builders[i].Release()
	}
	for _, row := range rows {
		for i := range columns {
			builders[i].Append(row[i])
		}
	}

	arrays := make([]arrow.Array, len(columns))
	for i, b := range builders {
		arrays[i] = b.NewArray()
		defer arrays[i].Release()
	}

	record := array.NewRecord(schema, arrays, int64(len(rows)))
	defer record.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// Close on the pqarrow writer writes the footer and closes the file.
	writer, err := pqarrow.NewFileWriter(schema, f, nil, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return err
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

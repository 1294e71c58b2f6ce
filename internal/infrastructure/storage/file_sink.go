// Package storage provides the tabular file sink and the S3 publisher for
// gold tables.
package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/application/pipeline"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
)

// FileSink writes published tables to disk. Every table gets a flat CSV
// mirror under <dir>/csv/<table>.csv for inspection; tables carrying a
// partition key additionally get a columnar data-lake layout under
// <dir>/tables/<table>/<key>=<value>/part.parquet.
type FileSink struct {
	dir    string
	logger *zap.Logger
}

// NewFileSink creates a sink rooted at the configured output directory.
func NewFileSink(cfg config.OutputConfig, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{dir: cfg.Dir, logger: logger}
}

// WriteTable writes one table to disk and reports every file produced.
func (s *FileSink) WriteTable(ctx context.Context, table pipeline.Table) ([]pipeline.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]pipeline.WriteResult, 0, 2)

	mirrorKey := filepath.ToSlash(filepath.Join("csv", table.Name+".csv"))
	mirrorPath := filepath.Join(s.dir, "csv", table.Name+".csv")
	if err := writeCSV(mirrorPath, table.Columns, table.Rows); err != nil {
		return nil, fmt.Errorf("write %s mirror: %w", table.Name, err)
	}
	results = append(results, pipeline.WriteResult{
		Kind: "csv",
		Path: mirrorPath,
		Key:  mirrorKey,
		Rows: len(table.Rows),
	})

	if table.PartitionBy != "" {
		partitioned, err := s.writePartitioned(table)
		if err != nil {
			return nil, err
		}
		results = append(results, partitioned...)
	}

	s.logger.Debug("Table written",
		zap.String("table", table.Name),
		zap.Int("rows", len(table.Rows)),
		zap.Int("files", len(results)),
	)
	return results, nil
}

func (s *FileSink) writePartitioned(table pipeline.Table) ([]pipeline.WriteResult, error) {
	keyIndex := -1
	for i, col := range table.Columns {
		if col == table.PartitionBy {
			keyIndex = i
			break
		}
	}
	if keyIndex < 0 {
		return nil, fmt.Errorf("write %s: partition column %q not in table", table.Name, table.PartitionBy)
	}

	groups := make(map[string][][]string)
	for _, row := range table.Rows {
		value := row[keyIndex]
		groups[value] = append(groups[value], row)
	}

	values := make([]string, 0, len(groups))
	for value := range groups {
		values = append(values, value)
	}
	sort.Strings(values)

	results := make([]pipeline.WriteResult, 0, len(values))
	for _, value := range values {
		partDir := table.PartitionBy + "=" + sanitizePartitionValue(value)
		key := filepath.ToSlash(filepath.Join("tables", table.Name, partDir, "part.parquet"))
		path := filepath.Join(s.dir, "tables", table.Name, partDir, "part.parquet")
		if err := writeParquet(path, table.Columns, groups[value]); err != nil {
			return nil, fmt.Errorf("write %s partition %s: %w", table.Name, value, err)
		}
		results = append(results, pipeline.WriteResult{
			Kind: "parquet",
			Path: path,
			Key:  key,
			Rows: len(groups[value]),
		})
	}
	return results, nil
}

func writeCSV(path string, columns []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sanitizePartitionValue keeps partition directory names filesystem-safe.
func sanitizePartitionValue(value string) string {
	if value == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	return replacer.Replace(value)
}

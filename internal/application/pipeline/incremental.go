// Package pipeline orchestrates the warehouse load: extract, normalize,
// incremental filter, dimensional modeling, quality gate, aggregation and
// publishing, as one linear single-runner pass.
package pipeline

import (
	"fmt"
	"time"

	"github.com/phc/analytics-backend/internal/domain/warehouse"
)

// WatermarkField extracts the incremental timestamp from a record.
type WatermarkField[T any] func(T) string

// FilterIncremental selects the records newer than the stored watermark and
// computes the watermark to persist after a successful load.
//
//   - Empty input returns the watermark unchanged.
//   - A record without the watermark field is a hard contract violation:
//     incremental entities must carry it.
//   - A nil watermark (first run) returns the whole batch and establishes the
//     batch maximum as the baseline.
//   - Otherwise only records strictly newer than the watermark pass, and the
//     new watermark is the maximum among the filtered subset.
//   - When filtering yields nothing the watermark is returned unchanged:
//     it only advances on a successful load with data.
func FilterIncremental[T any](records []T, watermark *string, fieldName string, field WatermarkField[T]) ([]T, *string, error) {
	if len(records) == 0 {
		return []T{}, watermark, nil
	}

	parsed := make([]time.Time, len(records))
	var batchMax time.Time
	batchMaxRaw := ""
	for i, rec := range records {
		raw := field(rec)
		if raw == "" {
			return nil, nil, fmt.Errorf("record missing watermark field %q", fieldName)
		}
		t, err := warehouse.ParseTimestamp(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("watermark field %q: %w", fieldName, err)
		}
		parsed[i] = t
		if t.After(batchMax) {
			batchMax = t
			batchMaxRaw = raw
		}
	}

	if watermark == nil {
		return records, &batchMaxRaw, nil
	}

	current, err := warehouse.ParseTimestamp(*watermark)
	if err != nil {
		return nil, nil, fmt.Errorf("stored watermark %q: %w", *watermark, err)
	}

	filtered := make([]T, 0, len(records))
	var filteredMax time.Time
	filteredMaxRaw := ""
	for i, rec := range records {
		if !parsed[i].After(current) {
			continue
		}
		filtered = append(filtered, rec)
		if parsed[i].After(filteredMax) {
			filteredMax = parsed[i]
			filteredMaxRaw = field(rec)
		}
	}

	if len(filtered) == 0 {
		return []T{}, watermark, nil
	}
	return filtered, &filteredMaxRaw, nil
}

package warehouse

import (
	"fmt"
	"sort"
	"strings"
)

// CheckResult is the outcome of one quality check.
type CheckResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// CheckNotNull fails when any of the named columns holds a null in any row.
// Details report per-column null counts.
func CheckNotNull(rows []Row, columns []string) CheckResult {
	nulls := make(map[string]int, len(columns))
	for _, row := range rows {
		for _, col := range columns {
			if v, ok := row[col]; !ok || v == nil {
				nulls[col]++
			}
		}
	}

	if len(nulls) == 0 {
		return CheckResult{Name: "not_null_check", OK: true}
	}

	cols := make([]string, 0, len(nulls))
	for col := range nulls {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("%s=%d", col, nulls[col]))
	}
	return CheckResult{
		Name:    "not_null_check",
		OK:      false,
		Details: "null values found: " + strings.Join(parts, ", "),
	}
}

// CheckGrainUnique fails when the combination of grain columns is not unique
// across rows. Details report the duplicate row count.
func CheckGrainUnique(rows []Row, grain []string) CheckResult {
	seen := make(map[string]bool, len(rows))
	duplicates := 0

	for _, row := range rows {
		parts := make([]string, 0, len(grain))
		for _, col := range grain {
			parts = append(parts, fmt.Sprintf("%v", row[col]))
		}
		key := strings.Join(parts, "\x1f")
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
	}

	if duplicates == 0 {
		return CheckResult{Name: "grain_unique_check", OK: true}
	}
	return CheckResult{
		Name:    "grain_unique_check",
		OK:      false,
		Details: fmt.Sprintf("%d duplicate rows on grain %v", duplicates, grain),
	}
}

// RunQualityGateFactDocuments runs the publishing gate for fact_documents:
// not-null on id, date, client key and amount, plus uniqueness on doc id.
// The caller must block publishing when any result fails.
func RunQualityGateFactDocuments(facts []FactDocument) []CheckResult {
	rows := make([]Row, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, f.Row())
	}

	return []CheckResult{
		CheckNotNull(rows, []string{"doc_id", "doc_date", "client_id", "total"}),
		CheckGrainUnique(rows, []string{"doc_id"}),
	}
}

// GatePassed reports whether every check in a gate run succeeded.
func GatePassed(results []CheckResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

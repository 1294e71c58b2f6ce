// Package documents loads billing documents for the fact_documents flow,
// either from a CSV export or from a deterministic development fixture.
package documents

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/phc/analytics-backend/internal/domain/ingest"
	"github.com/phc/analytics-backend/internal/domain/shared"
)

// CSVSource reads documents from a CSV export with a
// doc_id,doc_date,client_id,client_name,doc_type,total header.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source reading from the given file.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// LoadDocuments parses the export. Rows with an unparseable date abort the
// load; downstream modeling assumes every document carries a valid day.
func (s *CSVSource) LoadDocuments(ctx context.Context) ([]ingest.Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open documents export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read documents header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"doc_id", "doc_date", "client_id", "total"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: documents export missing column %q", shared.ErrDataValidation, required)
		}
	}

	docs := make([]ingest.Document, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read documents export: %w", err)
		}

		doc, err := parseRecord(record, col)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseRecord(record []string, col map[string]int) (ingest.Document, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	docID, err := strconv.Atoi(field("doc_id"))
	if err != nil {
		return ingest.Document{}, fmt.Errorf("%w: invalid doc_id %q", shared.ErrDataValidation, field("doc_id"))
	}

	docDate, err := normalizeDate(field("doc_date"))
	if err != nil {
		return ingest.Document{}, fmt.Errorf("%w: document %d: %v", shared.ErrDataValidation, docID, err)
	}

	clientID, err := strconv.Atoi(field("client_id"))
	if err != nil {
		return ingest.Document{}, fmt.Errorf("%w: document %d: invalid client_id", shared.ErrDataValidation, docID)
	}

	total, err := strconv.ParseFloat(field("total"), 64)
	if err != nil {
		return ingest.Document{}, fmt.Errorf("%w: document %d: invalid total", shared.ErrDataValidation, docID)
	}

	return ingest.Document{
		DocID:      docID,
		DocDate:    docDate,
		ClientID:   clientID,
		ClientName: field("client_name"),
		DocType:    field("doc_type"),
		Total:      total,
	}, nil
}

// normalizeDate accepts a plain day or a full timestamp and returns YYYY-MM-DD.
func normalizeDate(raw string) (string, error) {
	if len(raw) > 10 {
		raw = raw[:10]
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return "", fmt.Errorf("invalid doc_date %q", raw)
	}
	return parsed.Format("2006-01-02"), nil
}

// fixture generation parameters, mirroring the demo dataset
const (
	fixtureSeed  = 42
	fixtureCount = 500
)

var fixtureClients = map[int]string{
	1: "Cliente A",
	2: "Cliente B",
	3: "Cliente C",
	4: "Cliente D",
	5: "Cliente E",
}

// FixtureSource generates a deterministic demo dataset: two years of
// documents across five clients. Same seed, same data, every run.
type FixtureSource struct{}

// NewFixtureSource creates the demo source.
func NewFixtureSource() *FixtureSource {
	return &FixtureSource{}
}

// LoadDocuments builds the fixture dataset.
func (s *FixtureSource) LoadDocuments(ctx context.Context) ([]ingest.Document, error) {
	rng := rand.New(rand.NewSource(fixtureSeed))

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours()/24) + 1

	docs := make([]ingest.Document, 0, fixtureCount)
	for i := 1; i <= fixtureCount; i++ {
		day := start.AddDate(0, 0, rng.Intn(days))
		clientID := 1 + rng.Intn(len(fixtureClients))

		docType := "FATURA"
		switch roll := rng.Float64(); {
		case roll >= 0.9:
			docType = "GUIA"
		case roll >= 0.6:
			docType = "RECIBO"
		}

		total := 50 + rng.Float64()*4950
		docs = append(docs, ingest.Document{
			DocID:      i,
			DocDate:    day.Format("2006-01-02"),
			ClientID:   clientID,
			ClientName: fixtureClients[clientID],
			DocType:    docType,
			Total:      float64(int(total*100)) / 100,
		})
	}
	return docs, nil
}

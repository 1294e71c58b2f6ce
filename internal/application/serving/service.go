// Package serving computes the read-only dashboard surface from published
// billing facts: top-card KPIs and the monthly revenue series. Pure
// aggregation over fact tables, no feedback into the pipeline.
package serving

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/domain/warehouse"
)

// DocumentReader reads the published billing facts.
type DocumentReader interface {
	ListFactDocuments(ctx context.Context) ([]warehouse.FactDocument, error)
}

// Filter narrows the document set. Zero values mean no filtering on that
// attribute.
type Filter struct {
	Year     int
	Month    int
	ClientID int
}

// KPIs are the dashboard top cards. Field tags keep the published names of
// the original reports.
type KPIs struct {
	TotalSales      float64 `json:"vendas_total"`
	DocumentCount   int     `json:"n_documentos"`
	DistinctClients int     `json:"n_clientes"`
	AverageTicket   float64 `json:"ticket_medio"`
}

// MonthlyRevenue is one point of the monthly series. GrowthPct is nil on the
// first month, where there is no previous value to compare against.
type MonthlyRevenue struct {
	Month     string   `json:"month"` // YYYY-MM
	Revenue   float64  `json:"vendas"`
	Documents int      `json:"documentos"`
	GrowthPct *float64 `json:"crescimento_pct,omitempty"`
}

// Service answers dashboard queries.
type Service struct {
	documents DocumentReader
	logger    *zap.Logger
}

// NewService creates a serving Service.
func NewService(documents DocumentReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{documents: documents, logger: logger}
}

// KPIs computes the top cards over the filtered documents. An empty set
// yields all-zero cards rather than an error.
func (s *Service) KPIs(ctx context.Context, filter Filter) (*KPIs, error) {
	docs, err := s.filtered(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &KPIs{}, nil
	}

	total := 0.0
	docIDs := make(map[int]bool, len(docs))
	clients := make(map[int]bool)
	for _, d := range docs {
		total += d.Total
		docIDs[d.DocID] = true
		clients[d.ClientID] = true
	}

	return &KPIs{
		TotalSales:      total,
		DocumentCount:   len(docIDs),
		DistinctClients: len(clients),
		AverageTicket:   total / float64(len(docs)),
	}, nil
}

// MonthlyRevenue computes the billing series grouped by year-month, sorted
// ascending, with month-over-month growth percentage.
func (s *Service) MonthlyRevenue(ctx context.Context, filter Filter) ([]MonthlyRevenue, error) {
	docs, err := s.filtered(ctx, filter)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		revenue float64
		docIDs  map[int]bool
	}
	byMonth := make(map[string]*bucket)
	for _, d := range docs {
		if d.YearMonth == "" {
			continue
		}
		b := byMonth[d.YearMonth]
		if b == nil {
			b = &bucket{docIDs: map[int]bool{}}
			byMonth[d.YearMonth] = b
		}
		b.revenue += d.Total
		b.docIDs[d.DocID] = true
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	series := make([]MonthlyRevenue, 0, len(months))
	for i, month := range months {
		b := byMonth[month]
		point := MonthlyRevenue{Month: month, Revenue: b.revenue, Documents: len(b.docIDs)}
		if i > 0 && series[i-1].Revenue != 0 {
			pct := (b.revenue - series[i-1].Revenue) / series[i-1].Revenue * 100.0
			point.GrowthPct = &pct
		}
		series = append(series, point)
	}
	return series, nil
}

func (s *Service) filtered(ctx context.Context, filter Filter) ([]warehouse.FactDocument, error) {
	docs, err := s.documents.ListFactDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fact_documents: %w", err)
	}

	kept := make([]warehouse.FactDocument, 0, len(docs))
	for _, d := range docs {
		year, month := splitYearMonth(d.YearMonth)
		if filter.Year != 0 && year != filter.Year {
			continue
		}
		if filter.Month != 0 && month != filter.Month {
			continue
		}
		if filter.ClientID != 0 && d.ClientID != filter.ClientID {
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

func splitYearMonth(ym string) (int, int) {
	if len(ym) != 7 || ym[4] != '-' {
		return 0, 0
	}
	year, err := strconv.Atoi(ym[:4])
	if err != nil {
		return 0, 0
	}
	month, err := strconv.Atoi(ym[5:])
	if err != nil {
		return 0, 0
	}
	return year, month
}

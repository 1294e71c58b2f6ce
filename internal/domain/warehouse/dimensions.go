package warehouse

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phc/analytics-backend/internal/domain/ingest"
)

// timestampLayouts are tried in order when parsing the opaque ISO-8601
// strings carried through the silver layer.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a silver-layer timestamp string.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// DateKey converts a timestamp to the integer YYYYMMDD dimension key.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// BuildDimCustomer builds dim_customer: one row per customer, surrogate key
// equal to the natural key. Empty input degrades to an empty row set.
func BuildDimCustomer(customers []ingest.Customer) []DimCustomer {
	dim := make([]DimCustomer, 0, len(customers))
	for _, c := range customers {
		dim = append(dim, DimCustomer{
			CustomerKey:          c.PrestashopCustomerID,
			PrestashopCustomerID: c.PrestashopCustomerID,
			Email:                c.Email,
			FullName:             displayName(c.FirstName, c.LastName),
			Active:               c.Active,
		})
	}
	return dim
}

// displayName concatenates first and last name, trimmed. Both blank yields
// an empty name rather than a placeholder.
func displayName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// BuildDimProduct builds dim_product: one row per product.
func BuildDimProduct(products []ingest.Product) []DimProduct {
	dim := make([]DimProduct, 0, len(products))
	for _, p := range products {
		dim = append(dim, DimProduct{
			ProductKey:          p.PrestashopProductID,
			PrestashopProductID: p.PrestashopProductID,
			SKU:                 p.SKU,
			Name:                p.Name,
			Active:              p.Active,
			Price:               p.Price,
		})
	}
	return dim
}

// BuildDimDate generates one row per calendar day over the inclusive
// [start, end] range. An inverted range degrades to an empty row set.
func BuildDimDate(start, end time.Time) []DimDate {
	start = truncateToDay(start)
	end = truncateToDay(end)

	dim := make([]DimDate, 0)
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		dim = append(dim, dateRow(current))
	}
	return dim
}

// BuildDimDateFromDocuments derives the date dimension from the distinct
// dates present in fact_documents.
func BuildDimDateFromDocuments(facts []FactDocument) []DimDate {
	seen := make(map[string]time.Time)
	for _, f := range facts {
		if f.DocDate == "" {
			continue
		}
		t, err := ParseTimestamp(f.DocDate)
		if err != nil {
			continue
		}
		seen[f.DocDate] = truncateToDay(t)
	}

	dates := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	dim := make([]DimDate, 0, len(dates))
	for _, t := range dates {
		dim = append(dim, dateRow(t))
	}
	return dim
}

// BuildDimClients builds dim_client from documents: one row per distinct
// client id, last name wins, sorted by id.
func BuildDimClients(docs []ingest.Document) []DimClient {
	byID := make(map[int]string)
	for _, d := range docs {
		if d.ClientID == 0 {
			continue
		}
		byID[d.ClientID] = strings.TrimSpace(d.ClientName)
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	dim := make([]DimClient, 0, len(ids))
	for _, id := range ids {
		dim = append(dim, DimClient{ClientID: id, ClientName: byID[id]})
	}
	return dim
}

func dateRow(t time.Time) DimDate {
	_, week := t.ISOWeek()
	// time.Weekday counts from Sunday; the warehouse convention is 0=Monday.
	weekday := (int(t.Weekday()) + 6) % 7
	return DimDate{
		Date:      t.Format("2006-01-02"),
		DateKey:   DateKey(t),
		Year:      t.Year(),
		Month:     int(t.Month()),
		MonthName: t.Month().String(),
		Day:       t.Day(),
		Week:      week,
		Quarter:   (int(t.Month())-1)/3 + 1,
		YearMonth: t.Format("2006-01"),
		Weekday:   weekday,
		IsWeekend: weekday >= 5,
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

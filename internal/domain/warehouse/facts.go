package warehouse

import (
	"fmt"

	"github.com/phc/analytics-backend/internal/domain/ingest"
	"github.com/phc/analytics-backend/internal/domain/shared"
)

// EnrichOrders builds fact_orders from normalized order headers, deriving the
// integer YYYYMMDD date key from created_at. Measures are carried through
// untouched. An order without created_at is a contract violation.
func EnrichOrders(orders []ingest.Order) ([]FactOrder, error) {
	facts := make([]FactOrder, 0, len(orders))

	for _, o := range orders {
		if o.CreatedAt == "" {
			return nil, fmt.Errorf("%w: order %d missing created_at", shared.ErrDataValidation, o.PrestashopOrderID)
		}
		t, err := ParseTimestamp(o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: order %d created_at: %v", shared.ErrDataValidation, o.PrestashopOrderID, err)
		}

		facts = append(facts, FactOrder{
			PrestashopOrderID:    o.PrestashopOrderID,
			PrestashopCustomerID: o.PrestashopCustomerID,
			Status:               o.Status,
			TotalPaid:            o.TotalPaid,
			OrderDateKey:         DateKey(t),
			CreatedAt:            o.CreatedAt,
			UpdatedAt:            o.UpdatedAt,
		})
	}

	return facts, nil
}

// EnrichOrderLines builds fact_order_lines by joining each line to its parent
// order, copying the parent's customer id and date key onto the line. A line
// referencing a nonexistent order is a hard integrity violation.
func EnrichOrderLines(lines []ingest.OrderLine, orders []FactOrder) ([]FactOrderLine, error) {
	byID := make(map[int]FactOrder, len(orders))
	for _, o := range orders {
		byID[o.PrestashopOrderID] = o
	}

	facts := make([]FactOrderLine, 0, len(lines))

	for _, line := range lines {
		parent, ok := byID[line.PrestashopOrderID]
		if !ok {
			return nil, fmt.Errorf("%w: order %d not found for order line", shared.ErrReferentialViolation, line.PrestashopOrderID)
		}

		facts = append(facts, FactOrderLine{
			PrestashopOrderID:    line.PrestashopOrderID,
			PrestashopProductID:  line.PrestashopProductID,
			PrestashopCustomerID: parent.PrestashopCustomerID,
			OrderDateKey:         parent.OrderDateKey,
			Quantity:             line.Quantity,
			UnitPrice:            line.UnitPrice,
			LineTotal:            line.LineTotal,
		})
	}

	return facts, nil
}

// BuildFactDocuments builds fact_documents: one row per document id, last row
// wins on duplicates, rows without a document id are dropped. An unparseable
// date is kept with a null doc_date so the quality gate reports it instead of
// the build silently repairing it.
func BuildFactDocuments(docs []ingest.Document) []FactDocument {
	byID := make(map[int]FactDocument, len(docs))
	order := make([]int, 0, len(docs))

	for _, d := range docs {
		if d.DocID == 0 {
			continue
		}

		fact := FactDocument{
			DocID:    d.DocID,
			ClientID: d.ClientID,
			DocType:  d.DocType,
			Total:    d.Total,
		}
		if t, err := ParseTimestamp(d.DocDate); err == nil {
			fact.DocDate = t.Format("2006-01-02")
			fact.YearMonth = t.Format("2006-01")
		}

		if _, seen := byID[d.DocID]; !seen {
			order = append(order, d.DocID)
		}
		byID[d.DocID] = fact
	}

	facts := make([]FactDocument, 0, len(order))
	for _, id := range order {
		facts = append(facts, byID[id])
	}
	return facts
}

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/domain/ingest"
	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/domain/warehouse"
)

// Watermark entity names. One watermark row per incremental entity.
const (
	EntityCustomers = "customers"
	EntityProducts  = "products"
	EntityOrders    = "orders"
)

// SourceClient fetches raw payloads from the commerce source system.
type SourceClient interface {
	GetCustomers(ctx context.Context) (any, error)
	GetProducts(ctx context.Context) (any, error)
	GetOrders(ctx context.Context) (any, error)
}

// DocumentSource loads billing documents for the fact_documents flow.
type DocumentSource interface {
	LoadDocuments(ctx context.Context) ([]ingest.Document, error)
}

// WarehouseRepository persists the layered warehouse model. Dimensions are
// full-snapshot replaced on every run; facts are upserted by natural key so
// at-least-once replay after a crash is harmless.
type WarehouseRepository interface {
	ArchiveRaw(ctx context.Context, batchID uuid.UUID, entity string, payload any) error

	ReplaceDimCustomers(ctx context.Context, rows []warehouse.DimCustomer) error
	ReplaceDimProducts(ctx context.Context, rows []warehouse.DimProduct) error
	ReplaceDimDates(ctx context.Context, rows []warehouse.DimDate) error
	ReplaceDimClients(ctx context.Context, rows []warehouse.DimClient) error

	UpsertFactOrders(ctx context.Context, rows []warehouse.FactOrder) error
	UpsertFactOrderLines(ctx context.Context, rows []warehouse.FactOrderLine) error
	UpsertFactDocuments(ctx context.Context, rows []warehouse.FactDocument) error

	ListFactOrderLines(ctx context.Context) ([]warehouse.FactOrderLine, error)
	ReplaceSalesByProduct(ctx context.Context, rows []warehouse.SalesByProduct) error
}

// TableSink mirrors published tables as files for inspection and sharing.
type TableSink interface {
	WriteTable(ctx context.Context, table Table) ([]WriteResult, error)
}

// WriteResult describes one file written by the sink. Path is the local
// file path; Key is the same file addressed relative to the output root,
// reused as the object key when publishing.
type WriteResult struct {
	Kind string `json:"kind"` // "csv" or "parquet"
	Path string `json:"path"`
	Key  string `json:"key"`
	Rows int    `json:"rows"`
}

// Publisher pushes written table files to an object store. Optional.
type Publisher interface {
	PublishFile(ctx context.Context, localPath, key string) error
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID            uuid.UUID               `json:"run_id"`
	StartedAt        time.Time               `json:"started_at"`
	Duration         time.Duration           `json:"duration"`
	CustomersLoaded  int                     `json:"customers_loaded"`
	CustomersSkipped int                     `json:"customers_skipped"`
	ProductsLoaded   int                     `json:"products_loaded"`
	OrdersLoaded     int                     `json:"orders_loaded"`
	OrderLinesLoaded int                     `json:"order_lines_loaded"`
	DocumentsLoaded  int                     `json:"documents_loaded"`
	QualityResults   []warehouse.CheckResult `json:"quality_results"`
	Written          []WriteResult           `json:"written"`
}

// Service runs the full warehouse load as one linear pass:
// extract, normalize, filter, model, quality-gate, aggregate, write.
// It is not safe to run two instances concurrently against the same
// watermark entities; the single-runner assumption is enforced externally.
type Service struct {
	source     SourceClient
	documents  DocumentSource
	watermarks warehouse.WatermarkStore
	repo       WarehouseRepository
	sink       TableSink
	publisher  Publisher
	partition  bool
	logger     *zap.Logger
}

// NewService creates a pipeline Service. publisher may be nil.
func NewService(
	source SourceClient,
	documents DocumentSource,
	watermarks warehouse.WatermarkStore,
	repo WarehouseRepository,
	sink TableSink,
	publisher Publisher,
	partitionFacts bool,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:     source,
		documents:  documents,
		watermarks: watermarks,
		repo:       repo,
		sink:       sink,
		publisher:  publisher,
		partition:  partitionFacts,
		logger:     logger,
	}
}

// Run executes one pipeline pass. Validation, referential and quality-gate
// errors are not caught here; they propagate to the caller, which reports
// failure and exits non-zero. The watermarks are only advanced after all
// outputs are durably written.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	result := &RunResult{RunID: uuid.New(), StartedAt: started}

	log := s.logger.With(zap.String("run_id", result.RunID.String()))
	log.Info("pipeline run started")

	// 1) Extract. Raw payloads are archived append-only before anything
	// can fail downstream.
	rawCustomers, err := s.source.GetCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract customers: %w", err)
	}
	rawProducts, err := s.source.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract products: %w", err)
	}
	rawOrders, err := s.source.GetOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract orders: %w", err)
	}
	for entity, payload := range map[string]any{
		EntityCustomers: rawCustomers,
		EntityProducts:  rawProducts,
		EntityOrders:    rawOrders,
	} {
		if err := s.repo.ArchiveRaw(ctx, result.RunID, entity, payload); err != nil {
			return nil, fmt.Errorf("archive raw %s: %w", entity, err)
		}
	}

	// 2) Normalize. Customers are lenient, the rest fail the batch.
	customers, skipped := ingest.NormalizeCustomers(rawCustomers)
	result.CustomersSkipped = skipped
	if skipped > 0 {
		log.Warn("skipped malformed customer records", zap.Int("skipped", skipped))
	}

	products, err := ingest.NormalizeProducts(rawProducts)
	if err != nil {
		return nil, err
	}
	orders, err := ingest.NormalizeOrders(rawOrders)
	if err != nil {
		return nil, err
	}
	lines, err := ingest.NormalizeOrderLines(rawOrders)
	if err != nil {
		return nil, err
	}

	// 3) Incremental filter per entity.
	customersBatch, customersWM, err := filterEntity(ctx, s.watermarks, s.logger, EntityCustomers, customers,
		func(c ingest.Customer) string { return c.UpdatedAt })
	if err != nil {
		return nil, err
	}
	productsBatch, productsWM, err := filterEntity(ctx, s.watermarks, s.logger, EntityProducts, products,
		func(p ingest.Product) string { return p.UpdatedAt })
	if err != nil {
		return nil, err
	}
	ordersBatch, ordersWM, err := filterEntity(ctx, s.watermarks, s.logger, EntityOrders, orders,
		func(o ingest.Order) string { return o.UpdatedAt })
	if err != nil {
		return nil, err
	}
	linesBatch := linesForOrders(lines, ordersBatch)

	// 4) Model. Dimensions rebuild from the full snapshot; facts come from
	// the incremental batch only.
	dimCustomer := warehouse.BuildDimCustomer(customers)
	dimProduct := warehouse.BuildDimProduct(products)

	factOrders, err := warehouse.EnrichOrders(ordersBatch)
	if err != nil {
		return nil, err
	}
	factLines, err := warehouse.EnrichOrderLines(linesBatch, factOrders)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.LoadDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	factDocuments := warehouse.BuildFactDocuments(docs)
	dimClients := warehouse.BuildDimClients(docs)
	dimDate := buildDimDate(factOrders, factDocuments)

	// 5) Quality gate. A failed gate blocks publishing: nothing below this
	// point runs on invalid facts.
	result.QualityResults = s.runQualityGates(factOrders, factLines, factDocuments)
	if !warehouse.GatePassed(result.QualityResults) {
		return result, fmt.Errorf("%w: %s", shared.ErrQualityGateFailed, gateDetails(result.QualityResults))
	}

	// 6) Write dimensions and facts.
	if err := s.writeWarehouse(ctx, dimCustomer, dimProduct, dimDate, dimClients, factOrders, factLines, factDocuments); err != nil {
		return nil, err
	}

	// 7) Aggregate: recomputed fully from the current facts, not maintained
	// incrementally.
	allLines, err := s.repo.ListFactOrderLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fact_order_lines: %w", err)
	}
	sales, err := warehouse.AggregateSalesByProduct(allLines, dimProduct)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceSalesByProduct(ctx, sales); err != nil {
		return nil, fmt.Errorf("write agg_sales_by_product: %w", err)
	}

	// 8) Mirror published tables to the file sink, then optionally to the
	// object store.
	written, err := s.exportTables(ctx, dimCustomer, dimProduct, dimDate, dimClients, factOrders, factLines, factDocuments, sales)
	if err != nil {
		return nil, err
	}
	result.Written = written

	// 9) Advance watermarks, strictly after outputs are durable. A crash
	// before this point replays the batch next run; the natural-key upserts
	// above make the replay idempotent.
	for entity, wm := range map[string]*string{
		EntityCustomers: customersWM,
		EntityProducts:  productsWM,
		EntityOrders:    ordersWM,
	} {
		if wm == nil {
			continue
		}
		if err := s.watermarks.Set(ctx, entity, *wm); err != nil {
			return nil, fmt.Errorf("set watermark %s: %w", entity, err)
		}
	}

	result.CustomersLoaded = len(customersBatch)
	result.ProductsLoaded = len(productsBatch)
	result.OrdersLoaded = len(factOrders)
	result.OrderLinesLoaded = len(factLines)
	result.DocumentsLoaded = len(factDocuments)
	result.Duration = time.Since(started)

	log.Info("pipeline run finished",
		zap.Int("customers", result.CustomersLoaded),
		zap.Int("products", result.ProductsLoaded),
		zap.Int("orders", result.OrdersLoaded),
		zap.Int("order_lines", result.OrderLinesLoaded),
		zap.Int("documents", result.DocumentsLoaded),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// filterEntity reads the stored watermark for the entity and applies the
// incremental filter. The returned watermark is persisted only after outputs
// are written; nil means the store had no row and the batch was empty.
func filterEntity[T any](
	ctx context.Context,
	store warehouse.WatermarkStore,
	logger *zap.Logger,
	entity string,
	records []T,
	field WatermarkField[T],
) ([]T, *string, error) {
	stored, err := store.Get(ctx, entity)
	if err != nil {
		return nil, nil, fmt.Errorf("get watermark %s: %w", entity, err)
	}
	var wm *string
	if stored != nil {
		wm = &stored.WatermarkTS
	}

	filtered, next, err := FilterIncremental(records, wm, "updated_at", field)
	if err != nil {
		return nil, nil, fmt.Errorf("incremental filter %s: %w", entity, err)
	}
	logger.Debug("incremental filter",
		zap.String("entity", entity),
		zap.Int("input", len(records)),
		zap.Int("kept", len(filtered)),
	)
	return filtered, next, nil
}

func (s *Service) runQualityGates(
	factOrders []warehouse.FactOrder,
	factLines []warehouse.FactOrderLine,
	factDocuments []warehouse.FactDocument,
) []warehouse.CheckResult {
	results := warehouse.RunQualityGateFactDocuments(factDocuments)

	orderRows := make([]warehouse.Row, 0, len(factOrders))
	for _, f := range factOrders {
		orderRows = append(orderRows, warehouse.Row{"prestashop_order_id": f.PrestashopOrderID})
	}
	results = append(results, warehouse.CheckGrainUnique(orderRows, []string{"prestashop_order_id"}))

	lineRows := make([]warehouse.Row, 0, len(factLines))
	for _, f := range factLines {
		lineRows = append(lineRows, warehouse.Row{
			"prestashop_order_id":   f.PrestashopOrderID,
			"prestashop_product_id": f.PrestashopProductID,
		})
	}
	results = append(results, warehouse.CheckGrainUnique(lineRows, []string{"prestashop_order_id", "prestashop_product_id"}))

	return results
}

func (s *Service) writeWarehouse(
	ctx context.Context,
	dimCustomer []warehouse.DimCustomer,
	dimProduct []warehouse.DimProduct,
	dimDate []warehouse.DimDate,
	dimClients []warehouse.DimClient,
	factOrders []warehouse.FactOrder,
	factLines []warehouse.FactOrderLine,
	factDocuments []warehouse.FactDocument,
) error {
	if err := s.repo.ReplaceDimCustomers(ctx, dimCustomer); err != nil {
		return fmt.Errorf("write dim_customer: %w", err)
	}
	if err := s.repo.ReplaceDimProducts(ctx, dimProduct); err != nil {
		return fmt.Errorf("write dim_product: %w", err)
	}
	if err := s.repo.ReplaceDimDates(ctx, dimDate); err != nil {
		return fmt.Errorf("write dim_date: %w", err)
	}
	if err := s.repo.ReplaceDimClients(ctx, dimClients); err != nil {
		return fmt.Errorf("write dim_clients: %w", err)
	}
	if err := s.repo.UpsertFactOrders(ctx, factOrders); err != nil {
		return fmt.Errorf("write fact_orders: %w", err)
	}
	if err := s.repo.UpsertFactOrderLines(ctx, factLines); err != nil {
		return fmt.Errorf("write fact_order_lines: %w", err)
	}
	if err := s.repo.UpsertFactDocuments(ctx, factDocuments); err != nil {
		return fmt.Errorf("write fact_documents: %w", err)
	}
	return nil
}

func (s *Service) exportTables(
	ctx context.Context,
	dimCustomer []warehouse.DimCustomer,
	dimProduct []warehouse.DimProduct,
	dimDate []warehouse.DimDate,
	dimClients []warehouse.DimClient,
	factOrders []warehouse.FactOrder,
	factLines []warehouse.FactOrderLine,
	factDocuments []warehouse.FactDocument,
	sales []warehouse.SalesByProduct,
) ([]WriteResult, error) {
	tables := []Table{
		dimCustomerTable(dimCustomer),
		dimProductTable(dimProduct),
		dimDateTable(dimDate),
		dimClientTable(dimClients),
		factOrdersTable(factOrders),
		factOrderLinesTable(factLines),
		factDocumentsTable(factDocuments, s.partition),
		salesByProductTable(sales),
	}

	written := make([]WriteResult, 0, len(tables))
	for _, table := range tables {
		results, err := s.sink.WriteTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", table.Name, err)
		}
		written = append(written, results...)
	}

	if s.publisher != nil {
		for _, w := range written {
			if err := s.publisher.PublishFile(ctx, w.Path, w.Key); err != nil {
				return nil, fmt.Errorf("publish %s: %w", w.Path, err)
			}
		}
	}
	return written, nil
}

// linesForOrders keeps only the lines whose parent order survived the
// incremental filter.
func linesForOrders(lines []ingest.OrderLine, orders []ingest.Order) []ingest.OrderLine {
	keep := make(map[int]bool, len(orders))
	for _, o := range orders {
		keep[o.PrestashopOrderID] = true
	}
	kept := make([]ingest.OrderLine, 0, len(lines))
	for _, line := range lines {
		if keep[line.PrestashopOrderID] {
			kept = append(kept, line)
		}
	}
	return kept
}

// buildDimDate unions the calendar days needed by both fact flows: the
// inclusive range spanned by order dates plus the distinct document dates.
func buildDimDate(factOrders []warehouse.FactOrder, factDocuments []warehouse.FactDocument) []warehouse.DimDate {
	byKey := make(map[int]warehouse.DimDate)

	var minT, maxT time.Time
	for _, f := range factOrders {
		t, err := warehouse.ParseTimestamp(f.CreatedAt)
		if err != nil {
			continue
		}
		if minT.IsZero() || t.Before(minT) {
			minT = t
		}
		if maxT.IsZero() || t.After(maxT) {
			maxT = t
		}
	}
	if !minT.IsZero() {
		for _, row := range warehouse.BuildDimDate(minT, maxT) {
			byKey[row.DateKey] = row
		}
	}
	for _, row := range warehouse.BuildDimDateFromDocuments(factDocuments) {
		byKey[row.DateKey] = row
	}

	keys := make([]int, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	dim := make([]warehouse.DimDate, 0, len(keys))
	for _, key := range keys {
		dim = append(dim, byKey[key])
	}
	return dim
}

func gateDetails(results []warehouse.CheckResult) string {
	details := ""
	for _, r := range results {
		if r.OK {
			continue
		}
		if details != "" {
			details += "; "
		}
		details += r.Name + ": " + r.Details
	}
	return details
}


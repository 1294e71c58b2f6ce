package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/application/pipeline"
	"github.com/phc/analytics-backend/internal/application/sync"
	"github.com/phc/analytics-backend/internal/domain/ingest"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
	"github.com/phc/analytics-backend/internal/infrastructure/logger"
	"github.com/phc/analytics-backend/internal/infrastructure/odoo"
	"github.com/phc/analytics-backend/internal/infrastructure/prestashop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CRM sync",
		zap.String("app", cfg.App.Name),
		zap.Bool("mock_source", cfg.Prestashop.UseMock),
		zap.Bool("fake_crm", cfg.Odoo.UseFake),
	)

	var source pipeline.SourceClient
	if cfg.Prestashop.UseMock {
		source = prestashop.NewMockClient()
	} else {
		source, err = prestashop.NewClient(cfg.Prestashop)
		if err != nil {
			log.Fatal("Failed to create source client", zap.Error(err))
		}
	}

	var crm sync.CRMClient
	if cfg.Odoo.UseFake {
		crm = odoo.NewInMemoryClient()
	} else {
		crm, err = odoo.NewClient(cfg.Odoo)
		if err != nil {
			log.Fatal("Failed to create CRM client", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	customers, products, orders, lines, err := extract(ctx, source)
	if err != nil {
		log.Fatal("Extract failed", zap.Error(err))
	}

	result, err := sync.NewService(crm, log).Run(ctx, customers, products, orders, lines)
	if err != nil {
		log.Fatal("CRM sync failed", zap.Error(err))
	}

	log.Info("CRM sync completed",
		zap.Int("customers_created", result.Customers.Created),
		zap.Int("customers_updated", result.Customers.Updated),
		zap.Int("products_created", result.Products.Created),
		zap.Int("products_updated", result.Products.Updated),
		zap.Int("orders_created", result.Orders.OrdersCreated),
		zap.Int("orders_updated", result.Orders.OrdersUpdated),
		zap.Int("lines_created", result.Orders.LinesCreated),
	)
}

// extract pulls the current snapshot from the source and normalizes it.
func extract(ctx context.Context, source pipeline.SourceClient) ([]ingest.Customer, []ingest.Product, []ingest.Order, []ingest.OrderLine, error) {
	rawCustomers, err := source.GetCustomers(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	customers, _ := ingest.NormalizeCustomers(rawCustomers)

	rawProducts, err := source.GetProducts(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	products, err := ingest.NormalizeProducts(rawProducts)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	rawOrders, err := source.GetOrders(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	orders, err := ingest.NormalizeOrders(rawOrders)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	lines, err := ingest.NormalizeOrderLines(rawOrders)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return customers, products, orders, lines, nil
}

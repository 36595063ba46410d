// Package main provides a CLI tool for seeding the document store with demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/app"
	"coffeetrace/internal/config"
	appctx "coffeetrace/internal/core/context"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/contract"
	"coffeetrace/internal/domain/documents/dispatch"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/threshing"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "path to an env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "seed", Roles: []string{appctx.RoleSupervisor}})

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open document store", "error", err)
	}
	defer func() { _ = backend.Close(context.Background()) }()

	services, err := app.NewServices(backend, app.Options{})
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	if err := seedDemoData(ctx, services, log); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}
	log.Info("seed completed")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedDemoData walks one lot of coffee through every settlement.
func seedDemoData(ctx context.Context, svc *app.Services, log *logger.Logger) error {
	rec, err := svc.Receipts.Create(ctx, receipt.CreateRequest{
		Supplier:      "Cooperativa San Miguel",
		Bultos:        dec("120"),
		KgPerBulto:    dec("46"),
		PriceUnit:     calc.UnitQuintal46Kg,
		Fixation:      dec("185"),
		Differential:  dec("12"),
		FirstPercent:  dec("80"),
		RejectPercent: dec("10"),
	})
	if err != nil {
		return fmt.Errorf("receipt: %w", err)
	}
	log.Infow("receipt created", "number", rec.Number, "net_weight", rec.NetWeight)

	lot, err := svc.Lots.Create(ctx, contract.CreateRequest{
		Contract:     "EXP-2024-07",
		Client:       "Nordic Roasters AB",
		LotNumber:    "L-01",
		WeightQQ:     dec("40"),
		Fixation:     dec("190"),
		Differential: dec("15"),
	})
	if err != nil {
		return fmt.Errorf("contract lot: %w", err)
	}

	order, err := svc.Threshing.Create(ctx, threshing.Request{
		Kind:   threshing.KindExport,
		LotIDs: []string{lot.ID},
		Inputs: []threshing.InputRequest{
			{SourceKind: reconcile.KindReceipt, SourceID: rec.ID, Amount: dec("60")},
		},
	})
	if err != nil {
		return fmt.Errorf("threshing order: %w", err)
	}
	log.Infow("threshing order created", "number", order.Number, "primeras", order.Primeras)

	run, err := svc.Runs.Create(ctx, yield.CreateRunRequest{
		Kind:        yield.RunYield,
		Description: "Rendimiento " + order.Number,
		Vignettes: []yield.VignetteSpec{
			{Type: "Primera", Weight: dec("25")},
			{Type: "Primera", Weight: dec("23")},
			{Type: "Segunda", Weight: dec("6")},
		},
	})
	if err != nil {
		return fmt.Errorf("yield run: %w", err)
	}

	b, err := svc.Blends.Create(ctx, blend.Request{
		TypeLabel: "Europa",
		Components: []blend.ComponentInput{
			{VignetteID: run.Vignettes[0].ID, Weight: dec("25")},
			{VignetteID: run.Vignettes[1].ID, Weight: dec("15")},
		},
	})
	if err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	log.Infow("blend created", "number", b.Number, "total", b.TotalInput)

	d, err := svc.Dispatches.Create(ctx, dispatch.Request{
		Mode:   dispatch.ModeShipment,
		Client: "Nordic Roasters AB",
		Rows: []dispatch.RowRequest{
			{SourceID: b.ID, Weight: dec("20"), Yute: 20},
		},
	})
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	log.Infow("dispatch created", "number", d.Number, "gross", d.Gross)

	return nil
}

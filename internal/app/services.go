package app

import (
	"fmt"

	"coffeetrace/internal/config"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/contract"
	"coffeetrace/internal/domain/documents/dispatch"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/threshing"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/printout"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/internal/domain/reports"
	"coffeetrace/internal/infrastructure/numerator"
	"coffeetrace/pkg/clients/renderer"
)

// Options tune the services beyond the backend.
type Options struct {
	MissingSource reconcile.MissingSourcePolicy
	Printer       printout.Printer
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := reconcile.ParseMissingSourcePolicy(cfg.Reconcile.MissingSource)
	if err != nil {
		return Options{}, err
	}
	opts := Options{MissingSource: policy, Printer: printout.Nop{}}
	if cfg.Renderer.URL != "" {
		opts.Printer = printout.NewRendererPrinter(renderer.NewClient(cfg.Renderer))
	}
	return opts, nil
}

// Services holds every settlement service over one backend.
type Services struct {
	Receipts   *receipt.Service
	Runs       *yield.Service
	Lots       *contract.Service
	Threshing  *threshing.Service
	Blends     *blend.Service
	Dispatches *dispatch.Service
	Activity   *activity.Log
	Reports    *reports.Service
	Numerator  *numerator.Service
}

// NewServices builds the services. Every reconciling service shares the
// backend's transaction manager and the vignette index.
func NewServices(b *Backend, opts Options) (*Services, error) {
	log, err := activity.NewLog(b.Store)
	if err != nil {
		return nil, fmt.Errorf("activity log: %w", err)
	}
	num := numerator.New(b.Store)

	receiptRepo := receipt.NewRepository(b.Store)
	runRepo := yield.NewRepository(b.Store)
	index := yield.NewIndex(runRepo, b.Store)
	lotRepo := contract.NewRepository(b.Store)
	blendRepo := blend.NewRepository(b.Store)
	threshingRepo := threshing.NewRepository(b.Store)
	dispatchRepo := dispatch.NewRepository(b.Store)

	lots := contract.NewService(lotRepo, b.TxManager)

	return &Services{
		Receipts: receipt.NewService(receiptRepo, num, b.TxManager, log, opts.Printer),
		Runs:     yield.NewService(runRepo, index, b.TxManager, log),
		Lots:     lots,
		Threshing: threshing.NewService(threshing.ServiceConfig{
			Repo: threshingRepo,
			Lots: lots,
			Sources: []reconcile.SourceAdapter{
				receipt.NewThreshedSource(receiptRepo),
				yield.NewThreshingSource(runRepo, index),
				blend.NewSource(blendRepo),
			},
			Policy:    opts.MissingSource,
			Numerator: num,
			TxManager: b.TxManager,
			Activity:  log,
			Printer:   opts.Printer,
		}),
		Blends: blend.NewService(blend.ServiceConfig{
			Repo:      blendRepo,
			Vignettes: yield.NewBlendSource(runRepo, index),
			Policy:    opts.MissingSource,
			Numerator: num,
			TxManager: b.TxManager,
			Activity:  log,
			Printer:   opts.Printer,
		}),
		Dispatches: dispatch.NewService(dispatch.ServiceConfig{
			Repo:      dispatchRepo,
			Blends:    blend.NewSource(blendRepo),
			Receipts:  receipt.NewReturnedSource(receiptRepo),
			Policy:    opts.MissingSource,
			Numerator: num,
			TxManager: b.TxManager,
			Activity:  log,
			Printer:   opts.Printer,
		}),
		Activity:  log,
		Reports:   reports.NewService(reports.NewRepository(receiptRepo, blendRepo, runRepo)),
		Numerator: num,
	}, nil
}

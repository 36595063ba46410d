// Package scheduler runs the periodic integrity audit.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"coffeetrace/internal/config"
	appctx "coffeetrace/internal/core/context"
	"coffeetrace/internal/domain/reports"
	"coffeetrace/pkg/logger"
)

// jobTimeout bounds one audit run.
const jobTimeout = 5 * time.Minute

// Auditor produces the integrity report.
type Auditor interface {
	Integrity(ctx context.Context) (*reports.IntegrityReport, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	auditor Auditor
	spec    string
	log     *logger.Logger
}

// New creates a scheduler from the reporting configuration.
func New(cfg config.ReportingConfig, auditor Auditor, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		auditor: auditor,
		spec:    cfg.IntegrityCron,
		log:     log.WithComponent("scheduler"),
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runIntegrity); err != nil {
		return fmt.Errorf("schedule integrity audit %q: %w", s.spec, err)
	}
	s.log.Infow("starting scheduler", "integrity_cron", s.spec)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runIntegrity() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	if _, err := RunIntegrity(ctx, s.auditor); err != nil {
		s.log.WithContext(ctx).Errorw("integrity audit failed", "error", err)
	}
}

// RunIntegrity runs one audit and logs its outcome.
func RunIntegrity(ctx context.Context, auditor Auditor) (*reports.IntegrityReport, error) {
	report, err := auditor.Integrity(ctx)
	if err != nil {
		return nil, err
	}
	if report.OK() {
		logger.Info(ctx, "integrity audit passed", "checked", report.Checked)
	} else {
		logger.Warn(ctx, "integrity audit found violations",
			"checked", report.Checked,
			"violations", len(report.Violations),
		)
	}
	return report, nil
}

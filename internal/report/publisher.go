package report

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/metrics"
)

//go:generate mockgen -source=publisher.go -destination=mocks/mock_store.go -package=mocks

// ReportStore persists finalized reports.
type ReportStore interface {
	Save(ctx context.Context, r *Report) error
}

// Publisher delivers a finalized report to every configured output.
// Output failures are warnings: they are logged, counted and returned, but
// never prevent the remaining outputs from being written.
type Publisher struct {
	console    io.Writer
	outputPath string
	store      ReportStore
	metrics    metrics.Recorder
	logger     *logging.Logger
}

// NewPublisher creates a publisher. A nil console skips the table, an empty
// outputPath skips the JSON file and a nil store skips persistence.
func NewPublisher(console io.Writer, outputPath string, store ReportStore,
	recorder metrics.Recorder, logger *logging.Logger) *Publisher {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Publisher{
		console:    console,
		outputPath: outputPath,
		store:      store,
		metrics:    recorder,
		logger:     logger.WithComponent("report"),
	}
}

// Publish renders, writes and stores r.
func (p *Publisher) Publish(ctx context.Context, r *Report) error {
	logger := p.logger.WithScanID(r.Stats.ScanID)
	var errs []error

	if p.console != nil {
		if err := r.RenderTable(p.console); err != nil {
			errs = append(errs, fmt.Errorf("console: %w", err))
		}
	}

	if p.outputPath != "" {
		if err := r.WriteJSON(p.outputPath); err != nil {
			p.metrics.IncrementReportWrites("file", "error")
			logger.Warn("Failed to write report", "path", p.outputPath, "error", err)
			errs = append(errs, err)
		} else {
			p.metrics.IncrementReportWrites("file", "success")
			logger.Info("Report written", "path", p.outputPath)
		}
	}

	if p.store != nil {
		if err := p.store.Save(ctx, r); err != nil {
			p.metrics.IncrementReportWrites("database", "error")
			logger.Warn("Failed to store report", "error", err)
			errs = append(errs, err)
		} else {
			p.metrics.IncrementReportWrites("database", "success")
			logger.Info("Report stored")
		}
	}

	return stderrors.Join(errs...)
}

package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/anstrom/skim/internal/logging"
	"github.com/anstrom/skim/internal/report"
)

// ReportRepository stores finalized reports.
type ReportRepository struct {
	db     *DB
	logger *logging.Logger
}

var _ report.ReportStore = (*ReportRepository)(nil)

// NewReportRepository creates a new report repository.
func NewReportRepository(db *DB, logger *logging.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger.WithComponent("repository")}
}

// Save inserts the run and every port result in one transaction.
func (r *ReportRepository) Save(ctx context.Context, rep *report.Report) error {
	run, results := rowsFromReport(rep)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return sanitizeDBError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	runQuery := `
		INSERT INTO scan_runs (
			id, target, address, total_ports, open_ports,
			started_at, finished_at, duration_seconds
		)
		VALUES (
			:id, :target, :address, :total_ports, :open_ports,
			:started_at, :finished_at, :duration_seconds
		)`

	if _, err := tx.NamedExecContext(ctx, runQuery, run); err != nil {
		return sanitizeDBError("create scan run", err)
	}

	resultQuery := `
		INSERT INTO port_results (
			scan_id, port, protocol, is_open, banner, service, response_time_seconds,
			tls_version, tls_cipher, cert_subject, cert_issuer, cert_not_before, cert_not_after
		)
		VALUES (
			:scan_id, :port, :protocol, :is_open, :banner, :service, :response_time_seconds,
			:tls_version, :tls_cipher, :cert_subject, :cert_issuer, :cert_not_before, :cert_not_after
		)`

	for i := range results {
		if _, err := tx.NamedExecContext(ctx, resultQuery, results[i]); err != nil {
			return sanitizeDBError("create port result", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return sanitizeDBError("commit transaction", err)
	}

	r.logger.InfoDatabase("Stored scan report",
		"scan_id", run.ID.String(), "target", run.Target, "results", len(results))
	return nil
}

// ListRuns returns the most recent runs for target, newest first.
func (r *ReportRepository) ListRuns(ctx context.Context, target string, limit int) ([]ScanRun, error) {
	query := `
		SELECT id, target, address, total_ports, open_ports,
		       started_at, finished_at, duration_seconds, created_at
		FROM scan_runs
		WHERE target = $1
		ORDER BY started_at DESC
		LIMIT $2`

	var runs []ScanRun
	if err := r.db.SelectContext(ctx, &runs, query, target, limit); err != nil {
		return nil, sanitizeDBError("list scan runs", err)
	}
	return runs, nil
}

// OpenPorts returns the open port results recorded for scanID, in port order.
func (r *ReportRepository) OpenPorts(ctx context.Context, scanID uuid.UUID) ([]PortResult, error) {
	query := `
		SELECT scan_id, port, protocol, is_open, banner, service, response_time_seconds,
		       tls_version, tls_cipher, cert_subject, cert_issuer, cert_not_before, cert_not_after
		FROM port_results
		WHERE scan_id = $1 AND is_open
		ORDER BY port`

	var results []PortResult
	if err := r.db.SelectContext(ctx, &results, query, scanID); err != nil {
		return nil, sanitizeDBError("list open ports", err)
	}
	return results, nil
}

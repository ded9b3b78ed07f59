package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/migration"
)

// RecordRun appends a run to the migration ledger.
// Uses ON CONFLICT(run_id) DO NOTHING for idempotency.
func (s *Store) RecordRun(ctx context.Context, run migration.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_runs
		(run_id, migration_id, deployment, rules_hash, assets, resolved, unresolved, changed, unchanged, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		run.RunID,
		run.MigrationID,
		run.Deployment,
		run.RulesHash,
		run.Assets,
		run.Resolved,
		run.Unresolved,
		run.Changed,
		run.Unchanged,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run of migrationID.
func (s *Store) LastRun(ctx context.Context, migrationID string) (migration.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, run_id, migration_id, deployment, rules_hash, assets, resolved, unresolved, changed, unchanged
		FROM migration_runs
		WHERE migration_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, migrationID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return migration.Run{}, false, nil
	}
	if err != nil {
		return migration.Run{}, false, fmt.Errorf("last run: %w", err)
	}
	return run, true, nil
}

// ListRuns returns every recorded run of migrationID, oldest first.
func (s *Store) ListRuns(ctx context.Context, migrationID string) ([]migration.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, migration_id, deployment, rules_hash, assets, resolved, unresolved, changed, unchanged
		FROM migration_runs
		WHERE migration_id = ?
		ORDER BY seq ASC
	`, migrationID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []migration.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (migration.Run, error) {
	var run migration.Run
	err := row.Scan(
		&run.Seq,
		&run.RunID,
		&run.MigrationID,
		&run.Deployment,
		&run.RulesHash,
		&run.Assets,
		&run.Resolved,
		&run.Unresolved,
		&run.Changed,
		&run.Unchanged,
	)
	return run, err
}

package migration

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// ApplyReport summarizes one Apply run.
type ApplyReport struct {
	RunID       string `json:"run_id"`
	MigrationID string `json:"migration_id"`
	Deployment  string `json:"deployment"`
	RulesHash   string `json:"rules_hash"`
	Assets      int    `json:"assets"`
	Resolved    int    `json:"resolved"`
	Unresolved  int    `json:"unresolved"`
	Changed     int    `json:"changed"`
	Unchanged   int    `json:"unchanged"`
	// UnresolvedAssets lists the assets stored with an empty record list,
	// in key order.
	UnresolvedAssets []string `json:"unresolved_assets"`
}

type keyedAsset struct {
	key   string
	asset location.Location
}

// Apply resolves every registered asset and replaces its stored records.
// Assets are processed in storage key order. Entries whose canonical bytes
// already match are not rewritten, so a repeated run is a no-op.
func (m *Migration) Apply(ctx context.Context) (ApplyReport, error) {
	start := time.Now()
	report, err := m.apply(ctx)
	if m.metrics != nil {
		m.metrics.observeApply(m.id, report, err, time.Since(start))
	}
	return report, err
}

func (m *Migration) apply(ctx context.Context) (ApplyReport, error) {
	table := m.resolver.Table()
	report := ApplyReport{
		MigrationID:      m.id,
		Deployment:       table.Deployment,
		RulesHash:        m.rulesHash,
		UnresolvedAssets: []string{},
	}

	assets, err := m.sortedAssets(ctx)
	if err != nil {
		return report, err
	}
	report.Assets = len(assets)
	m.logger.Info("Applying reserve migration",
		zap.Int("assets", len(assets)),
		zap.String("rules_hash", m.rulesHash))

	for _, ka := range assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		records := m.resolver.ReservesFor(ka.asset)
		if len(records) == 0 {
			report.Unresolved++
			report.UnresolvedAssets = append(report.UnresolvedAssets, ka.asset.String())
			m.logger.Info("Asset has no reserve under current rules",
				zap.String("asset_key", ka.key),
				zap.Stringer("asset", ka.asset))
		} else {
			report.Resolved++
		}

		stored, ok, err := m.store.GetReserves(ctx, ka.asset)
		if err != nil {
			return report, assetStorageError("get reserves", ka.asset, err)
		}
		if ok && reserve.RecordsEqual(stored, records) {
			report.Unchanged++
			continue
		}

		if err := m.store.PutReserves(ctx, ka.asset, records); err != nil {
			return report, assetStorageError("put reserves", ka.asset, err)
		}
		report.Changed++
		m.logger.Debug("Replaced reserve records",
			zap.String("asset_key", ka.key),
			zap.Bool("existed", ok),
			zap.Int("records", len(records)))
	}

	runID, err := m.newRunID()
	if err != nil {
		return report, err
	}
	report.RunID = runID

	if m.ledger != nil {
		run := Run{
			RunID:       runID,
			MigrationID: m.id,
			Deployment:  table.Deployment,
			RulesHash:   m.rulesHash,
			Assets:      report.Assets,
			Resolved:    report.Resolved,
			Unresolved:  report.Unresolved,
			Changed:     report.Changed,
			Unchanged:   report.Unchanged,
		}
		if err := m.ledger.RecordRun(ctx, run); err != nil {
			return report, &StorageError{Op: "record run", Err: err}
		}
	}

	m.logger.Info("Reserve migration applied",
		zap.String("run_id", runID),
		zap.Int("resolved", report.Resolved),
		zap.Int("unresolved", report.Unresolved),
		zap.Int("changed", report.Changed),
		zap.Int("unchanged", report.Unchanged),
		zap.String("engine_version", ir.EngineVersion))
	return report, nil
}

// sortedAssets enumerates the registry in storage key order, dropping
// duplicate entries.
func (m *Migration) sortedAssets(ctx context.Context) ([]keyedAsset, error) {
	assets, err := m.registry.ForeignAssets(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list foreign assets", Err: err}
	}

	keyed := make([]keyedAsset, 0, len(assets))
	for _, asset := range assets {
		key, err := asset.Key()
		if err != nil {
			return nil, assetStorageError("encode asset key", asset, err)
		}
		keyed = append(keyed, keyedAsset{key: key, asset: asset})
	}

	slices.SortFunc(keyed, func(a, b keyedAsset) int {
		return strings.Compare(a.key, b.key)
	})
	return slices.CompactFunc(keyed, func(a, b keyedAsset) bool {
		return a.key == b.key
	}), nil
}

package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/reserve"
)

// Mode selects how a check judges mismatches.
type Mode string

const (
	// ModePreUpgrade reports the changes Apply would make. Mismatches are
	// expected and do not fail the check.
	ModePreUpgrade Mode = "pre"
	// ModePostUpgrade verifies an applied migration. Any mismatch fails.
	ModePostUpgrade Mode = "post"
)

// ParseMode converts a CLI string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePreUpgrade, ModePostUpgrade:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown check mode %q (expected pre or post)", s)
	}
}

// Status is the per-asset outcome of a check.
type Status string

const (
	StatusMatch   Status = "match"
	StatusDiffers Status = "differs"
	StatusMissing Status = "missing"
)

// CheckEntry compares one asset's stored records with freshly resolved ones.
type CheckEntry struct {
	AssetKey string           `json:"asset_key"`
	Asset    string           `json:"asset"`
	Status   Status           `json:"status"`
	Expected []reserve.Record `json:"-"`
	Stored   []reserve.Record `json:"-"`
}

// CheckReport is the structured verdict of a check. A mismatch is a
// diagnostic, not an error.
type CheckReport struct {
	Mode        Mode         `json:"mode"`
	MigrationID string       `json:"migration_id"`
	RulesHash   string       `json:"rules_hash"`
	Entries     []CheckEntry `json:"entries"`
	Matched     int          `json:"matched"`
	Differs     int          `json:"differs"`
	Missing     int          `json:"missing"`
}

// Mismatches returns the number of assets whose stored records disagree
// with the rule table.
func (r CheckReport) Mismatches() int {
	return r.Differs + r.Missing
}

// Passed reports the verdict. A pre-upgrade check always passes; a
// post-upgrade check passes only when every asset matches.
func (r CheckReport) Passed() bool {
	if r.Mode == ModePreUpgrade {
		return true
	}
	return r.Mismatches() == 0
}

// Check compares stored records with freshly resolved ones without writing.
// Only storage failures are returned as errors.
func (m *Migration) Check(ctx context.Context, mode Mode) (CheckReport, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return CheckReport{}, err
	}

	report := CheckReport{
		Mode:        mode,
		MigrationID: m.id,
		RulesHash:   m.rulesHash,
		Entries:     []CheckEntry{},
	}

	assets, err := m.sortedAssets(ctx)
	if err != nil {
		return report, err
	}

	for _, ka := range assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		expected := m.resolver.ReservesFor(ka.asset)
		stored, ok, err := m.store.GetReserves(ctx, ka.asset)
		if err != nil {
			return report, assetStorageError("get reserves", ka.asset, err)
		}

		entry := CheckEntry{
			AssetKey: ka.key,
			Asset:    ka.asset.String(),
			Expected: expected,
			Stored:   stored,
		}
		switch {
		case !ok:
			entry.Status = StatusMissing
			report.Missing++
		case !reserve.RecordsEqual(stored, expected):
			entry.Status = StatusDiffers
			report.Differs++
		default:
			entry.Status = StatusMatch
			report.Matched++
		}
		if entry.Status != StatusMatch {
			m.logger.Info("Reserve records disagree with rule table",
				zap.String("mode", string(mode)),
				zap.String("asset_key", ka.key),
				zap.String("status", string(entry.Status)))
		}
		report.Entries = append(report.Entries, entry)
	}

	if m.metrics != nil {
		m.metrics.observeCheck(m.id, report)
	}
	m.logger.Info("Reserve check finished",
		zap.String("mode", string(mode)),
		zap.Int("matched", report.Matched),
		zap.Int("differs", report.Differs),
		zap.Int("missing", report.Missing),
		zap.Bool("passed", report.Passed()))
	return report, nil
}

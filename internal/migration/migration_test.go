package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/xcmreserve/internal/deployment"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
	"github.com/roach88/xcmreserve/internal/testutil"
)

// memStore is an in-memory Registry, ReserveStore and Ledger.
type memStore struct {
	assets  []location.Location
	records map[string][]byte
	runs    []Run
	puts    int

	failList error
	failGet  error
	failPut  error
	failRun  error
}

func newMemStore(assets ...location.Location) *memStore {
	return &memStore{assets: assets, records: map[string][]byte{}}
}

func (s *memStore) ForeignAssets(context.Context) ([]location.Location, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	return s.assets, nil
}

func (s *memStore) GetReserves(_ context.Context, asset location.Location) ([]reserve.Record, bool, error) {
	if s.failGet != nil {
		return nil, false, s.failGet
	}
	key, err := asset.Key()
	if err != nil {
		return nil, false, err
	}
	data, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	records, err := reserve.DecodeRecords(data)
	return records, true, err
}

func (s *memStore) PutReserves(_ context.Context, asset location.Location, records []reserve.Record) error {
	if s.failPut != nil {
		return s.failPut
	}
	key, err := asset.Key()
	if err != nil {
		return err
	}
	data, err := reserve.EncodeRecords(records)
	if err != nil {
		return err
	}
	s.records[key] = data
	s.puts++
	return nil
}

func (s *memStore) RecordRun(_ context.Context, run Run) error {
	if s.failRun != nil {
		return s.failRun
	}
	run.Seq = int64(len(s.runs) + 1)
	s.runs = append(s.runs, run)
	return nil
}

func (s *memStore) LastRun(_ context.Context, migrationID string) (Run, bool, error) {
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].MigrationID == migrationID {
			return s.runs[i], true, nil
		}
	}
	return Run{}, false, nil
}

func (s *memStore) raw(t *testing.T, asset location.Location) []byte {
	t.Helper()
	key, err := asset.Key()
	require.NoError(t, err)
	return s.records[key]
}

var (
	siblingAsset = location.New(1, location.Parachain{ID: 2000})
	kusamaAsset  = location.New(2,
		location.GlobalConsensus{Network: location.Kusama{}},
		location.Parachain{ID: 1000},
		location.GeneralIndex{Index: 42})
	ethereumToken = location.New(2,
		location.GlobalConsensus{Network: location.Ethereum{ChainID: 1}},
		location.AccountKey20{Key: [20]byte{0xc0, 0x2a}})
	strayAsset = location.New(1, location.PalletInstance{Index: 50})
)

func newTestMigration(t *testing.T, table reserve.RuleTable, s *memStore, opts ...Option) *Migration {
	t.Helper()
	opts = append([]Option{WithLedger(s), WithRunIDs(testutil.SequentialRunIDs("run"))}, opts...)
	m, err := New(DefaultID, reserve.NewResolver(table), s, s, opts...)
	require.NoError(t, err)
	return m
}

func polkadotTable() reserve.RuleTable {
	return deployment.AssetHubPolkadot(deployment.DefaultParams())
}

func TestNew_Validation(t *testing.T) {
	s := newMemStore()
	resolver := reserve.NewResolver(polkadotTable())

	_, err := New("", resolver, s, s)
	assert.Error(t, err)
	_, err = New(DefaultID, nil, s, s)
	assert.Error(t, err)
	_, err = New(DefaultID, resolver, nil, s)
	assert.Error(t, err)

	m, err := New(DefaultID, resolver, s, s)
	require.NoError(t, err)
	assert.Equal(t, DefaultID, m.ID())
	hash, err := polkadotTable().Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, m.RulesHash())
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(kusamaAsset, siblingAsset, ethereumToken, strayAsset)
	m := newTestMigration(t, polkadotTable(), s)

	report, err := m.Apply(ctx)
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, deployment.AssetHubPolkadotName, report.Deployment)
	assert.Equal(t, 4, report.Assets)
	assert.Equal(t, 3, report.Resolved)
	assert.Equal(t, 1, report.Unresolved)
	assert.Equal(t, 4, report.Changed)
	assert.Equal(t, 0, report.Unchanged)
	assert.Equal(t, []string{strayAsset.String()}, report.UnresolvedAssets)

	assert.Equal(t, `[{"reserve":{"interior":[{"parachain":2000}],"parents":1},"teleportable":true}]`,
		string(s.raw(t, siblingAsset)))
	assert.Equal(t, `[]`, string(s.raw(t, strayAsset)), "unresolved assets are stored as empty lists")

	got, ok, err := s.GetReserves(ctx, kusamaAsset)
	require.NoError(t, err)
	require.True(t, ok)
	want := []reserve.Record{{Reserve: location.New(2,
		location.GlobalConsensus{Network: location.Kusama{}},
		location.Parachain{ID: 1000})}}
	assert.True(t, reserve.RecordsEqual(want, got), "got %v", got)

	require.Len(t, s.runs, 1)
	assert.Equal(t, m.RulesHash(), s.runs[0].RulesHash)
	assert.Equal(t, 4, s.runs[0].Changed)
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(kusamaAsset, siblingAsset, ethereumToken, strayAsset)
	m := newTestMigration(t, polkadotTable(), s)

	_, err := m.Apply(ctx)
	require.NoError(t, err)
	before := map[string]string{}
	for k, v := range s.records {
		before[k] = string(v)
	}
	puts := s.puts

	report, err := m.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Changed)
	assert.Equal(t, 4, report.Unchanged)
	assert.Equal(t, puts, s.puts, "no writes on a repeated run")

	after := map[string]string{}
	for k, v := range s.records {
		after[k] = string(v)
	}
	assert.Equal(t, before, after)
}

func TestApply_ReplacesStaleRecords(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(siblingAsset)
	require.NoError(t, s.PutReserves(ctx, siblingAsset, []reserve.Record{
		{Reserve: deployment.KusamaEcosystem()},
		{Reserve: siblingAsset},
	}))

	report, err := newTestMigration(t, polkadotTable(), s).Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed)

	got, _, err := s.GetReserves(ctx, siblingAsset)
	require.NoError(t, err)
	assert.Equal(t, []reserve.Record{{Reserve: siblingAsset, Teleportable: true}}, got)
}

func TestApply_DuplicateAssets(t *testing.T) {
	s := newMemStore(siblingAsset, siblingAsset)
	report, err := newTestMigration(t, polkadotTable(), s).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Assets)
	assert.Equal(t, 1, s.puts)
}

func TestApply_StorageErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	tests := []struct {
		name  string
		setup func(*memStore)
		op    string
	}{
		{"list", func(s *memStore) { s.failList = boom }, "list foreign assets"},
		{"get", func(s *memStore) { s.failGet = boom }, "get reserves"},
		{"put", func(s *memStore) { s.failPut = boom }, "put reserves"},
		{"ledger", func(s *memStore) { s.failRun = boom }, "record run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore(siblingAsset)
			tt.setup(s)
			_, err := newTestMigration(t, polkadotTable(), s).Apply(context.Background())
			require.Error(t, err)
			assert.True(t, IsStorageError(err))
			assert.ErrorIs(t, err, boom)

			var se *StorageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.op, se.Op)
		})
	}
}

func TestApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newMemStore(siblingAsset)
	_, err := newTestMigration(t, polkadotTable(), s).Apply(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.runs)
}

func TestApply_LogsUnresolved(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := newMemStore(strayAsset)
	_, err := newTestMigration(t, polkadotTable(), s, WithLogger(zap.New(core))).Apply(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("Asset has no reserve under current rules").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "migration", entries[0].LoggerName)
	assert.Equal(t, strayAsset.String(), entries[0].ContextMap()["asset"])
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(kusamaAsset, siblingAsset)
	m := newTestMigration(t, polkadotTable(), s)

	pre, err := m.Check(ctx, ModePreUpgrade)
	require.NoError(t, err)
	assert.Equal(t, 2, pre.Missing)
	assert.Equal(t, 2, pre.Mismatches())
	assert.True(t, pre.Passed(), "pre-upgrade checks report, they do not fail")
	assert.Zero(t, s.puts, "check never writes")

	post, err := m.Check(ctx, ModePostUpgrade)
	require.NoError(t, err)
	assert.False(t, post.Passed())

	_, err = m.Apply(ctx)
	require.NoError(t, err)

	post, err = m.Check(ctx, ModePostUpgrade)
	require.NoError(t, err)
	assert.True(t, post.Passed())
	assert.Equal(t, 2, post.Matched)
	for _, e := range post.Entries {
		assert.Equal(t, StatusMatch, e.Status)
	}
}

func TestCheck_Differs(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(kusamaAsset)
	_, err := newTestMigration(t, polkadotTable(), s).Apply(ctx)
	require.NoError(t, err)

	// The same store judged by a different deployment's rules.
	kusama := deployment.AssetHubKusama(deployment.DefaultParams())
	report, err := newTestMigration(t, kusama, s).Check(ctx, ModePostUpgrade)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, StatusDiffers, report.Entries[0].Status)
	assert.Empty(t, report.Entries[0].Expected)
	assert.False(t, report.Passed())
}

func TestCheck_UnknownMode(t *testing.T) {
	m := newTestMigration(t, polkadotTable(), newMemStore())
	_, err := m.Check(context.Background(), Mode("sideways"))
	assert.Error(t, err)

	mode, err := ParseMode("post")
	require.NoError(t, err)
	assert.Equal(t, ModePostUpgrade, mode)
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(siblingAsset)
	m := newTestMigration(t, polkadotTable(), s)

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = m.Apply(ctx)
	require.NoError(t, err)
	pending, err = m.Pending(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	last, ok, err := m.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", last.RunID)

	// A different table on the same ledger is pending again.
	changed := newTestMigration(t, deployment.AssetHubPolkadot(deployment.Params{AssetHubID: 1001, EthereumChainID: 1}), s)
	pending, err = changed.Pending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestPending_NoLedger(t *testing.T) {
	s := newMemStore()
	m, err := New(DefaultID, reserve.NewResolver(polkadotTable()), s, s)
	require.NoError(t, err)

	pending, err := m.Pending(context.Background())
	require.NoError(t, err)
	assert.True(t, pending)

	report, err := m.Apply(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID, "run ids are generated without a ledger too")
	assert.Empty(t, s.runs)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := NewMetrics()
	s := newMemStore(siblingAsset, strayAsset)
	m := newTestMigration(t, polkadotTable(), s, WithMetrics(metrics))

	_, err := m.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.runs.WithLabelValues(DefaultID, "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.assets.WithLabelValues(DefaultID, "unresolved")))
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.assets.WithLabelValues(DefaultID, "changed")))

	s.failList = errors.New("gone")
	_, err = m.Apply(ctx)
	require.Error(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.runs.WithLabelValues(DefaultID, "failure")))

	s.failList = nil
	_, err = m.Check(ctx, ModePostUpgrade)
	require.NoError(t, err)
	assert.Equal(t, 0.0, promtest.ToFloat64(metrics.mismatches.WithLabelValues(DefaultID, "post")))

	path := filepath.Join(t.TempDir(), "xcmreserve.prom")
	require.NoError(t, metrics.WriteTextfile(path))
	assert.FileExists(t, path)
}

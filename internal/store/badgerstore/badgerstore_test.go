package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/migration"
	"github.com/roach88/xcmreserve/internal/reserve"
)

var (
	_ migration.Registry     = (*Store)(nil)
	_ migration.ReserveStore = (*Store)(nil)
	_ migration.Ledger       = (*Store)(nil)
)

var (
	siblingAsset = location.New(1, location.Parachain{ID: 2000})
	kusamaHub    = location.New(2,
		location.GlobalConsensus{Network: location.Kusama{}},
		location.Parachain{ID: 1000})
	kusamaAsset = location.New(2,
		location.GlobalConsensus{Network: location.Kusama{}},
		location.Parachain{ID: 1000},
		location.GeneralIndex{Index: 42})
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAsset(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	added, err := s.RegisterAsset(ctx, kusamaAsset)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.RegisterAsset(ctx, kusamaAsset)
	require.NoError(t, err)
	assert.False(t, added, "second registration is a no-op")

	_, err = s.RegisterAsset(ctx, siblingAsset)
	require.NoError(t, err)

	assets, err := s.ForeignAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	// 0x01... sorts before 0x02...
	assert.True(t, assets[0].Equal(siblingAsset))
	assert.True(t, assets[1].Equal(kusamaAsset))
}

func TestForeignAssets_Empty(t *testing.T) {
	assets, err := openMemory(t).ForeignAssets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestReserves_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, ok, err := s.GetReserves(ctx, kusamaAsset)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.RegisterAsset(ctx, kusamaAsset)
	require.NoError(t, err)

	records := []reserve.Record{{Reserve: kusamaHub}}
	require.NoError(t, s.PutReserves(ctx, kusamaAsset, records))

	got, ok, err := s.GetReserves(ctx, kusamaAsset)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, reserve.RecordsEqual(records, got))

	raw, ok, err := s.RawReserves(ctx, kusamaAsset)
	require.NoError(t, err)
	require.True(t, ok)
	want, err := reserve.EncodeRecords(records)
	require.NoError(t, err)
	assert.Equal(t, want, raw)
}

func TestPutReserves_Replaces(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	_, err := s.RegisterAsset(ctx, siblingAsset)
	require.NoError(t, err)

	require.NoError(t, s.PutReserves(ctx, siblingAsset, []reserve.Record{{Reserve: kusamaHub}}))
	require.NoError(t, s.PutReserves(ctx, siblingAsset, []reserve.Record{}))

	got, ok, err := s.GetReserves(ctx, siblingAsset)
	require.NoError(t, err)
	require.True(t, ok, "an empty list is still an entry")
	assert.Empty(t, got)
}

func TestPutReserves_UnregisteredAsset(t *testing.T) {
	s := openMemory(t)
	err := s.PutReserves(context.Background(), kusamaAsset, []reserve.Record{{Reserve: kusamaHub}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRemoveAsset(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	_, err := s.RegisterAsset(ctx, kusamaAsset)
	require.NoError(t, err)
	require.NoError(t, s.PutReserves(ctx, kusamaAsset, []reserve.Record{{Reserve: kusamaHub}}))

	require.NoError(t, s.RemoveAsset(ctx, kusamaAsset))
	require.NoError(t, s.RemoveAsset(ctx, kusamaAsset), "removing twice is fine")

	assets, err := s.ForeignAssets(ctx)
	require.NoError(t, err)
	assert.Empty(t, assets)

	_, ok, err := s.GetReserves(ctx, kusamaAsset)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, ok, err := s.LastRun(ctx, migration.DefaultID)
	require.NoError(t, err)
	assert.False(t, ok)

	first := migration.Run{RunID: "run-1", MigrationID: migration.DefaultID, RulesHash: "aaa", Assets: 2}
	second := migration.Run{RunID: "run-2", MigrationID: migration.DefaultID, RulesHash: "bbb", Changed: 1}
	other := migration.Run{RunID: "run-3", MigrationID: "other", RulesHash: "ccc"}
	for _, run := range []migration.Run{first, second, other, first} {
		require.NoError(t, s.RecordRun(ctx, run))
	}

	last, ok, err := s.LastRun(ctx, migration.DefaultID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", last.RunID)
	assert.Equal(t, "bbb", last.RulesHash)
	assert.Equal(t, 1, last.Changed)
	assert.Positive(t, last.Seq)
}

func TestOpen_Directory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	_, err = s.RegisterAsset(ctx, siblingAsset)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	assets, err := s.ForeignAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.True(t, assets[0].Equal(siblingAsset))
}

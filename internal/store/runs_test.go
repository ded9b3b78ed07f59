package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xcmreserve/internal/migration"
)

func testRun(runID, rulesHash string) migration.Run {
	return migration.Run{
		RunID:       runID,
		MigrationID: migration.DefaultID,
		Deployment:  "asset-hub-polkadot",
		RulesHash:   rulesHash,
		Assets:      3,
		Resolved:    2,
		Unresolved:  1,
		Changed:     3,
	}
}

func TestLastRun_Empty(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.LastRun(context.Background(), migration.DefaultID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRun_LastRunWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, testRun("run-1", "hash-a")))
	require.NoError(t, s.RecordRun(ctx, testRun("run-2", "hash-b")))

	last, ok, err := s.LastRun(ctx, migration.DefaultID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", last.RunID)
	assert.Equal(t, "hash-b", last.RulesHash)
	assert.Equal(t, 3, last.Assets)
	assert.Equal(t, 1, last.Unresolved)
	assert.Equal(t, int64(2), last.Seq)

	_, ok, err = s.LastRun(ctx, "other-migration")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", "hash-a")
	require.NoError(t, s.RecordRun(ctx, run))
	require.NoError(t, s.RecordRun(ctx, run))

	runs, err := s.ListRuns(ctx, migration.DefaultID)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRun_StoresVersions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordRun(ctx, testRun("run-1", "hash-a")))

	var engine, irVersion string
	err := s.db.QueryRow(`SELECT engine_version, ir_version FROM migration_runs`).Scan(&engine, &irVersion)
	require.NoError(t, err)
	assert.NotEmpty(t, engine)
	assert.Equal(t, "1", irVersion)
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	siblingAsset = location.New(1, location.Parachain{ID: 2000})
	kusamaAsset  = location.New(2,
		location.GlobalConsensus{Network: location.Kusama{}},
		location.Parachain{ID: 1000},
		location.GeneralIndex{Index: 42})
	kusamaHub = location.New(2,
		location.GlobalConsensus{Network: location.Kusama{}},
		location.Parachain{ID: 1000})
)

func siblingRecords() []reserve.Record {
	return []reserve.Record{{Reserve: siblingAsset, Teleportable: true}}
}

func kusamaRecords() []reserve.Record {
	return []reserve.Record{{Reserve: kusamaHub}}
}

// Package badgerstore is an embedded key-value backend for the asset
// registry, reserve mapping and migration ledger, built on badgerhold.
//
// It serves the same migration interfaces as the SQLite store. An empty
// directory opens an in-memory database.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/migration"
	"github.com/roach88/xcmreserve/internal/reserve"
)

type assetDTO struct {
	Key      string
	Location string
}

type reserveDTO struct {
	Key         string
	Records     string
	RecordsHash string
}

type runDTO struct {
	Seq           uint64 `badgerhold:"key"`
	RunID         string
	MigrationID   string
	Deployment    string
	RulesHash     string
	Assets        int
	Resolved      int
	Unresolved    int
	Changed       int
	Unchanged     int
	EngineVersion string
	IRVersion     string
}

// Store persists registry, reserves and ledger in one badgerhold store.
type Store struct {
	db *badgerhold.Store
}

// Open opens (or creates) a store in dir. An empty dir keeps everything in
// memory. Badger's own logging is routed to logger.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := createDB(dir, newBadgerLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RegisterAsset adds asset to the registry and reports whether it was new.
func (s *Store) RegisterAsset(_ context.Context, asset location.Location) (bool, error) {
	key, err := asset.Key()
	if err != nil {
		return false, fmt.Errorf("register asset: %w", err)
	}
	text, err := ir.MarshalCanonical(asset.ToIR())
	if err != nil {
		return false, fmt.Errorf("register asset: %w", err)
	}

	err = s.db.Insert(key, assetDTO{Key: key, Location: string(text)})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("register asset: %w", err)
	}
	return true, nil
}

// RemoveAsset deletes asset and its reserve records.
func (s *Store) RemoveAsset(_ context.Context, asset location.Location) error {
	key, err := asset.Key()
	if err != nil {
		return fmt.Errorf("remove asset: %w", err)
	}
	for _, dataType := range []any{reserveDTO{}, assetDTO{}} {
		if err := s.db.Delete(key, dataType); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("remove asset: %w", err)
		}
	}
	return nil
}

// ForeignAssets returns every registered asset ordered by asset key.
func (s *Store) ForeignAssets(_ context.Context) ([]location.Location, error) {
	var all []assetDTO
	if err := s.db.Find(&all, nil); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("query foreign assets: %w", err)
	}
	slices.SortFunc(all, func(a, b assetDTO) int { return strings.Compare(a.Key, b.Key) })

	assets := make([]location.Location, 0, len(all))
	for _, dto := range all {
		l, err := location.ParseJSON([]byte(dto.Location))
		if err != nil {
			return nil, fmt.Errorf("unmarshal location %s: %w", dto.Key, err)
		}
		assets = append(assets, l)
	}
	return assets, nil
}

// PutReserves replaces the records stored for a registered asset. Identical
// bytes are not rewritten.
func (s *Store) PutReserves(_ context.Context, asset location.Location, records []reserve.Record) error {
	key, err := asset.Key()
	if err != nil {
		return fmt.Errorf("put reserves: %w", err)
	}
	var registered assetDTO
	if err := s.db.Get(key, &registered); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("put reserves: asset %s is not registered", asset)
		}
		return fmt.Errorf("put reserves: %w", err)
	}

	data, err := reserve.EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("put reserves: %w", err)
	}
	dto := reserveDTO{Key: key, Records: string(data), RecordsHash: ir.HashBytes(ir.DomainRecords, data)}

	var current reserveDTO
	err = s.db.Get(key, &current)
	if err == nil && current.RecordsHash == dto.RecordsHash {
		return nil
	}
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("put reserves: %w", err)
	}
	if err := s.db.Upsert(key, dto); err != nil {
		return fmt.Errorf("put reserves: %w", err)
	}
	return nil
}

// GetReserves returns the records stored for asset and whether an entry
// exists.
func (s *Store) GetReserves(ctx context.Context, asset location.Location) ([]reserve.Record, bool, error) {
	raw, ok, err := s.RawReserves(ctx, asset)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := reserve.DecodeRecords(raw)
	if err != nil {
		return nil, false, fmt.Errorf("get reserves: %w", err)
	}
	return records, true, nil
}

// RawReserves returns the exact stored bytes for asset.
func (s *Store) RawReserves(_ context.Context, asset location.Location) ([]byte, bool, error) {
	key, err := asset.Key()
	if err != nil {
		return nil, false, fmt.Errorf("get reserves: %w", err)
	}
	var dto reserveDTO
	if err := s.db.Get(key, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get reserves: %w", err)
	}
	return []byte(dto.Records), true, nil
}

// RecordRun appends run to the ledger. A run id already present is ignored.
func (s *Store) RecordRun(_ context.Context, run migration.Run) error {
	var existing []runDTO
	if err := s.db.Find(&existing, badgerhold.Where("RunID").Eq(run.RunID)); err != nil &&
		!errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("record run: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	dto := runDTO{
		RunID:         run.RunID,
		MigrationID:   run.MigrationID,
		Deployment:    run.Deployment,
		RulesHash:     run.RulesHash,
		Assets:        run.Assets,
		Resolved:      run.Resolved,
		Unresolved:    run.Unresolved,
		Changed:       run.Changed,
		Unchanged:     run.Unchanged,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if err := s.db.Insert(badgerhold.NextSequence(), &dto); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run of migrationID.
func (s *Store) LastRun(_ context.Context, migrationID string) (migration.Run, bool, error) {
	var runs []runDTO
	err := s.db.Find(&runs, badgerhold.Where("MigrationID").Eq(migrationID))
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return migration.Run{}, false, fmt.Errorf("last run: %w", err)
	}
	if len(runs) == 0 {
		return migration.Run{}, false, nil
	}

	last := slices.MaxFunc(runs, func(a, b runDTO) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return migration.Run{
		RunID:       last.RunID,
		MigrationID: last.MigrationID,
		Deployment:  last.Deployment,
		RulesHash:   last.RulesHash,
		Assets:      last.Assets,
		Resolved:    last.Resolved,
		Unresolved:  last.Unresolved,
		Changed:     last.Changed,
		Unchanged:   last.Unchanged,
		Seq:         int64(last.Seq),
	}, true, nil
}

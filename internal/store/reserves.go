package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// ReserveEntry is one row of the reserve mapping.
type ReserveEntry struct {
	AssetKey    string
	Asset       location.Location
	Records     []reserve.Record
	RecordsHash string
	Seq         int64
}

// PutReserves replaces the records stored for asset.
// The asset must be registered. Writing identical bytes leaves the row,
// including its seq, untouched.
func (s *Store) PutReserves(ctx context.Context, asset location.Location, records []reserve.Record) error {
	key, err := asset.Key()
	if err != nil {
		return fmt.Errorf("put reserves: %w", err)
	}
	text, hash, err := marshalRecords(records)
	if err != nil {
		return fmt.Errorf("put reserves: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO asset_reserves (asset_key, records, records_hash, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM asset_reserves))
		ON CONFLICT(asset_key) DO UPDATE SET
			records      = excluded.records,
			records_hash = excluded.records_hash,
			seq          = excluded.seq
		WHERE asset_reserves.records_hash != excluded.records_hash
	`, key, text, hash)
	if err != nil {
		return fmt.Errorf("put reserves: %w", err)
	}
	return nil
}

// GetReserves returns the records stored for asset and whether an entry
// exists. A stored empty list is reported as ([], true).
func (s *Store) GetReserves(ctx context.Context, asset location.Location) ([]reserve.Record, bool, error) {
	text, ok, err := s.RawReserves(ctx, asset)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := unmarshalRecords(string(text))
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

// RawReserves returns the exact stored bytes for asset.
func (s *Store) RawReserves(ctx context.Context, asset location.Location) ([]byte, bool, error) {
	key, err := asset.Key()
	if err != nil {
		return nil, false, fmt.Errorf("get reserves: %w", err)
	}

	var text string
	err = s.db.QueryRowContext(ctx, `
		SELECT records FROM asset_reserves WHERE asset_key = ?
	`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get reserves: %w", err)
	}
	return []byte(text), true, nil
}

// ListReserves returns the whole mapping ordered by asset key.
func (s *Store) ListReserves(ctx context.Context) ([]ReserveEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.asset_key, a.location, r.records, r.records_hash, r.seq
		FROM asset_reserves r
		JOIN foreign_assets a ON a.asset_key = r.asset_key
		ORDER BY r.asset_key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reserves: %w", err)
	}
	defer rows.Close()

	entries := []ReserveEntry{}
	for rows.Next() {
		var (
			e          ReserveEntry
			locText    string
			recordText string
		)
		if err := rows.Scan(&e.AssetKey, &locText, &recordText, &e.RecordsHash, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan reserves: %w", err)
		}
		if e.Asset, err = unmarshalLocation(locText); err != nil {
			return nil, err
		}
		if e.Records, err = unmarshalRecords(recordText); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reserves: %w", err)
	}
	return entries, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/xcmreserve/internal/location"
)

// RegisterAsset adds asset to the registry.
// Uses ON CONFLICT DO NOTHING for idempotency; registering twice keeps the
// original seq. Reports whether the asset was newly added.
func (s *Store) RegisterAsset(ctx context.Context, asset location.Location) (bool, error) {
	key, text, err := marshalLocation(asset)
	if err != nil {
		return false, fmt.Errorf("register asset: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO foreign_assets (asset_key, location, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM foreign_assets))
		ON CONFLICT(asset_key) DO NOTHING
	`, key, text)
	if err != nil {
		return false, fmt.Errorf("register asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("register asset: %w", err)
	}
	return n == 1, nil
}

// RemoveAsset deletes asset and, through the foreign key, its reserve
// records. Removing an unknown asset is a no-op.
func (s *Store) RemoveAsset(ctx context.Context, asset location.Location) error {
	key, err := asset.Key()
	if err != nil {
		return fmt.Errorf("remove asset: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM foreign_assets WHERE asset_key = ?`, key); err != nil {
		return fmt.Errorf("remove asset: %w", err)
	}
	return nil
}

// ForeignAssets returns every registered asset ordered by asset key.
// Returns an empty slice (not nil) when the registry is empty.
func (s *Store) ForeignAssets(ctx context.Context) ([]location.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location
		FROM foreign_assets
		ORDER BY asset_key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query foreign assets: %w", err)
	}
	defer rows.Close()

	assets := []location.Location{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan foreign asset: %w", err)
		}
		l, err := unmarshalLocation(text)
		if err != nil {
			return nil, err
		}
		assets = append(assets, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign assets: %w", err)
	}
	return assets, nil
}

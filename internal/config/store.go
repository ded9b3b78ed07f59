package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/store"
	"github.com/roach88/xcmreserve/internal/store/badgerstore"
)

const (
	sqliteFile = "xcmreserve.db"
	badgerDir  = "badger"
)

// OpenStore opens the configured backend under data_dir, creating the
// directory when needed. A badger store with an empty data_dir is kept in
// memory.
func (c *Config) OpenStore(logger *zap.Logger) (Backend, error) {
	switch c.StoreType {
	case StoreSQLite:
		if err := makeDirectoryIfNotExists(c.DataDir); err != nil {
			return nil, err
		}
		s, err := store.Open(filepath.Join(c.DataDir, sqliteFile))
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreBadger:
		dir := ""
		if c.DataDir != "" {
			dir = filepath.Join(c.DataDir, badgerDir)
			if err := makeDirectoryIfNotExists(dir); err != nil {
				return nil, err
			}
		}
		s, err := badgerstore.Open(dir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store type not supported, please select one of: %s", supportedStores)
	}
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

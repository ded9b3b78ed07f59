package migration

import (
	"errors"
	"fmt"

	"github.com/roach88/xcmreserve/internal/location"
)

// StorageError is a fatal failure of the registry, the reserve store or the
// ledger. It aborts the run and is never retried.
type StorageError struct {
	Op    string
	Asset *location.Location
	Err   error
}

func (e *StorageError) Error() string {
	if e.Asset != nil {
		return fmt.Sprintf("migration storage: %s %s: %v", e.Op, e.Asset, e.Err)
	}
	return fmt.Sprintf("migration storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func assetStorageError(op string, asset location.Location, err error) *StorageError {
	return &StorageError{Op: op, Asset: &asset, Err: err}
}

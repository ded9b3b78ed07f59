package store

import (
	"fmt"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// marshalLocation converts a location to canonical JSON TEXT plus its key.
func marshalLocation(l location.Location) (key, text string, err error) {
	key, err = l.Key()
	if err != nil {
		return "", "", fmt.Errorf("marshal location: %w", err)
	}
	data, err := ir.MarshalCanonical(l.ToIR())
	if err != nil {
		return "", "", fmt.Errorf("marshal location: %w", err)
	}
	return key, string(data), nil
}

// unmarshalLocation parses canonical JSON TEXT back to a location.
func unmarshalLocation(text string) (location.Location, error) {
	l, err := location.ParseJSON([]byte(text))
	if err != nil {
		return location.Location{}, fmt.Errorf("unmarshal location: %w", err)
	}
	return l, nil
}

// marshalRecords converts a record list to canonical JSON TEXT and its
// content hash.
func marshalRecords(records []reserve.Record) (text, hash string, err error) {
	data, err := reserve.EncodeRecords(records)
	if err != nil {
		return "", "", fmt.Errorf("marshal records: %w", err)
	}
	return string(data), ir.HashBytes(ir.DomainRecords, data), nil
}

// unmarshalRecords parses canonical JSON TEXT to a record list.
func unmarshalRecords(text string) ([]reserve.Record, error) {
	records, err := reserve.DecodeRecords([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return records, nil
}

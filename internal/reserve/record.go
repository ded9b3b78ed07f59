package reserve

import (
	"bytes"
	"fmt"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
)

// Record is one reserve fact about an asset: Reserve holds the asset's
// backing, and Teleportable reports whether it may be teleported to and from
// that location instead of transferred by reserve.
type Record struct {
	Reserve      location.Location
	Teleportable bool
}

// Equal reports structural equality.
func (r Record) Equal(other Record) bool {
	return r.Teleportable == other.Teleportable && r.Reserve.Equal(other.Reserve)
}

func (r Record) String() string {
	return fmt.Sprintf("{reserve: %s, teleportable: %t}", r.Reserve, r.Teleportable)
}

// ToIR returns the canonical JSON form {"reserve":<location>,"teleportable":bool}.
func (r Record) ToIR() ir.IRObject {
	return ir.IRObject{
		"reserve":      r.Reserve.ToIR(),
		"teleportable": ir.IRBool(r.Teleportable),
	}
}

// RecordFromIR parses the form produced by Record.ToIR.
func RecordFromIR(v ir.IRValue) (Record, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Record{}, fmt.Errorf("record: expected object, got %T", v)
	}
	if len(obj) != 2 {
		return Record{}, fmt.Errorf("record: expected fields reserve and teleportable, got %d fields", len(obj))
	}
	teleportable, err := obj.Bool("teleportable")
	if err != nil {
		return Record{}, fmt.Errorf("record: %w", err)
	}
	raw, ok := obj["reserve"]
	if !ok {
		return Record{}, fmt.Errorf("record: missing field %q", "reserve")
	}
	reserve, err := location.FromIR(raw)
	if err != nil {
		return Record{}, fmt.Errorf("record: %w", err)
	}
	return Record{Reserve: reserve, Teleportable: teleportable}, nil
}

// RecordsToIR converts an ordered record list to an IR array.
func RecordsToIR(records []Record) ir.IRArray {
	arr := make(ir.IRArray, len(records))
	for i, r := range records {
		arr[i] = r.ToIR()
	}
	return arr
}

// EncodeRecords returns the canonical JSON bytes of a record list. Equal
// lists always encode to identical bytes; this is the persisted form.
func EncodeRecords(records []Record) ([]byte, error) {
	return ir.MarshalCanonical(RecordsToIR(records))
}

// DecodeRecords parses bytes produced by EncodeRecords. The result is never
// nil, so an empty stored list decodes to an empty slice.
func DecodeRecords(data []byte) ([]Record, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("decode records: expected array, got %T", v)
	}
	records := make([]Record, 0, len(arr))
	for i, elem := range arr {
		r, err := RecordFromIR(elem)
		if err != nil {
			return nil, fmt.Errorf("decode records: [%d]: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// RecordsHash returns the domain-separated content hash of a record list.
func RecordsHash(records []Record) (string, error) {
	return ir.ContentHash(ir.DomainRecords, RecordsToIR(records))
}

// RecordsEqual reports whether two lists have identical canonical bytes.
// Order matters.
func RecordsEqual(a, b []Record) bool {
	ea, errA := EncodeRecords(a)
	eb, errB := EncodeRecords(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

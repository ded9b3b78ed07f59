package location

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/xcmreserve/internal/ir"
)

// ToIR converts l to its canonical JSON form:
//
//	{"parents":2,"interior":[{"global_consensus":"kusama"},{"parachain":1000}]}
func (l Location) ToIR() ir.IRObject {
	interior := make(ir.IRArray, len(l.Interior))
	for i, j := range l.Interior {
		interior[i] = junctionToIR(j)
	}
	return ir.IRObject{
		"parents":  ir.IRInt(l.Parents),
		"interior": interior,
	}
}

// FromIR parses the canonical JSON form produced by ToIR.
func FromIR(v ir.IRValue) (Location, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Location{}, fmt.Errorf("location: expected object, got %T", v)
	}
	if err := onlyKeys(obj, "parents", "interior"); err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	parents, err := obj.Int("parents")
	if err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	if parents < 0 || parents > math.MaxUint8 {
		return Location{}, fmt.Errorf("location: parents %d out of range", parents)
	}
	interior, err := obj.Array("interior")
	if err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	if len(interior) > MaxJunctions {
		return Location{}, fmt.Errorf("location: %d junctions exceeds maximum of %d", len(interior), MaxJunctions)
	}

	l := Location{Parents: uint8(parents)}
	for i, raw := range interior {
		j, err := junctionFromIR(raw)
		if err != nil {
			return Location{}, fmt.Errorf("location: interior[%d]: %w", i, err)
		}
		l.Interior = append(l.Interior, j)
	}
	return l, nil
}

// ParseJSON parses a location from JSON text in canonical form. Key order and
// whitespace are free.
func ParseJSON(data []byte) (Location, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	return FromIR(v)
}

// MarshalJSON implements json.Marshaler using the canonical form.
func (l Location) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(l.ToIR())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Location) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func junctionToIR(j Junction) ir.IRValue {
	switch v := j.(type) {
	case Parachain:
		return ir.IRObject{"parachain": ir.IRInt(v.ID)}
	case AccountID32:
		body := ir.IRObject{"id": hexIR(v.ID[:])}
		withNetwork(body, v.Network)
		return ir.IRObject{"account_id32": body}
	case AccountIndex64:
		body := ir.IRObject{"index": uintIR(v.Index)}
		withNetwork(body, v.Network)
		return ir.IRObject{"account_index64": body}
	case AccountKey20:
		body := ir.IRObject{"key": hexIR(v.Key[:])}
		withNetwork(body, v.Network)
		return ir.IRObject{"account_key20": body}
	case PalletInstance:
		return ir.IRObject{"pallet_instance": ir.IRInt(v.Index)}
	case GeneralIndex:
		return ir.IRObject{"general_index": uintIR(v.Index)}
	case GeneralKey:
		return ir.IRObject{"general_key": ir.IRObject{
			"length": ir.IRInt(v.Length),
			"data":   hexIR(v.Data[:]),
		}}
	case OnlyChild:
		return ir.IRString("only_child")
	case GlobalConsensus:
		return ir.IRObject{"global_consensus": networkToIR(v.Network)}
	default:
		panic(fmt.Sprintf("location: unknown junction type %T", j))
	}
}

func junctionFromIR(v ir.IRValue) (Junction, error) {
	if s, ok := v.(ir.IRString); ok {
		if s == "only_child" {
			return OnlyChild{}, nil
		}
		return nil, fmt.Errorf("unknown junction %q", string(s))
	}
	kind, body, err := singleKey(v)
	if err != nil {
		return nil, fmt.Errorf("junction: %w", err)
	}

	switch kind {
	case "parachain":
		id, err := uintFromIR(body, math.MaxUint32)
		if err != nil {
			return nil, fmt.Errorf("parachain: %w", err)
		}
		return Parachain{ID: uint32(id)}, nil
	case "pallet_instance":
		idx, err := uintFromIR(body, math.MaxUint8)
		if err != nil {
			return nil, fmt.Errorf("pallet_instance: %w", err)
		}
		return PalletInstance{Index: uint8(idx)}, nil
	case "general_index":
		idx, err := uintFromIR(body, math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("general_index: %w", err)
		}
		return GeneralIndex{Index: idx}, nil
	case "general_key":
		obj, ok := body.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("general_key: expected object, got %T", body)
		}
		if err := onlyKeys(obj, "length", "data"); err != nil {
			return nil, fmt.Errorf("general_key: %w", err)
		}
		length, err := uintFromIR(obj["length"], 32)
		if err != nil {
			return nil, fmt.Errorf("general_key length: %w", err)
		}
		j := GeneralKey{Length: uint8(length)}
		if err := fixedHex(obj, "data", j.Data[:]); err != nil {
			return nil, fmt.Errorf("general_key: %w", err)
		}
		return j, nil
	case "global_consensus":
		n, err := networkFromIR(body)
		if err != nil {
			return nil, fmt.Errorf("global_consensus: %w", err)
		}
		return GlobalConsensus{Network: n}, nil
	case "account_id32":
		network, fields, err := accountFields(body, "id")
		if err != nil {
			return nil, fmt.Errorf("account_id32: %w", err)
		}
		j := AccountID32{Network: network}
		if err := fixedHex(fields, "id", j.ID[:]); err != nil {
			return nil, fmt.Errorf("account_id32: %w", err)
		}
		return j, nil
	case "account_key20":
		network, fields, err := accountFields(body, "key")
		if err != nil {
			return nil, fmt.Errorf("account_key20: %w", err)
		}
		j := AccountKey20{Network: network}
		if err := fixedHex(fields, "key", j.Key[:]); err != nil {
			return nil, fmt.Errorf("account_key20: %w", err)
		}
		return j, nil
	case "account_index64":
		network, fields, err := accountFields(body, "index")
		if err != nil {
			return nil, fmt.Errorf("account_index64: %w", err)
		}
		idx, err := uintFromIR(fields["index"], math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("account_index64: %w", err)
		}
		return AccountIndex64{Network: network, Index: idx}, nil
	default:
		return nil, fmt.Errorf("unknown junction %q", kind)
	}
}

func networkToIR(n NetworkID) ir.IRValue {
	if name, ok := simpleNetworks[n]; ok {
		return ir.IRString(name)
	}
	switch v := n.(type) {
	case Ethereum:
		return ir.IRObject{"ethereum": ir.IRObject{"chain_id": uintIR(v.ChainID)}}
	case ByGenesis:
		return ir.IRObject{"by_genesis": hexIR(v.Hash[:])}
	case ByFork:
		return ir.IRObject{"by_fork": ir.IRObject{
			"block_number": uintIR(v.BlockNumber),
			"block_hash":   hexIR(v.BlockHash[:]),
		}}
	case nil:
		panic("location: global consensus requires a network")
	default:
		panic(fmt.Sprintf("location: unknown network type %T", n))
	}
}

func networkFromIR(v ir.IRValue) (NetworkID, error) {
	if s, ok := v.(ir.IRString); ok {
		for n, name := range simpleNetworks {
			if name == string(s) {
				return n, nil
			}
		}
		return nil, fmt.Errorf("unknown network %q", string(s))
	}
	kind, body, err := singleKey(v)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	switch kind {
	case "ethereum":
		obj, ok := body.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("ethereum: expected object, got %T", body)
		}
		if err := onlyKeys(obj, "chain_id"); err != nil {
			return nil, fmt.Errorf("ethereum: %w", err)
		}
		id, err := uintFromIR(obj["chain_id"], math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("ethereum chain_id: %w", err)
		}
		return Ethereum{ChainID: id}, nil
	case "by_genesis":
		var n ByGenesis
		if err := fixedHex(ir.IRObject{"hash": body}, "hash", n.Hash[:]); err != nil {
			return nil, fmt.Errorf("by_genesis: %w", err)
		}
		return n, nil
	case "by_fork":
		obj, ok := body.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("by_fork: expected object, got %T", body)
		}
		if err := onlyKeys(obj, "block_number", "block_hash"); err != nil {
			return nil, fmt.Errorf("by_fork: %w", err)
		}
		num, err := uintFromIR(obj["block_number"], math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("by_fork block_number: %w", err)
		}
		n := ByFork{BlockNumber: num}
		if err := fixedHex(obj, "block_hash", n.BlockHash[:]); err != nil {
			return nil, fmt.Errorf("by_fork: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown network %q", kind)
	}
}

func withNetwork(body ir.IRObject, n NetworkID) {
	if n != nil {
		body["network"] = networkToIR(n)
	}
}

// accountFields validates an account junction body holding an optional
// network plus one payload field.
func accountFields(v ir.IRValue, payload string) (NetworkID, ir.IRObject, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, nil, fmt.Errorf("expected object, got %T", v)
	}
	if err := onlyKeys(obj, "network", payload); err != nil {
		return nil, nil, err
	}
	if _, ok := obj[payload]; !ok {
		return nil, nil, fmt.Errorf("missing field %q", payload)
	}
	raw, ok := obj["network"]
	if !ok {
		return nil, obj, nil
	}
	n, err := networkFromIR(raw)
	if err != nil {
		return nil, nil, err
	}
	return n, obj, nil
}

func singleKey(v ir.IRValue) (string, ir.IRValue, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return "", nil, fmt.Errorf("expected object or string, got %T", v)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected exactly one key, got %d", len(obj))
	}
	for k, body := range obj {
		return k, body, nil
	}
	panic("unreachable")
}

func onlyKeys(obj ir.IRObject, allowed ...string) error {
	for _, k := range obj.SortedKeys() {
		known := false
		for _, a := range allowed {
			if k == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown field %q", k)
		}
	}
	return nil
}

// uintIR renders values beyond int64 as decimal strings, since canonical
// JSON integers are signed 64-bit.
func uintIR(v uint64) ir.IRValue {
	if v > math.MaxInt64 {
		return ir.IRString(strconv.FormatUint(v, 10))
	}
	return ir.IRInt(v)
}

func uintFromIR(v ir.IRValue, max uint64) (uint64, error) {
	var n uint64
	switch val := v.(type) {
	case ir.IRInt:
		if val < 0 {
			return 0, fmt.Errorf("negative value %d", val)
		}
		n = uint64(val)
	case ir.IRString:
		parsed, err := strconv.ParseUint(string(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", string(val))
		}
		n = parsed
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if n > max {
		return 0, fmt.Errorf("value %d out of range (max %d)", n, max)
	}
	return n, nil
}

func hexIR(b []byte) ir.IRString {
	return ir.IRString("0x" + hex.EncodeToString(b))
}

func hexFromIR(v ir.IRValue) ([]byte, error) {
	s, ok := v.(ir.IRString)
	if !ok {
		return nil, fmt.Errorf("expected hex string, got %T", v)
	}
	str := string(s)
	if !strings.HasPrefix(str, "0x") {
		return nil, fmt.Errorf("hex string %q missing 0x prefix", str)
	}
	return hex.DecodeString(str[2:])
}

func fixedHex(obj ir.IRObject, key string, dst []byte) error {
	raw, ok := obj[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	b, err := hexFromIR(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%s: expected %d bytes, got %d", key, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

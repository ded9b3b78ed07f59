package location

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v3/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v3/types"
)

// Junction variant indices in the XCM v4 layout.
const (
	junctionParachain       byte = 0
	junctionAccountID32     byte = 1
	junctionAccountIndex64  byte = 2
	junctionAccountKey20    byte = 3
	junctionPalletInstance  byte = 4
	junctionGeneralIndex    byte = 5
	junctionGeneralKey      byte = 6
	junctionOnlyChild       byte = 7
	junctionPlurality       byte = 8
	junctionGlobalConsensus byte = 9
)

// NetworkId variant indices in the XCM v4 layout.
const (
	networkByGenesis        byte = 0
	networkByFork           byte = 1
	networkPolkadot         byte = 2
	networkKusama           byte = 3
	networkWestend          byte = 4
	networkRococo           byte = 5
	networkWococo           byte = 6
	networkEthereum         byte = 7
	networkBitcoinCore      byte = 8
	networkBitcoinCash      byte = 9
	networkPolkadotBulletin byte = 10
)

// EncodeSCALE returns the platform encoding of l.
func (l Location) EncodeSCALE() ([]byte, error) {
	var buf bytes.Buffer
	if err := l.Encode(*scale.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSCALE parses the platform encoding of a location. Trailing bytes
// are an error.
func DecodeSCALE(data []byte) (Location, error) {
	r := bytes.NewReader(data)
	var l Location
	if err := l.Decode(*scale.NewDecoder(r)); err != nil {
		return Location{}, err
	}
	if r.Len() != 0 {
		return Location{}, fmt.Errorf("decode location: %d trailing bytes", r.Len())
	}
	return l, nil
}

// Key returns the 0x-prefixed hex SCALE encoding of l. It is the storage key
// of an asset and defines the iteration order of the registry.
func (l Location) Key() (string, error) {
	b, err := l.EncodeSCALE()
	if err != nil {
		return "", err
	}
	return types.HexEncodeToString(b), nil
}

// Encode implements scale.Encodeable.
func (l Location) Encode(encoder scale.Encoder) error {
	if len(l.Interior) > MaxJunctions {
		return fmt.Errorf("encode location: %d junctions exceeds maximum of %d", len(l.Interior), MaxJunctions)
	}
	if err := encoder.PushByte(l.Parents); err != nil {
		return err
	}
	// Junctions::Here is 0, X1..X8 are 1..8.
	if err := encoder.PushByte(byte(len(l.Interior))); err != nil {
		return err
	}
	for i, j := range l.Interior {
		if err := encodeJunction(encoder, j); err != nil {
			return fmt.Errorf("encode junction %d: %w", i, err)
		}
	}
	return nil
}

// Decode implements scale.Decodeable.
func (l *Location) Decode(decoder scale.Decoder) error {
	parents, err := decoder.ReadOneByte()
	if err != nil {
		return fmt.Errorf("decode parents: %w", err)
	}
	n, err := decoder.ReadOneByte()
	if err != nil {
		return fmt.Errorf("decode junctions: %w", err)
	}
	if int(n) > MaxJunctions {
		return fmt.Errorf("decode junctions: unknown variant %d", n)
	}
	var interior []Junction
	if n > 0 {
		interior = make([]Junction, n)
	}
	for i := range interior {
		j, err := decodeJunction(decoder)
		if err != nil {
			return fmt.Errorf("decode junction %d: %w", i, err)
		}
		interior[i] = j
	}
	l.Parents = parents
	l.Interior = interior
	return nil
}

func encodeJunction(e scale.Encoder, j Junction) error {
	switch v := j.(type) {
	case Parachain:
		return writeAll(e, []byte{junctionParachain}, compact(uint64(v.ID)))
	case AccountID32:
		if err := e.PushByte(junctionAccountID32); err != nil {
			return err
		}
		if err := encodeOptionalNetwork(e, v.Network); err != nil {
			return err
		}
		return e.Write(v.ID[:])
	case AccountIndex64:
		if err := e.PushByte(junctionAccountIndex64); err != nil {
			return err
		}
		if err := encodeOptionalNetwork(e, v.Network); err != nil {
			return err
		}
		return e.EncodeUintCompact(*new(big.Int).SetUint64(v.Index))
	case AccountKey20:
		if err := e.PushByte(junctionAccountKey20); err != nil {
			return err
		}
		if err := encodeOptionalNetwork(e, v.Network); err != nil {
			return err
		}
		return e.Write(v.Key[:])
	case PalletInstance:
		return e.Write([]byte{junctionPalletInstance, v.Index})
	case GeneralIndex:
		return writeAll(e, []byte{junctionGeneralIndex}, compact(v.Index))
	case GeneralKey:
		if v.Length > 32 {
			return fmt.Errorf("general key length %d exceeds 32", v.Length)
		}
		if err := e.Write([]byte{junctionGeneralKey, v.Length}); err != nil {
			return err
		}
		return e.Write(v.Data[:])
	case OnlyChild:
		return e.PushByte(junctionOnlyChild)
	case GlobalConsensus:
		if v.Network == nil {
			return fmt.Errorf("global consensus requires a network")
		}
		if err := e.PushByte(junctionGlobalConsensus); err != nil {
			return err
		}
		return encodeNetwork(e, v.Network)
	default:
		return fmt.Errorf("unsupported junction type %T", j)
	}
}

func decodeJunction(d scale.Decoder) (Junction, error) {
	tag, err := d.ReadOneByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case junctionParachain:
		id, err := decodeCompact(d, math.MaxUint32)
		if err != nil {
			return nil, fmt.Errorf("parachain id: %w", err)
		}
		return Parachain{ID: uint32(id)}, nil
	case junctionAccountID32:
		network, err := decodeOptionalNetwork(d)
		if err != nil {
			return nil, err
		}
		j := AccountID32{Network: network}
		if err := d.Read(j.ID[:]); err != nil {
			return nil, err
		}
		return j, nil
	case junctionAccountIndex64:
		network, err := decodeOptionalNetwork(d)
		if err != nil {
			return nil, err
		}
		index, err := decodeCompact(d, math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("account index: %w", err)
		}
		return AccountIndex64{Network: network, Index: index}, nil
	case junctionAccountKey20:
		network, err := decodeOptionalNetwork(d)
		if err != nil {
			return nil, err
		}
		j := AccountKey20{Network: network}
		if err := d.Read(j.Key[:]); err != nil {
			return nil, err
		}
		return j, nil
	case junctionPalletInstance:
		b, err := d.ReadOneByte()
		if err != nil {
			return nil, err
		}
		return PalletInstance{Index: b}, nil
	case junctionGeneralIndex:
		// The wire type is u128; values beyond u64 are not representable.
		index, err := decodeCompact(d, math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("general index: %w", err)
		}
		return GeneralIndex{Index: index}, nil
	case junctionGeneralKey:
		length, err := d.ReadOneByte()
		if err != nil {
			return nil, err
		}
		if length > 32 {
			return nil, fmt.Errorf("general key length %d exceeds 32", length)
		}
		j := GeneralKey{Length: length}
		if err := d.Read(j.Data[:]); err != nil {
			return nil, err
		}
		return j, nil
	case junctionOnlyChild:
		return OnlyChild{}, nil
	case junctionPlurality:
		return nil, fmt.Errorf("plurality junctions are not supported")
	case junctionGlobalConsensus:
		network, err := decodeNetwork(d)
		if err != nil {
			return nil, err
		}
		return GlobalConsensus{Network: network}, nil
	default:
		return nil, fmt.Errorf("unknown junction variant %d", tag)
	}
}

func encodeOptionalNetwork(e scale.Encoder, n NetworkID) error {
	if n == nil {
		return e.PushByte(0)
	}
	if err := e.PushByte(1); err != nil {
		return err
	}
	return encodeNetwork(e, n)
}

func decodeOptionalNetwork(d scale.Decoder) (NetworkID, error) {
	some, err := d.ReadOneByte()
	if err != nil {
		return nil, err
	}
	switch some {
	case 0:
		return nil, nil
	case 1:
		return decodeNetwork(d)
	default:
		return nil, fmt.Errorf("invalid option tag %d", some)
	}
}

func encodeNetwork(e scale.Encoder, n NetworkID) error {
	switch v := n.(type) {
	case ByGenesis:
		if err := e.PushByte(networkByGenesis); err != nil {
			return err
		}
		return e.Write(v.Hash[:])
	case ByFork:
		var num [8]byte
		binary.LittleEndian.PutUint64(num[:], v.BlockNumber)
		return writeAll(e, []byte{networkByFork}, num[:], v.BlockHash[:])
	case Polkadot:
		return e.PushByte(networkPolkadot)
	case Kusama:
		return e.PushByte(networkKusama)
	case Westend:
		return e.PushByte(networkWestend)
	case Rococo:
		return e.PushByte(networkRococo)
	case Wococo:
		return e.PushByte(networkWococo)
	case Ethereum:
		return writeAll(e, []byte{networkEthereum}, compact(v.ChainID))
	case BitcoinCore:
		return e.PushByte(networkBitcoinCore)
	case BitcoinCash:
		return e.PushByte(networkBitcoinCash)
	case PolkadotBulletin:
		return e.PushByte(networkPolkadotBulletin)
	default:
		return fmt.Errorf("unsupported network type %T", n)
	}
}

func decodeNetwork(d scale.Decoder) (NetworkID, error) {
	tag, err := d.ReadOneByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case networkByGenesis:
		var n ByGenesis
		if err := d.Read(n.Hash[:]); err != nil {
			return nil, err
		}
		return n, nil
	case networkByFork:
		var num [8]byte
		if err := d.Read(num[:]); err != nil {
			return nil, err
		}
		n := ByFork{BlockNumber: binary.LittleEndian.Uint64(num[:])}
		if err := d.Read(n.BlockHash[:]); err != nil {
			return nil, err
		}
		return n, nil
	case networkPolkadot:
		return Polkadot{}, nil
	case networkKusama:
		return Kusama{}, nil
	case networkWestend:
		return Westend{}, nil
	case networkRococo:
		return Rococo{}, nil
	case networkWococo:
		return Wococo{}, nil
	case networkEthereum:
		id, err := decodeCompact(d, math.MaxUint64)
		if err != nil {
			return nil, fmt.Errorf("ethereum chain id: %w", err)
		}
		return Ethereum{ChainID: id}, nil
	case networkBitcoinCore:
		return BitcoinCore{}, nil
	case networkBitcoinCash:
		return BitcoinCash{}, nil
	case networkPolkadotBulletin:
		return PolkadotBulletin{}, nil
	default:
		return nil, fmt.Errorf("unknown network variant %d", tag)
	}
}

// compact returns the SCALE compact encoding of v.
func compact(v uint64) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = scale.NewEncoder(&buf).EncodeUintCompact(*new(big.Int).SetUint64(v))
	return buf.Bytes()
}

func decodeCompact(d scale.Decoder, max uint64) (uint64, error) {
	v, err := d.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > max {
		return 0, fmt.Errorf("value %s out of range (max %d)", v, max)
	}
	return v.Uint64(), nil
}

func writeAll(e scale.Encoder, chunks ...[]byte) error {
	for _, c := range chunks {
		if err := e.Write(c); err != nil {
			return err
		}
	}
	return nil
}

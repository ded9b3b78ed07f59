package location

import (
	"encoding/hex"
	"fmt"
)

// Junction is one step of a location's interior path.
//
// Every variant is a comparable value type, so two junctions are equal
// exactly when == holds.
type Junction interface {
	junction()
	String() string
}

// Parachain is a parachain of the relay chain, by id.
type Parachain struct {
	ID uint32
}

// AccountID32 is a 32-byte account, optionally scoped to a network.
type AccountID32 struct {
	Network NetworkID
	ID      [32]byte
}

// AccountIndex64 is an indexed account, optionally scoped to a network.
type AccountIndex64 struct {
	Network NetworkID
	Index   uint64
}

// AccountKey20 is a 20-byte (EVM-style) account key, optionally scoped to a
// network.
type AccountKey20 struct {
	Network NetworkID
	Key     [20]byte
}

// PalletInstance is a pallet by its runtime index.
type PalletInstance struct {
	Index uint8
}

// GeneralIndex is an opaque numeric index, typically an asset id.
type GeneralIndex struct {
	Index uint64
}

// GeneralKey is an opaque key of up to 32 bytes. Only the first Length
// bytes of Data are significant, but all 32 take part in equality.
type GeneralKey struct {
	Length uint8
	Data   [32]byte
}

// OnlyChild is the unambiguous child of a location.
type OnlyChild struct{}

// GlobalConsensus is the root of a whole consensus system.
type GlobalConsensus struct {
	Network NetworkID
}

func (Parachain) junction()       {}
func (AccountID32) junction()     {}
func (AccountIndex64) junction()  {}
func (AccountKey20) junction()    {}
func (PalletInstance) junction()  {}
func (GeneralIndex) junction()    {}
func (GeneralKey) junction()      {}
func (OnlyChild) junction()       {}
func (GlobalConsensus) junction() {}

func (j Parachain) String() string { return fmt.Sprintf("Parachain(%d)", j.ID) }

func (j AccountID32) String() string {
	return fmt.Sprintf("AccountId32(%s, 0x%s)", networkString(j.Network), hex.EncodeToString(j.ID[:]))
}

func (j AccountIndex64) String() string {
	return fmt.Sprintf("AccountIndex64(%s, %d)", networkString(j.Network), j.Index)
}

func (j AccountKey20) String() string {
	return fmt.Sprintf("AccountKey20(%s, 0x%s)", networkString(j.Network), hex.EncodeToString(j.Key[:]))
}

func (j PalletInstance) String() string { return fmt.Sprintf("PalletInstance(%d)", j.Index) }
func (j GeneralIndex) String() string   { return fmt.Sprintf("GeneralIndex(%d)", j.Index) }

func (j GeneralKey) String() string {
	return fmt.Sprintf("GeneralKey(0x%s)", hex.EncodeToString(j.Bytes()))
}

func (OnlyChild) String() string { return "OnlyChild" }

func (j GlobalConsensus) String() string {
	return fmt.Sprintf("GlobalConsensus(%s)", networkString(j.Network))
}

// NewGeneralKey builds a GeneralKey from up to 32 bytes of key material.
func NewGeneralKey(key []byte) (GeneralKey, error) {
	if len(key) > 32 {
		return GeneralKey{}, fmt.Errorf("general key too long: %d bytes (max 32)", len(key))
	}
	var k GeneralKey
	k.Length = uint8(len(key))
	copy(k.Data[:], key)
	return k, nil
}

// Bytes returns the significant prefix of the key.
func (j GeneralKey) Bytes() []byte {
	n := int(j.Length)
	if n > len(j.Data) {
		n = len(j.Data)
	}
	return j.Data[:n]
}

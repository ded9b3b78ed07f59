package location

import (
	"encoding/hex"
	"fmt"
)

// NetworkID identifies a consensus system. A nil NetworkID means no network
// was specified.
type NetworkID interface {
	networkID()
	String() string
}

// ByGenesis identifies a network by its genesis block hash.
type ByGenesis struct {
	Hash [32]byte
}

// ByFork identifies a network forked at the given block.
type ByFork struct {
	BlockNumber uint64
	BlockHash   [32]byte
}

// Polkadot is the Polkadot relay chain consensus.
type Polkadot struct{}

// Kusama is the Kusama relay chain consensus.
type Kusama struct{}

// Westend is the Westend test relay chain consensus.
type Westend struct{}

// Rococo is the Rococo test relay chain consensus.
type Rococo struct{}

// Wococo is the Wococo test relay chain consensus.
type Wococo struct{}

// Ethereum is an EVM chain identified by its chain id.
type Ethereum struct {
	ChainID uint64
}

// BitcoinCore is the Bitcoin Core network.
type BitcoinCore struct{}

// BitcoinCash is the Bitcoin Cash network.
type BitcoinCash struct{}

// PolkadotBulletin is the Polkadot Bulletin chain.
type PolkadotBulletin struct{}

func (ByGenesis) networkID()        {}
func (ByFork) networkID()           {}
func (Polkadot) networkID()         {}
func (Kusama) networkID()           {}
func (Westend) networkID()          {}
func (Rococo) networkID()           {}
func (Wococo) networkID()           {}
func (Ethereum) networkID()         {}
func (BitcoinCore) networkID()      {}
func (BitcoinCash) networkID()      {}
func (PolkadotBulletin) networkID() {}

func (n ByGenesis) String() string { return "ByGenesis(0x" + hex.EncodeToString(n.Hash[:]) + ")" }

func (n ByFork) String() string {
	return fmt.Sprintf("ByFork(%d, 0x%s)", n.BlockNumber, hex.EncodeToString(n.BlockHash[:]))
}

func (Polkadot) String() string         { return "Polkadot" }
func (Kusama) String() string           { return "Kusama" }
func (Westend) String() string          { return "Westend" }
func (Rococo) String() string           { return "Rococo" }
func (Wococo) String() string           { return "Wococo" }
func (n Ethereum) String() string       { return fmt.Sprintf("Ethereum(%d)", n.ChainID) }
func (BitcoinCore) String() string      { return "BitcoinCore" }
func (BitcoinCash) String() string      { return "BitcoinCash" }
func (PolkadotBulletin) String() string { return "PolkadotBulletin" }

// simpleNetworks maps the payload-free network variants to their snake_case
// names in the canonical JSON form.
var simpleNetworks = map[NetworkID]string{
	Polkadot{}:         "polkadot",
	Kusama{}:           "kusama",
	Westend{}:          "westend",
	Rococo{}:           "rococo",
	Wococo{}:           "wococo",
	BitcoinCore{}:      "bitcoin_core",
	BitcoinCash{}:      "bitcoin_cash",
	PolkadotBulletin{}: "polkadot_bulletin",
}

func networkString(n NetworkID) string {
	if n == nil {
		return "None"
	}
	return n.String()
}

// Package deployment holds the built-in reserve rule tables of each Asset Hub
// runtime.
package deployment

import (
	"fmt"
	"slices"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// Deployment names accepted by Lookup.
const (
	AssetHubPolkadotName = "asset-hub-polkadot"
	AssetHubKusamaName   = "asset-hub-kusama"
)

// Params are the runtime constants a table is built from.
type Params struct {
	// AssetHubID is the parachain id of Asset Hub on the remote relay chain.
	AssetHubID uint32
	// EthereumChainID identifies the bridged Ethereum network.
	EthereumChainID uint64
}

// DefaultParams returns the mainnet constants.
func DefaultParams() Params {
	return Params{AssetHubID: 1000, EthereumChainID: 1}
}

// EthereumEcosystem is the root of the bridged Ethereum network,
// (2, [GlobalConsensus(Ethereum{chain_id})]).
func (p Params) EthereumEcosystem() location.Location {
	return location.New(2, location.GlobalConsensus{Network: location.Ethereum{ChainID: p.EthereumChainID}})
}

// KusamaEcosystem is (2, [GlobalConsensus(Kusama)]).
func KusamaEcosystem() location.Location {
	return location.New(2, location.GlobalConsensus{Network: location.Kusama{}})
}

// PolkadotEcosystem is (2, [GlobalConsensus(Polkadot)]).
func PolkadotEcosystem() location.Location {
	return location.New(2, location.GlobalConsensus{Network: location.Polkadot{}})
}

// AssetHubPolkadot is the table of the Polkadot Asset Hub. Kusama assets are
// reserve-backed on Kusama Asset Hub; Ethereum assets are backed by Ethereum
// itself.
func AssetHubPolkadot(p Params) reserve.RuleTable {
	return reserve.RuleTable{
		Deployment: AssetHubPolkadotName,
		Rules: []reserve.Rule{
			reserve.SiblingParachainRule{},
			reserve.EcosystemPrefixRule{
				RuleName: "kusama_ecosystem",
				Prefixes: []location.Location{KusamaEcosystem()},
				Reserve: location.New(2,
					location.GlobalConsensus{Network: location.Kusama{}},
					location.Parachain{ID: p.AssetHubID}),
			},
			reserve.EcosystemPrefixRule{
				RuleName: "ethereum_ecosystem",
				Prefixes: []location.Location{p.EthereumEcosystem()},
				Reserve:  p.EthereumEcosystem(),
			},
		},
	}
}

// AssetHubKusama is the table of the Kusama Asset Hub. Polkadot and Ethereum
// assets both arrive through Polkadot Asset Hub, which is their reserve.
func AssetHubKusama(p Params) reserve.RuleTable {
	return reserve.RuleTable{
		Deployment: AssetHubKusamaName,
		Rules: []reserve.Rule{
			reserve.SiblingParachainRule{},
			reserve.EcosystemPrefixRule{
				RuleName: "polkadot_or_ethereum_ecosystem",
				Prefixes: []location.Location{PolkadotEcosystem(), p.EthereumEcosystem()},
				Reserve: location.New(2,
					location.GlobalConsensus{Network: location.Polkadot{}},
					location.Parachain{ID: p.AssetHubID}),
			},
		},
	}
}

var tables = map[string]func(Params) reserve.RuleTable{
	AssetHubPolkadotName: AssetHubPolkadot,
	AssetHubKusamaName:   AssetHubKusama,
}

// Names returns the built-in deployment names, sorted.
func Names() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the built-in table for the named deployment.
func Lookup(name string, p Params) (reserve.RuleTable, error) {
	build, ok := tables[name]
	if !ok {
		return reserve.RuleTable{}, fmt.Errorf("unknown deployment %q (known: %v)", name, Names())
	}
	return build(p), nil
}

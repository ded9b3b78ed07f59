package reserve

import (
	"fmt"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
)

// Rule kinds as they appear in the canonical description of a table.
const (
	KindSiblingParachain = "sibling_parachain"
	KindEcosystemPrefix  = "ecosystem_prefix"
)

// Rule is one entry of a RuleTable.
//
// Sealed: SiblingParachainRule and EcosystemPrefixRule are the only
// implementations.
type Rule interface {
	// Name identifies the rule in diagnostics and resolution reports.
	Name() string
	// Match returns the records for asset and true when the rule applies.
	Match(asset location.Location) ([]Record, bool)
	// ToIR returns the canonical description used for the table hash.
	ToIR() ir.IRObject

	rule()
}

// SiblingParachainRule matches exactly (1, [Parachain(id)]): the native
// asset of a sibling parachain. The sibling is its own reserve and the asset
// is teleportable there.
type SiblingParachainRule struct{}

func (SiblingParachainRule) rule() {}

// Name implements Rule.
func (SiblingParachainRule) Name() string { return KindSiblingParachain }

// Match implements Rule.
func (SiblingParachainRule) Match(asset location.Location) ([]Record, bool) {
	if asset.Parents != 1 || len(asset.Interior) != 1 {
		return nil, false
	}
	para, ok := asset.Interior[0].(location.Parachain)
	if !ok {
		return nil, false
	}
	return []Record{{
		Reserve:      location.New(1, para),
		Teleportable: true,
	}}, true
}

// ToIR implements Rule.
func (SiblingParachainRule) ToIR() ir.IRObject {
	return ir.IRObject{"kind": ir.IRString(KindSiblingParachain)}
}

// EcosystemPrefixRule matches any asset starting with one of Prefixes and
// yields the fixed (Reserve, Teleportable) record.
type EcosystemPrefixRule struct {
	RuleName     string
	Prefixes     []location.Location
	Reserve      location.Location
	Teleportable bool
}

func (EcosystemPrefixRule) rule() {}

// Name implements Rule.
func (r EcosystemPrefixRule) Name() string { return r.RuleName }

// Match implements Rule.
func (r EcosystemPrefixRule) Match(asset location.Location) ([]Record, bool) {
	for _, prefix := range r.Prefixes {
		if asset.StartsWith(prefix) {
			parents, interior := r.Reserve.Unpack()
			reserve := location.Location{Parents: parents, Interior: interior}
			return []Record{{Reserve: reserve, Teleportable: r.Teleportable}}, true
		}
	}
	return nil, false
}

// ToIR implements Rule.
func (r EcosystemPrefixRule) ToIR() ir.IRObject {
	prefixes := make(ir.IRArray, len(r.Prefixes))
	for i, p := range r.Prefixes {
		prefixes[i] = p.ToIR()
	}
	return ir.IRObject{
		"kind":         ir.IRString(KindEcosystemPrefix),
		"name":         ir.IRString(r.RuleName),
		"prefixes":     prefixes,
		"reserve":      r.Reserve.ToIR(),
		"teleportable": ir.IRBool(r.Teleportable),
	}
}

// RuleTable is the ordered rule list for one deployment.
type RuleTable struct {
	Deployment string
	Rules      []Rule
}

// ToIR returns the canonical description of the table.
func (t RuleTable) ToIR() ir.IRObject {
	rules := make(ir.IRArray, len(t.Rules))
	for i, r := range t.Rules {
		rules[i] = r.ToIR()
	}
	return ir.IRObject{
		"deployment": ir.IRString(t.Deployment),
		"rules":      rules,
	}
}

// Hash returns the domain-separated SHA-256 of the table's canonical
// description. Any change to the rules or their order changes the hash.
func (t RuleTable) Hash() (string, error) {
	h, err := ir.ContentHash(ir.DomainRules, t.ToIR())
	if err != nil {
		return "", fmt.Errorf("rule table %q: %w", t.Deployment, err)
	}
	return h, nil
}

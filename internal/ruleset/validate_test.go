package ruleset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xcmreserve/internal/deployment"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateBuiltinTables(t *testing.T) {
	for _, name := range deployment.Names() {
		table, err := deployment.Lookup(name, deployment.DefaultParams())
		require.NoError(t, err)
		assert.Empty(t, Validate(table), name)
	}
}

func TestValidateEmptyTable(t *testing.T) {
	errs := Validate(reserve.RuleTable{})
	assert.Equal(t, []string{ErrEmptyDeployment, ErrEmptyTable}, codes(errs))
}

func TestValidateMisordered(t *testing.T) {
	table, err := CompileFile(filepath.Join("testdata", "misordered.cue"))
	require.NoError(t, err)

	errs := Validate(table)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrSiblingAfterPrefix, errs[0].Code)
	assert.Equal(t, "rules[1]", errs[0].Field)
	assert.Equal(t, "[E205] rules[1]: sibling_parachain must precede all ecosystem_prefix rules", errs[0].Error())
}

func TestValidatePrefixRules(t *testing.T) {
	kusama := location.New(2, location.GlobalConsensus{Network: location.Kusama{}})
	kusamaHub := location.New(2, location.GlobalConsensus{Network: location.Kusama{}}, location.Parachain{ID: 1000})

	table := reserve.RuleTable{
		Deployment: "bad",
		Rules: []reserve.Rule{
			reserve.SiblingParachainRule{},
			reserve.SiblingParachainRule{},
			reserve.EcosystemPrefixRule{RuleName: "empty", Reserve: kusamaHub},
			reserve.EcosystemPrefixRule{RuleName: "kusama", Prefixes: []location.Location{kusama}, Reserve: kusamaHub},
			reserve.EcosystemPrefixRule{RuleName: "kusama", Prefixes: []location.Location{kusamaHub}, Reserve: kusamaHub},
			reserve.EcosystemPrefixRule{
				RuleName: "shape",
				Prefixes: []location.Location{location.New(1, location.Parachain{ID: 2000})},
				Reserve:  location.Parent(),
			},
		},
	}

	assert.Equal(t, []string{
		ErrDuplicateRuleName, ErrDuplicateSibling,
		ErrEmptyPrefixes,
		ErrDuplicateRuleName, ErrShadowedPrefix,
		ErrReserveOutsideScope, ErrPrefixShape,
	}, codes(Validate(table)))
}

// Package ruleset compiles reserve rule tables authored in CUE and checks
// them against the ordering contract of the resolver.
package ruleset

import (
	_ "embed"
	stderrors "errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

//go:embed schema.cue
var schemaSource string

// CompileFile reads and compiles a rule table from a .cue file.
func CompileFile(path string) (reserve.RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reserve.RuleTable{}, fmt.Errorf("read rules file: %w", err)
	}
	ctx := cuecontext.New()
	return Compile(ctx.CompileBytes(data, cue.Filename(path)))
}

// Compile converts a CUE value holding deployment and rules into a
// RuleTable. The value is unified with the embedded schema first, so
// structural mistakes are reported with their source position.
//
//	deployment: "asset-hub-polkadot"
//	rules: [
//		{kind: "sibling_parachain"},
//		{kind: "ecosystem_prefix", name: "kusama_ecosystem", prefixes: [...], reserve: {...}},
//	]
func Compile(v cue.Value) (reserve.RuleTable, error) {
	if err := v.Err(); err != nil {
		return reserve.RuleTable{}, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return reserve.RuleTable{}, formatCUEError(err)
	}
	v = schema.LookupPath(cue.ParsePath("#RuleTable")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return reserve.RuleTable{}, formatCUEError(err)
	}

	table := reserve.RuleTable{}
	deployment, err := v.LookupPath(cue.ParsePath("deployment")).String()
	if err != nil {
		return reserve.RuleTable{}, formatCUEError(err)
	}
	table.Deployment = deployment

	iter, err := v.LookupPath(cue.ParsePath("rules")).List()
	if err != nil {
		return reserve.RuleTable{}, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		rule, err := compileRule(iter.Value(), fmt.Sprintf("rules[%d]", i))
		if err != nil {
			return reserve.RuleTable{}, err
		}
		table.Rules = append(table.Rules, rule)
	}
	return table, nil
}

func compileRule(v cue.Value, field string) (reserve.Rule, error) {
	kind, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	switch kind {
	case reserve.KindSiblingParachain:
		return reserve.SiblingParachainRule{}, nil
	case reserve.KindEcosystemPrefix:
		rule := reserve.EcosystemPrefixRule{}
		if rule.RuleName, err = v.LookupPath(cue.ParsePath("name")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if rule.Teleportable, err = v.LookupPath(cue.ParsePath("teleportable")).Bool(); err != nil {
			return nil, formatCUEError(err)
		}

		prefixes, err := v.LookupPath(cue.ParsePath("prefixes")).List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; prefixes.Next(); i++ {
			loc, err := compileLocation(prefixes.Value(), fmt.Sprintf("%s.prefixes[%d]", field, i))
			if err != nil {
				return nil, err
			}
			rule.Prefixes = append(rule.Prefixes, loc)
		}

		rule.Reserve, err = compileLocation(v.LookupPath(cue.ParsePath("reserve")), field+".reserve")
		if err != nil {
			return nil, err
		}
		return rule, nil
	default:
		return nil, &CompileError{Field: field + ".kind", Message: fmt.Sprintf("unknown rule kind %q", kind), Pos: v.Pos()}
	}
}

func compileLocation(v cue.Value, field string) (location.Location, error) {
	raw, err := toIR(v)
	if err != nil {
		return location.Location{}, err
	}
	loc, err := location.FromIR(raw)
	if err != nil {
		return location.Location{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return loc, nil
}

// toIR walks a concrete CUE value into an IR value. Floats and nulls are
// rejected, matching the canonical JSON rules.
func toIR(v cue.Value) (ir.IRValue, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind %s (floats and nulls are not allowed)", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError is a rule table compilation failure with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return stderrors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}

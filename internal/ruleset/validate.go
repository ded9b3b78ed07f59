package ruleset

import (
	"fmt"

	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/reserve"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyTable          = "E201" // table has no rules
	ErrEmptyPrefixes       = "E202" // prefix rule has no prefixes
	ErrPrefixShape         = "E203" // prefix is not (2, [GlobalConsensus(..), ...])
	ErrShadowedPrefix      = "E204" // prefix already covered by an earlier one
	ErrSiblingAfterPrefix  = "E205" // sibling rule placed after a prefix rule
	ErrDuplicateSibling    = "E206" // more than one sibling rule
	ErrEmptyDeployment     = "E207" // deployment name missing
	ErrDuplicateRuleName   = "E208" // two rules share a name
	ErrUnknownRuleVariant  = "E209" // rule type not recognized
	ErrReserveOutsideScope = "E210" // reserve is Here or the bare parent
)

// ValidationError represents a rule table validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a table against the resolver's ordering contract.
// Returns all errors found (does not fail-fast).
func Validate(table reserve.RuleTable) []ValidationError {
	var errs []ValidationError

	if table.Deployment == "" {
		errs = append(errs, ValidationError{
			Field:   "deployment",
			Message: "deployment name is required",
			Code:    ErrEmptyDeployment,
		})
	}
	if len(table.Rules) == 0 {
		errs = append(errs, ValidationError{
			Field:   "rules",
			Message: "at least one rule is required",
			Code:    ErrEmptyTable,
		})
		return errs
	}

	var (
		seenPrefixRule bool
		seenSibling    bool
		earlier        []location.Location
		names          = make(map[string]string)
	)

	for i, rule := range table.Rules {
		field := fmt.Sprintf("rules[%d]", i)

		if prev, ok := names[rule.Name()]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("rule name %q already used by %s", rule.Name(), prev),
				Code:    ErrDuplicateRuleName,
			})
		} else {
			names[rule.Name()] = field
		}

		switch r := rule.(type) {
		case reserve.SiblingParachainRule:
			if seenSibling {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "only one sibling_parachain rule is allowed",
					Code:    ErrDuplicateSibling,
				})
			}
			if seenPrefixRule {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "sibling_parachain must precede all ecosystem_prefix rules",
					Code:    ErrSiblingAfterPrefix,
				})
			}
			seenSibling = true

		case reserve.EcosystemPrefixRule:
			seenPrefixRule = true
			var ruleErrs []ValidationError
			ruleErrs, earlier = validatePrefixRule(r, field, earlier)
			errs = append(errs, ruleErrs...)

		default:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unsupported rule type %T", rule),
				Code:    ErrUnknownRuleVariant,
			})
		}
	}

	return errs
}

// validatePrefixRule checks one prefix rule and returns the prefixes seen so
// far including its own.
func validatePrefixRule(r reserve.EcosystemPrefixRule, field string, earlier []location.Location) ([]ValidationError, []location.Location) {
	var errs []ValidationError

	if len(r.Prefixes) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".prefixes",
			Message: "at least one prefix is required",
			Code:    ErrEmptyPrefixes,
		})
	}
	if r.Reserve.IsHere() && r.Reserve.Parents <= 1 {
		errs = append(errs, ValidationError{
			Field:   field + ".reserve",
			Message: fmt.Sprintf("reserve %s cannot back a foreign ecosystem", r.Reserve),
			Code:    ErrReserveOutsideScope,
		})
	}

	for j, prefix := range r.Prefixes {
		pf := fmt.Sprintf("%s.prefixes[%d]", field, j)
		if !isEcosystemRoot(prefix) {
			errs = append(errs, ValidationError{
				Field:   pf,
				Message: fmt.Sprintf("prefix %s must start at (2, [GlobalConsensus(..)])", prefix),
				Code:    ErrPrefixShape,
			})
		}
		for _, prev := range earlier {
			if prefix.StartsWith(prev) {
				errs = append(errs, ValidationError{
					Field:   pf,
					Message: fmt.Sprintf("prefix %s is unreachable, %s matches first", prefix, prev),
					Code:    ErrShadowedPrefix,
				})
				break
			}
		}
		earlier = append(earlier, prefix)
	}

	return errs, earlier
}

func isEcosystemRoot(l location.Location) bool {
	if l.Parents != 2 || len(l.Interior) == 0 {
		return false
	}
	_, ok := l.Interior[0].(location.GlobalConsensus)
	return ok
}

// Package reserve decides, for any asset location, which locations act as
// its reserve and whether the asset may be teleported there.
//
// Resolution is a pure function of the asset and a RuleTable: rules are
// evaluated in table order and the first match wins. No I/O and no shared
// mutable state, so a Resolver is safe for concurrent use.
package reserve

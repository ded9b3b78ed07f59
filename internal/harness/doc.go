// Package harness runs reserve migration scenarios end to end.
//
// A scenario is a YAML file that names a rule table, seeds a registry with
// foreign assets and optionally stale stored records, then executes a flow
// of steps:
//
//	resolve  evaluate the rule table for one location
//	apply    run the migration against the scenario store
//	check    run a pre or post upgrade verification
//
// Every step appends a trace event with its structured output. Steps may
// carry an expect clause, a subset match on that output. After the flow,
// assertions check the trace shape and the records left in the store.
//
// Runs use a fresh in-memory SQLite store, a deterministic trace clock and
// sequential run ids, so traces can be compared against golden files.
package harness

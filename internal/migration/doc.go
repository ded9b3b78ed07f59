// Package migration materializes resolved reserve records for every
// registered foreign asset and verifies persisted records against the
// current rule table.
//
// Apply is idempotent: with an unchanged rule table a second run leaves the
// stored bytes untouched. Check never writes. Only failures of the
// registry, the reserve store or the ledger abort a run; an asset without a
// reserve is persisted as an empty list and reported.
//
// A Migration is not safe for concurrent Apply calls against the same
// store; callers serialize runs.
package migration

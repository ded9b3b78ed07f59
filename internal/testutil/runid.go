package testutil

import "fmt"

// SequentialRunIDs returns a run id generator yielding prefix-1, prefix-2,
// and so on. It matches the signature of migration.WithRunIDs.
func SequentialRunIDs(prefix string) func() (string, error) {
	clock := NewDeterministicClock()
	return func() (string, error) {
		return fmt.Sprintf("%s-%d", prefix, clock.Next()), nil
	}
}

// FixedRunID returns a generator that always yields id. An empty id
// becomes "test-run".
func FixedRunID(id string) func() (string, error) {
	if id == "" {
		id = "test-run"
	}
	return func() (string, error) { return id, nil }
}

// Package location models XCM v4 locations: a count of parent hops plus an
// ordered interior path of at most eight junctions.
//
// Locations are plain values. Equality is structural and never normalizes
// between different hop counts, so (1, [Parachain(1000)]) seen from a
// parachain and (0, [Parachain(1000)]) seen from the relay chain are
// distinct values.
//
// Three encodings are provided:
//   - SCALE, the platform wire layout, used for storage keys
//   - canonical JSON (see package ir), used for persistence and hashing
//   - a human-readable String form for logs and CLI output
package location

// Package ir provides the canonical value representation shared by every
// persisted or hashed artifact: reserve records, rule table descriptions and
// CLI JSON output.
//
// This package imports nothing internal. All other internal packages may
// import it.
//
// Constraints:
//   - No float types anywhere; numbers are int64
//   - No null; absent optional fields are omitted
//   - All JSON keys use snake_case
//   - Canonical bytes follow RFC 8785 so re-encoding equal values is
//     byte-identical
package ir

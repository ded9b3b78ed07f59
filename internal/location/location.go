package location

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxJunctions is the maximum length of a location's interior path.
const MaxJunctions = 8

// Location is a relative path through the consensus hierarchy: Parents hops
// up, then down through Interior.
//
// The zero value is (0, Here), the current consensus system.
type Location struct {
	Parents  uint8
	Interior []Junction
}

// New builds a location. It panics when more than MaxJunctions junctions are
// given; use Here().Append to build untrusted input.
func New(parents uint8, junctions ...Junction) Location {
	if len(junctions) > MaxJunctions {
		panic(fmt.Sprintf("location: %d junctions exceeds maximum of %d", len(junctions), MaxJunctions))
	}
	return Location{Parents: parents, Interior: slices.Clone(junctions)}
}

// Here is the current consensus system, (0, Here).
func Here() Location {
	return Location{}
}

// Parent is the immediate parent consensus system, (1, Here).
func Parent() Location {
	return Location{Parents: 1}
}

// Unpack returns the parent count and a copy of the interior junctions.
func (l Location) Unpack() (uint8, []Junction) {
	return l.Parents, slices.Clone(l.Interior)
}

// Len returns the number of interior junctions.
func (l Location) Len() int {
	return len(l.Interior)
}

// IsHere reports whether the interior path is empty.
func (l Location) IsHere() bool {
	return len(l.Interior) == 0
}

// StartsWith reports whether prefix has the same parent count and its
// junctions are a prefix of l's junctions. A location starts with itself.
func (l Location) StartsWith(prefix Location) bool {
	if l.Parents != prefix.Parents || len(prefix.Interior) > len(l.Interior) {
		return false
	}
	for i, j := range prefix.Interior {
		if l.Interior[i] != j {
			return false
		}
	}
	return true
}

// Append returns a new location with suffix added to the interior path.
// The receiver is never modified.
func (l Location) Append(suffix ...Junction) (Location, error) {
	if n := len(l.Interior) + len(suffix); n > MaxJunctions {
		return Location{}, &OverflowError{Location: l, Extra: len(suffix)}
	}
	interior := make([]Junction, 0, len(l.Interior)+len(suffix))
	interior = append(interior, l.Interior...)
	interior = append(interior, suffix...)
	return Location{Parents: l.Parents, Interior: interior}, nil
}

// Equal reports structural equality.
func (l Location) Equal(other Location) bool {
	return l.Parents == other.Parents && slices.Equal(l.Interior, other.Interior)
}

// String renders e.g. (2, [GlobalConsensus(Kusama), Parachain(1000)]).
func (l Location) String() string {
	if len(l.Interior) == 0 {
		return fmt.Sprintf("(%d, Here)", l.Parents)
	}
	parts := make([]string, len(l.Interior))
	for i, j := range l.Interior {
		parts[i] = j.String()
	}
	return fmt.Sprintf("(%d, [%s])", l.Parents, strings.Join(parts, ", "))
}

// OverflowError reports an Append that would exceed MaxJunctions.
type OverflowError struct {
	Location Location
	Extra    int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("location %s: appending %d junctions exceeds maximum of %d",
		e.Location, e.Extra, MaxJunctions)
}

// IsOverflowError reports whether err is or wraps an *OverflowError.
func IsOverflowError(err error) bool {
	var oe *OverflowError
	return errors.As(err, &oe)
}

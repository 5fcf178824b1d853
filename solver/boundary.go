package solver

import "fmt"

// Boundary selects how a partial derivative is closed at a domain face where
// the neighbouring sample does not exist.
type Boundary uint8

const (
	// BoundaryZero samples the missing neighbour as zero. Together with the
	// staggering this closes the domain losslessly (PEC/PMC walls).
	BoundaryZero Boundary = iota
	// BoundaryNeumann forces the derivative across the face to zero. It is
	// not energy conserving.
	BoundaryNeumann
	// BoundaryPeriodic wraps to the opposite face.
	BoundaryPeriodic
)

var boundaryNames = [...]string{"zero", "neumann", "periodic"}

func (b Boundary) String() string {
	if int(b) < len(boundaryNames) {
		return boundaryNames[b]
	}
	return fmt.Sprintf("Boundary(%d)", uint8(b))
}

// ParseBoundary converts a configuration name into a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	if s == "" {
		return BoundaryZero, nil
	}
	for i, name := range boundaryNames {
		if s == name {
			return Boundary(i), nil
		}
	}
	return 0, fmt.Errorf("unknown boundary %q", s)
}

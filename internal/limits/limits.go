package limits

import (
	"errors"
	"fmt"
)

// Host ceilings. The object ceiling is split between standard and low-LOD objects.
const (
	DefaultMaxObjects            = 1000
	DefaultMaxEntryInfoNodes     = 72000
	DefaultMaxPointerSingleLinks = 85000
	DefaultMaxPointerDoubleLinks = 74000
)

// ErrInvalidLimits is returned by Validate.
var ErrInvalidLimits = errors.New("invalid limits")

// Limits holds the admission ceilings.
type Limits struct {
	MaxObjects            int
	MaxStandard           int
	MaxLowLOD             int
	MaxEntryInfoNodes     int
	MaxPointerSingleLinks int
	MaxPointerDoubleLinks int
}

// DefaultLimits returns the stock host ceilings.
func DefaultLimits() Limits {
	return Split(Limits{
		MaxObjects:            DefaultMaxObjects,
		MaxEntryInfoNodes:     DefaultMaxEntryInfoNodes,
		MaxPointerSingleLinks: DefaultMaxPointerSingleLinks,
		MaxPointerDoubleLinks: DefaultMaxPointerDoubleLinks,
	}, 0)
}

// Split divides MaxObjects between the two categories. maxStandard <= 0 gives
// standard objects half and low-LOD objects the remainder.
func Split(l Limits, maxStandard int) Limits {
	if maxStandard <= 0 {
		maxStandard = l.MaxObjects / 2
	}
	l.MaxStandard = maxStandard
	l.MaxLowLOD = l.MaxObjects - maxStandard
	return l
}

// Validate checks that every ceiling is usable and the category ceilings add up.
func (l Limits) Validate() error {
	switch {
	case l.MaxObjects <= 0:
		return fmt.Errorf("%w: maxObjects must be positive, got %d", ErrInvalidLimits, l.MaxObjects)
	case l.MaxStandard < 0 || l.MaxLowLOD < 0:
		return fmt.Errorf("%w: category ceilings must not be negative (%d/%d)", ErrInvalidLimits, l.MaxStandard, l.MaxLowLOD)
	case l.MaxStandard+l.MaxLowLOD != l.MaxObjects:
		return fmt.Errorf("%w: standard %d + low LOD %d != max objects %d", ErrInvalidLimits, l.MaxStandard, l.MaxLowLOD, l.MaxObjects)
	case l.MaxEntryInfoNodes <= 0 || l.MaxPointerSingleLinks <= 0 || l.MaxPointerDoubleLinks <= 0:
		return fmt.Errorf("%w: pool ceilings must be positive", ErrInvalidLimits)
	}
	return nil
}

// poolCeilings is indexed like core.Pools.
func (l Limits) poolCeilings() [3]int {
	return [3]int{l.MaxEntryInfoNodes, l.MaxPointerSingleLinks, l.MaxPointerDoubleLinks}
}

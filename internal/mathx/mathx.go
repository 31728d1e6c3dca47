package mathx

import (
	"golang.org/x/exp/constraints"
)

// ConvertScale maps x from [xMin, xMax] onto [yMin, yMax]. A degenerate
// source range maps everything to the midpoint of the target range.
func ConvertScale[X constraints.Float](x, xMin, xMax, yMin, yMax X) X {
	if xMax == xMin {
		return (yMin + yMax) / 2
	}
	return yMin + (yMax-yMin)*(x-xMin)/(xMax-xMin)
}

// Clamp limits x to [lo, hi].
func Clamp[X constraints.Integer | constraints.Float](x, lo, hi X) X {
	return min(max(x, lo), hi)
}

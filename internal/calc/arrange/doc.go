// Package arrange turns required steel areas into bar arrangements that can
// actually be fixed: a bar count, diameter and number of rows for beams and
// columns, or a diameter and spacing per metre for slabs, walls and bases.
//
// Every arrangement satisfies count × bar area ≥ required area and
// rows = ⌈count / MaxBarsPerRow⌉. When the clear gap between bars in a full
// row would be smaller than max(φ, hagg + 5 mm), or more than MaxRows rows are
// needed, the next larger diameter is tried; if none fits, Arrange fails
// with an UNARRANGEABLE error.
package arrange

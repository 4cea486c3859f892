// Package position implements the world-coordinate primitives the rest of
// the harness works in: a local/world position triple and the region and
// offset arithmetic built on top of it.
package position

import "fmt"

// Position is a signed integer coordinate triple in world space.
type Position struct {
	X, Y, Z int
}

// New constructs a Position.
func New(x, y, z int) Position {
	return Position{X: x, Y: y, Z: z}
}

// Add returns the componentwise sum of p and o, used to translate a local
// test-spec position into a world position via a per-test offset.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// String renders the position as "x y z", the tokenisation administrative
// commands expect.
func (p Position) String() string {
	return fmt.Sprintf("%d %d %d", p.X, p.Y, p.Z)
}

// Region is an axis-aligned block volume, inclusive on both ends.
type Region struct {
	Min, Max Position
}

// NewRegion builds a Region, panicking if Min is not componentwise <= Max;
// callers constructing regions from test-spec data should validate with
// Valid first if the input is untrusted.
func NewRegion(min, max Position) Region {
	r := Region{Min: min, Max: max}
	if !r.Valid() {
		panic(fmt.Sprintf("invalid region: min %v must be <= max %v componentwise", min, max))
	}
	return r
}

// Valid reports whether Min <= Max componentwise, the invariant the base
// specification places on Fill regions.
func (r Region) Valid() bool {
	return r.Min.X <= r.Max.X && r.Min.Y <= r.Max.Y && r.Min.Z <= r.Max.Z
}

// Offset translates both corners of the region by o.
func (r Region) Offset(o Position) Region {
	return Region{Min: r.Min.Add(o), Max: r.Max.Add(o)}
}

// Contains reports whether p falls within r, inclusive on both ends.
func (r Region) Contains(p Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X &&
		p.Y >= r.Min.Y && p.Y <= r.Max.Y &&
		p.Z >= r.Min.Z && p.Z <= r.Max.Z
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Union returns the smallest region enclosing both a and b.
func Union(a, b Region) Region {
	return Region{
		Min: New(minInt(a.Min.X, b.Min.X), minInt(a.Min.Y, b.Min.Y), minInt(a.Min.Z, b.Min.Z)),
		Max: New(maxInt(a.Max.X, b.Max.X), maxInt(a.Max.Y, b.Max.Y), maxInt(a.Max.Z, b.Max.Z)),
	}
}

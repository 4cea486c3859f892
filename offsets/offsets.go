// Package offsets implements the offset allocator: it hands each parallel
// test its own region of the world so tests never collide, the same way
// this codebase's room manager hands each connecting player a room with
// spare capacity before opening a new one, generalised here from
// "find a room with a free seat" to "lay tests out on a fixed grid".
package offsets

import (
	"github.com/lguibr/flintbench/position"
)

// GridShape describes the horizontal grid the allocator lays tests out on.
type GridShape struct {
	Columns     int
	Rows        int
	CellSpacing int
}

// DefaultGrid is a 10x10 grid spaced 64 blocks apart on each axis, wide
// enough that any single test's region, plus its own working margin,
// can't reach into a neighbouring cell.
var DefaultGrid = GridShape{Columns: 10, Rows: 10, CellSpacing: 64}

// DefaultOffsetFor returns the world-space offset for the test at index,
// laid out row by row on grid (consecutive indices fill a row's Columns
// along X before moving one row along Z), paging upward along Y once a
// single page's Columns*Rows cells are exhausted. Distinct indices
// always receive distinct offsets, regardless of total.
func DefaultOffsetFor(index int, grid GridShape) position.Position {
	if grid.Columns <= 0 {
		grid.Columns = DefaultGrid.Columns
	}
	if grid.Rows <= 0 {
		grid.Rows = DefaultGrid.Rows
	}
	if grid.CellSpacing <= 0 {
		grid.CellSpacing = DefaultGrid.CellSpacing
	}

	perPage := grid.Columns * grid.Rows
	page := index / perPage
	within := index % perPage
	col := within % grid.Columns
	row := within / grid.Columns

	const pageHeight = 256
	return position.New(col*grid.CellSpacing, page*pageHeight, row*grid.CellSpacing)
}

// Chunk splits tests into groups of at most size, preserving order, the
// way the executor bounds how many tests it drives concurrently in one
// pass. A non-positive size returns tests as a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

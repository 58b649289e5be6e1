/*
Copyright © 2021 the InMAP authors.
This file is part of ctmextract.

ctmextract is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctmextract is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctmextract.  If not, see <http://www.gnu.org/licenses/>.
*/

package ctmextract

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
)

// MaskValue is the state of a single mask cell.
type MaskValue uint8

const (
	// Unset marks a cell that was not found inside the region. It is a
	// missing value rather than a boolean false: the cell is excluded,
	// not known to be outside.
	Unset MaskValue = iota

	// Inside marks a cell whose center lies within at least one region
	// polygon.
	Inside
)

func (v MaskValue) String() string {
	switch v {
	case Unset:
		return "unset"
	case Inside:
		return "inside"
	default:
		return fmt.Sprintf("MaskValue(%d)", uint8(v))
	}
}

// Mask marks the cells of a grid whose centers lie within a region of
// interest. A Mask has the same shape as the grid it was built from and is
// not modified after it is built.
type Mask struct {
	rows, cols int
	values     []MaskValue
}

func newMask(rows, cols int) *Mask {
	return &Mask{rows: rows, cols: cols, values: make([]MaskValue, rows*cols)}
}

// Shape returns the number of rows and columns in m.
func (m *Mask) Shape() (rows, cols int) { return m.rows, m.cols }

// At returns the state of cell (row, col).
func (m *Mask) At(row, col int) MaskValue { return m.values[row*m.cols+col] }

// Inside reports whether cell (row, col) is inside the region.
func (m *Mask) Inside(row, col int) bool { return m.At(row, col) == Inside }

// Count returns the number of cells that are inside the region.
func (m *Mask) Count() int {
	var n int
	for _, v := range m.values {
		if v == Inside {
			n++
		}
	}
	return n
}

// BuildMask returns a mask over the full grid that is Inside for every cell
// whose center lies in at least one polygon of regions and Unset
// everywhere else.
//
// Only cells in the cross product of the rows and columns returned by
// ReduceIndices for b are tested, so the cost is proportional to the size
// of the bounding box rather than the size of the grid. Cells outside b
// stay Unset even if they are inside a region.
//
// An empty region set, or a bounding box that overlaps no part of the
// grid, results in a mask where every cell is Unset.
func BuildMask(g *CurvilinearGrid, regions RegionSet, b BoundingBox) (*Mask, error) {
	return BuildMaskConcurrent(g, regions, b, 1)
}

// BuildMaskConcurrent is the same as BuildMask but divides the rows to be
// tested among nprocs goroutines. Each goroutine writes to its own rows of
// the mask, so the result is identical to that of BuildMask. If nprocs < 1,
// the number of available processors is used.
func BuildMaskConcurrent(g *CurvilinearGrid, regions RegionSet, b BoundingBox, nprocs int) (*Mask, error) {
	if err := regions.Validate(); err != nil {
		return nil, err
	}
	idx, err := ReduceIndices(g, b)
	if err != nil {
		return nil, err
	}
	m := newMask(g.Rows(), g.Cols())
	if len(regions) == 0 || idx.Len() == 0 {
		return m, nil
	}

	if nprocs < 1 {
		nprocs = runtime.GOMAXPROCS(0)
	}
	if nprocs > len(idx.Rows) {
		nprocs = len(idx.Rows)
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for ii := pp; ii < len(idx.Rows); ii += nprocs {
				i := idx.Rows[ii]
				for _, j := range idx.Cols {
					if regions.Contains(g.Point(i, j)) {
						m.values[i*m.cols+j] = Inside
					}
				}
			}
		}(pp)
	}
	wg.Wait()
	return m, nil
}

// Apply returns a copy of c where every value in a cell that is not Inside
// is replaced with NaN. The mask is applied to every time step.
func (m *Mask) Apply(c *DataCube) (*DataCube, error) {
	nt, ny, nx := c.Shape()
	if ny != m.rows || nx != m.cols {
		return nil, fmt.Errorf("ctmextract: applying %dx%d mask to %s with shape %v: %w",
			m.rows, m.cols, c.Name, c.Data.Shape, ErrShapeMismatch)
	}
	o := sparse.ZerosDense(nt, ny, nx)
	n := ny * nx
	for t := 0; t < nt; t++ {
		for k, v := range m.values {
			if v == Inside {
				o.Elements[t*n+k] = c.Data.Elements[t*n+k]
			} else {
				o.Elements[t*n+k] = math.NaN()
			}
		}
	}
	return &DataCube{Name: c.Name, Units: c.Units, Times: c.Times, Data: o}, nil
}

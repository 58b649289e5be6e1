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

	"github.com/ctessum/sparse"
)

// CurvilinearGrid holds the geographic position of every cell center in a
// model grid. Lat and Lon are two-dimensional arrays indexed by
// [row, col]. No ordering is assumed: rows need not follow lines of
// constant latitude and columns need not follow lines of constant longitude.
type CurvilinearGrid struct {
	Lat, Lon *sparse.DenseArray
}

// NewCurvilinearGrid creates a grid from latitude and longitude fields of
// identical two-dimensional shape. All coordinates must be finite.
func NewCurvilinearGrid(lat, lon *sparse.DenseArray) (*CurvilinearGrid, error) {
	g := &CurvilinearGrid{Lat: lat, Lon: lon}
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("ctmextract: creating grid: %w", err)
	}
	for i := range lat.Elements {
		if !finite(lat.Elements[i]) || !finite(lon.Elements[i]) {
			r, c := i/lat.Shape[1], i%lat.Shape[1]
			return nil, fmt.Errorf("ctmextract: creating grid: cell (%d, %d): %w", r, c, ErrNonFinite)
		}
	}
	return g, nil
}

// validate checks that the coordinate fields are present, 2D and the same
// shape.
func (g *CurvilinearGrid) validate() error {
	if g == nil || g.Lat == nil || g.Lon == nil {
		return fmt.Errorf("missing coordinate field: %w", ErrShapeMismatch)
	}
	lat, lon := g.Lat, g.Lon
	if len(lat.Shape) != 2 || len(lon.Shape) != 2 {
		return fmt.Errorf("coordinate fields must be 2D, have %v and %v: %w",
			lat.Shape, lon.Shape, ErrShapeMismatch)
	}
	if lat.Shape[0] != lon.Shape[0] || lat.Shape[1] != lon.Shape[1] {
		return fmt.Errorf("latitude shape %v != longitude shape %v: %w",
			lat.Shape, lon.Shape, ErrShapeMismatch)
	}
	if len(lat.Elements) != lat.Shape[0]*lat.Shape[1] || len(lon.Elements) != len(lat.Elements) {
		return fmt.Errorf("coordinate fields hold %d and %d values for shape %v: %w",
			len(lat.Elements), len(lon.Elements), lat.Shape, ErrShapeMismatch)
	}
	return nil
}

// NewRectilinearGrid creates a grid from one-dimensional latitude and
// longitude axes, as found in files on a regular latitude/longitude
// projection. Row i and column j of the result are located at
// (lat[i], lon[j]).
func NewRectilinearGrid(lat, lon []float64) (*CurvilinearGrid, error) {
	la := sparse.ZerosDense(len(lat), len(lon))
	lo := sparse.ZerosDense(len(lat), len(lon))
	for i, y := range lat {
		for j, x := range lon {
			la.Elements[i*len(lon)+j] = y
			lo.Elements[i*len(lon)+j] = x
		}
	}
	return NewCurvilinearGrid(la, lo)
}

// Rows returns the number of grid rows.
func (g *CurvilinearGrid) Rows() int { return g.Lat.Shape[0] }

// Cols returns the number of grid columns.
func (g *CurvilinearGrid) Cols() int { return g.Lat.Shape[1] }

// Point returns the center of cell (row, col) as a (longitude, latitude)
// point.
func (g *CurvilinearGrid) Point(row, col int) Point {
	k := row*g.Cols() + col
	return Point{X: g.Lon.Elements[k], Y: g.Lat.Elements[k]}
}

// BoundingBox is a search region in geographic coordinates.
type BoundingBox struct {
	LatLower, LatHigher float64
	LonLower, LonHigher float64
}

// Validate checks that the lower bound is less than the upper bound on
// both axes.
func (b BoundingBox) Validate() error {
	if !(b.LatLower < b.LatHigher) || !(b.LonLower < b.LonHigher) {
		return fmt.Errorf("ctmextract: bounding box %+v: %w", b, ErrInvalidBoundingBox)
	}
	return nil
}

// Expand returns a copy of b widened by margin degrees on every side.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		LatLower:  b.LatLower - margin,
		LatHigher: b.LatHigher + margin,
		LonLower:  b.LonLower - margin,
		LonHigher: b.LonHigher + margin,
	}
}

// IndexSubset holds the grid rows and columns whose coordinate range
// overlaps a bounding box. Both sequences are strictly increasing.
type IndexSubset struct {
	Rows, Cols []int
}

// Len returns the number of cells in the cross product of Rows and Cols.
func (s *IndexSubset) Len() int { return len(s.Rows) * len(s.Cols) }

// ReduceIndices returns the rows whose latitude span and the columns whose
// longitude span overlap the bounding box. A row is kept when its maximum
// latitude is above b.LatLower and its minimum latitude is below
// b.LatHigher; columns are treated the same way with longitude. Both
// comparisons are strict, so a row that only touches the edge of the box
// is dropped.
//
// The test is a coarse pre-filter for the point-in-polygon stage: it
// looks at each axis independently, so cells in the cross product of the
// result can still lie outside b.
func ReduceIndices(g *CurvilinearGrid, b BoundingBox) (*IndexSubset, error) {
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("ctmextract: reducing indices: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	nr, nc := g.Rows(), g.Cols()

	// One pass over the grid collects the row and column extrema.
	rowMin, rowMax := fill(nr, math.Inf(1)), fill(nr, math.Inf(-1))
	colMin, colMax := fill(nc, math.Inf(1)), fill(nc, math.Inf(-1))
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			k := i*nc + j
			lat, lon := g.Lat.Elements[k], g.Lon.Elements[k]
			rowMin[i] = math.Min(rowMin[i], lat)
			rowMax[i] = math.Max(rowMax[i], lat)
			colMin[j] = math.Min(colMin[j], lon)
			colMax[j] = math.Max(colMax[j], lon)
		}
	}

	s := &IndexSubset{Rows: []int{}, Cols: []int{}}
	for i := 0; i < nr; i++ {
		if rowMax[i] > b.LatLower && rowMin[i] < b.LatHigher {
			s.Rows = append(s.Rows, i)
		}
	}
	for j := 0; j < nc; j++ {
		if colMax[j] > b.LonLower && colMin[j] < b.LonHigher {
			s.Cols = append(s.Cols, j)
		}
	}
	return s, nil
}

func fill(n int, v float64) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = v
	}
	return o
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

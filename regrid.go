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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
)

// RegularGrid is a grid of points at fixed latitude and longitude
// intervals.
type RegularGrid struct {
	Lat, Lon  []float64
	Increment float64
}

// NewRegularGrid returns the grid of points lower + k*increment on each
// axis of b that are below the upper bound. The lower bounds are included
// and the upper bounds are not.
func NewRegularGrid(b BoundingBox, increment float64) (*RegularGrid, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !(increment > 0) || math.IsInf(increment, 0) {
		return nil, fmt.Errorf("ctmextract: regular grid step %g: %w", increment, ErrInvalidIncrement)
	}
	return &RegularGrid{
		Lat:       arange(b.LatLower, b.LatHigher, increment),
		Lon:       arange(b.LonLower, b.LonHigher, increment),
		Increment: increment,
	}, nil
}

func arange(lower, higher, step float64) []float64 {
	n := int(math.Ceil((higher - lower) / step))
	o := make([]float64, 0, n)
	for k := 0; k < n; k++ {
		v := lower + float64(k)*step
		if v >= higher {
			break
		}
		o = append(o, v)
	}
	return o
}

// quad is the quadrilateral between the centers of source cells
// (i, j), (i, j+1), (i+1, j+1) and (i+1, j).
type quad struct {
	geom.Polygon
	id      int
	corners [4]int // flat indices into the source grid
	pts     [4]Point
	bounds  *geom.Bounds
}

func (q *quad) Bounds() *geom.Bounds { return q.bounds }

// stencil holds the interpolation weights for one target point.
type stencil struct {
	src    [4]int
	weight [4]float64
}

// Regridder resamples data from a curvilinear grid onto a regular
// latitude/longitude grid by bilinear interpolation between the four
// source cell centers surrounding each target point.
//
// Computing the weights is the expensive step, so a Regridder should be
// created once per source grid and reused for every variable on that grid.
// A Regridder is not modified after it is created and can be used from
// multiple goroutines.
type Regridder struct {
	Target *RegularGrid

	srcRows, srcCols int

	// weights holds one stencil per target point in [lat, lon] order;
	// nil entries fall outside the source grid.
	weights []*stencil
}

// NewRegridder computes interpolation weights from the cell centers of
// source to the points of target. Target points that are not inside any
// quadrilateral of neighboring source cell centers get no weights, and
// Apply sets them to NaN.
func NewRegridder(source *CurvilinearGrid, target *RegularGrid) (*Regridder, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("ctmextract: creating regridder: missing grid")
	}
	if err := source.validate(); err != nil {
		return nil, fmt.Errorf("ctmextract: creating regridder: %w", err)
	}
	nr, nc := source.Rows(), source.Cols()
	r := &Regridder{
		Target:  target,
		srcRows: nr,
		srcCols: nc,
		weights: make([]*stencil, len(target.Lat)*len(target.Lon)),
	}
	if nr < 2 || nc < 2 {
		return r, nil
	}

	index := rtree.NewTree(25, 50)
	for i := 0; i < nr-1; i++ {
		for j := 0; j < nc-1; j++ {
			q := &quad{
				id:      i*(nc-1) + j,
				corners: [4]int{i*nc + j, i*nc + j + 1, (i+1)*nc + j + 1, (i+1)*nc + j},
			}
			q.bounds = geom.NewBounds()
			ring := make([]geom.Point, 0, 5)
			for k, c := range q.corners {
				q.pts[k] = Point{X: source.Lon.Elements[c], Y: source.Lat.Elements[c]}
				q.bounds.Extend(geom.NewBoundsPoint(geom.Point(q.pts[k])))
				ring = append(ring, geom.Point(q.pts[k]))
			}
			q.Polygon = geom.Polygon{append(ring, ring[0])}
			index.Insert(q)
		}
	}

	for ilat, lat := range target.Lat {
		for ilon, lon := range target.Lon {
			p := Point{X: lon, Y: lat}
			var best *quad
			var bs, bt float64
			for _, c := range index.SearchIntersect(geom.NewBoundsPoint(geom.Point(p))) {
				q := c.(*quad)
				if best != nil && q.id > best.id {
					continue
				}
				if s, t, ok := invBilinear(p, q.pts); ok {
					best, bs, bt = q, s, t
				}
			}
			if best == nil {
				continue
			}
			w := [4]float64{(1 - bs) * (1 - bt), bs * (1 - bt), bs * bt, (1 - bs) * bt}
			r.weights[ilat*len(target.Lon)+ilon] = &stencil{src: best.corners, weight: w}
		}
	}
	return r, nil
}

// Coverage returns the number of target points that have interpolation
// weights.
func (r *Regridder) Coverage() int {
	var n int
	for _, w := range r.weights {
		if w != nil {
			n++
		}
	}
	return n
}

// Apply interpolates every time step of c onto the target grid. The
// result has shape [time, len(Target.Lat), len(Target.Lon)] and shares its
// timestamps with c. Target points outside the source grid, and points
// whose interpolation involves a NaN source value, are NaN.
func (r *Regridder) Apply(c *DataCube) (*DataCube, error) {
	nt, ny, nx := c.Shape()
	if ny != r.srcRows || nx != r.srcCols {
		return nil, fmt.Errorf("ctmextract: regridding %s with shape %v from a %dx%d grid: %w",
			c.Name, c.Data.Shape, r.srcRows, r.srcCols, ErrShapeMismatch)
	}
	nlat, nlon := len(r.Target.Lat), len(r.Target.Lon)
	o := sparse.ZerosDense(nt, nlat, nlon)
	for t := 0; t < nt; t++ {
		in := c.Slice(t)
		out := o.Elements[t*nlat*nlon : (t+1)*nlat*nlon]
		for k, w := range r.weights {
			if w == nil {
				out[k] = math.NaN()
				continue
			}
			var v float64
			for n, src := range w.src {
				if w.weight[n] == 0 {
					continue
				}
				v += w.weight[n] * in[src]
			}
			out[k] = v
		}
	}
	return &DataCube{Name: c.Name, Units: c.Units, Times: c.Times, Data: o}, nil
}

// invBilinear finds the coordinates (s, t) of p within the quadrilateral
// with corners q, where
//
//	p = q0 + s(q1-q0) + t(q3-q0) + st(q0-q1+q2-q3)
//
// ok is false if p is not inside the quadrilateral.
func invBilinear(p Point, q [4]Point) (s, t float64, ok bool) {
	const tol = 1e-9
	e := sub(q[1], q[0])
	f := sub(q[3], q[0])
	g := Point{X: q[0].X - q[1].X + q[2].X - q[3].X, Y: q[0].Y - q[1].Y + q[2].Y - q[3].Y}
	h := sub(p, q[0])

	k2 := cross(g, f)
	k1 := cross(e, f) + cross(h, g)
	k0 := cross(h, e)

	var cands []float64
	scale := math.Abs(cross(e, f))
	if scale == 0 {
		return 0, 0, false
	}
	if math.Abs(k2) <= 1e-12*scale {
		if k1 == 0 {
			return 0, 0, false
		}
		cands = []float64{-k0 / k1}
	} else {
		w := k1*k1 - 4*k0*k2
		if w < 0 {
			return 0, 0, false
		}
		w = math.Sqrt(w)
		cands = []float64{(-k1 - w) / (2 * k2), (-k1 + w) / (2 * k2)}
	}
	for _, t := range cands {
		if t < -tol || t > 1+tol {
			continue
		}
		// Solve h = s(e + tg) + tf for s using the better-conditioned axis.
		dx, dy := e.X+t*g.X, e.Y+t*g.Y
		var s float64
		if math.Abs(dx) >= math.Abs(dy) {
			if dx == 0 {
				continue
			}
			s = (h.X - t*f.X) / dx
		} else {
			s = (h.Y - t*f.Y) / dy
		}
		if s < -tol || s > 1+tol {
			continue
		}
		return clamp01(s), clamp01(t), true
	}
	return 0, 0, false
}

func sub(a, b Point) Point     { return Point{X: a.X - b.X, Y: a.Y - b.Y} }
func cross(a, b Point) float64 { return a.X*b.Y - a.Y*b.X }

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

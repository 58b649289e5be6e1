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
)

// Point is a location in geographic coordinates: X is longitude and Y is
// latitude, both in degrees.
type Point struct {
	X, Y float64
}

// Ring is a closed boundary. The closing segment from the last point back
// to the first is implied, so the first point may but need not be repeated
// at the end.
type Ring []Point

// Polygon is an area bounded by an outer ring, minus any holes.
// Points on the outer ring or on the edge of a hole are inside the
// polygon; points strictly inside a hole are not.
type Polygon struct {
	Outer Ring
	Holes []Ring

	// ext is the extent of Outer, used to skip the edge walk for
	// distant points. It is nil for polygons built as struct literals.
	ext *extent
}

type extent struct {
	minX, minY, maxX, maxY float64
}

// NewPolygon creates a polygon from an outer ring and optional holes.
// Every ring needs at least three distinct, finite vertices.
func NewPolygon(outer Ring, holes ...Ring) (*Polygon, error) {
	if err := outer.validate(); err != nil {
		return nil, fmt.Errorf("ctmextract: outer ring: %w", err)
	}
	for i, h := range holes {
		if err := h.validate(); err != nil {
			return nil, fmt.Errorf("ctmextract: hole %d: %w", i, err)
		}
	}
	e := &extent{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	for _, pt := range outer {
		e.minX = math.Min(e.minX, pt.X)
		e.minY = math.Min(e.minY, pt.Y)
		e.maxX = math.Max(e.maxX, pt.X)
		e.maxY = math.Max(e.maxY, pt.Y)
	}
	return &Polygon{Outer: outer, Holes: holes, ext: e}, nil
}

func (r Ring) validate() error {
	distinct := make(map[Point]struct{}, len(r))
	for _, p := range r {
		if !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("vertex %v: %w", p, ErrMalformedPolygon)
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("%d distinct vertices: %w", len(distinct), ErrMalformedPolygon)
	}
	return nil
}

// Contains reports whether pt lies inside p or on its boundary.
func (p *Polygon) Contains(pt Point) bool {
	if e := p.ext; e != nil && (pt.X < e.minX || pt.X > e.maxX || pt.Y < e.minY || pt.Y > e.maxY) {
		return false
	}
	switch p.Outer.locate(pt) {
	case onEdge:
		return true
	case outside:
		return false
	}
	for _, h := range p.Holes {
		if h.locate(pt) == inside {
			return false
		}
	}
	return true
}

type location int

const (
	outside location = iota
	inside
	onEdge
)

// locate finds pt relative to r using the even-odd ray casting rule with a
// ray cast in the +X direction.
func (r Ring) locate(pt Point) location {
	in := false
	n := len(r)
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		if a == b {
			continue
		}
		if onSegment(pt, a, b) {
			return onEdge
		}
		// Half-open rule on Y so that a ray through a vertex is counted once.
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				in = !in
			}
		}
	}
	if in {
		return inside
	}
	return outside
}

// onSegment reports whether p lies on the segment ab.
func onSegment(p, a, b Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	scale := math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))
	if math.Abs(cross) > 1e-12*scale*scale {
		return false
	}
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// Region is a named area of interest, such as an administrative district.
// It may be made up of several disjoint polygons.
type Region struct {
	Name     string
	Polygons []*Polygon
}

// Contains reports whether pt is inside any of the polygons in r.
func (r *Region) Contains(pt Point) bool {
	for _, p := range r.Polygons {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// RegionSet is an unordered collection of regions. The mask builder treats
// it as the union of all of its polygons.
type RegionSet []*Region

// Contains reports whether pt is inside any polygon of any region in s.
func (s RegionSet) Contains(pt Point) bool {
	for _, r := range s {
		if r.Contains(pt) {
			return true
		}
	}
	return false
}

// Names returns the region names in s, in order.
func (s RegionSet) Names() []string {
	o := make([]string, len(s))
	for i, r := range s {
		o[i] = r.Name
	}
	return o
}

// Validate checks that every ring of every polygon in s is well formed.
func (s RegionSet) Validate() error {
	for _, r := range s {
		if r == nil {
			return fmt.Errorf("ctmextract: nil region: %w", ErrMalformedPolygon)
		}
		for i, p := range r.Polygons {
			if p == nil {
				return fmt.Errorf("ctmextract: region %q polygon %d is nil: %w", r.Name, i, ErrMalformedPolygon)
			}
			if err := p.Outer.validate(); err != nil {
				return fmt.Errorf("ctmextract: region %q polygon %d: %w", r.Name, i, err)
			}
			for j, h := range p.Holes {
				if err := h.validate(); err != nil {
					return fmt.Errorf("ctmextract: region %q polygon %d hole %d: %w", r.Name, i, j, err)
				}
			}
		}
	}
	return nil
}

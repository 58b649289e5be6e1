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

// Package region loads named administrative areas, such as metropolitan
// boroughs, from shapefiles and GeoJSON files and converts them to
// longitude/latitude polygons for masking.
package region

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/ctmextract"
)

// ErrRegionNotFound is returned when a requested region name does not
// exist in the input file.
var ErrRegionNotFound = errors.New("region not found")

// LonLat is the spatial reference that regions are converted to.
const LonLat = "+proj=longlat +datum=WGS84"

// Load reads the regions whose nameField attribute matches one of names
// from the shapefile or GeoJSON file at path. The format is chosen by the
// file extension. All regions are returned when no names are given.
func Load(path, nameField string, names ...string) (ctmextract.RegionSet, error) {
	path = os.ExpandEnv(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, nameField, names...)
	case ".geojson", ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("region: %w", err)
		}
		defer f.Close()
		return LoadGeoJSON(f, nameField, names...)
	default:
		return nil, fmt.Errorf("region: unsupported file type for %s; use .shp or .geojson", path)
	}
}

// FromGeom converts a polygonal geometry to a region. Within each polygon,
// rings nested inside an odd number of other rings are holes of the ring
// directly enclosing them, and all other rings are outer boundaries, so
// that both multi-part shapefile records and GeoJSON polygons are handled.
func FromGeom(name string, g geom.Polygonal) (*ctmextract.Region, error) {
	r := &ctmextract.Region{Name: name}
	for _, p := range g.Polygons() {
		polys, err := fromPolygon(p)
		if err != nil {
			return nil, fmt.Errorf("region: %s: %w", name, err)
		}
		r.Polygons = append(r.Polygons, polys...)
	}
	return r, nil
}

func fromPolygon(p geom.Polygon) ([]*ctmextract.Polygon, error) {
	rings := make([]ctmextract.Ring, 0, len(p))
	for _, path := range p {
		if len(path) == 0 {
			continue
		}
		r := make(ctmextract.Ring, len(path))
		for i, pt := range path {
			r[i] = ctmextract.Point(pt)
		}
		rings = append(rings, r)
	}
	if len(rings) == 1 {
		poly, err := ctmextract.NewPolygon(rings[0])
		if err != nil {
			return nil, err
		}
		return []*ctmextract.Polygon{poly}, nil
	}

	// parent[i] is the innermost ring containing ring i, or -1.
	depth := make([]int, len(rings))
	parent := make([]int, len(rings))
	for i, ri := range rings {
		parent[i] = -1
		for j, rj := range rings {
			if i == j || !encloses(rj, ri) {
				continue
			}
			depth[i]++
			if parent[i] < 0 || encloses(rings[parent[i]], rj) {
				parent[i] = j
			}
		}
	}
	holes := make(map[int][]ctmextract.Ring)
	for i, r := range rings {
		if depth[i]%2 == 1 && parent[i] >= 0 {
			holes[parent[i]] = append(holes[parent[i]], r)
		}
	}
	var o []*ctmextract.Polygon
	for i, r := range rings {
		if depth[i]%2 == 1 {
			continue
		}
		poly, err := ctmextract.NewPolygon(r, holes[i]...)
		if err != nil {
			return nil, err
		}
		o = append(o, poly)
	}
	return o, nil
}

// encloses reports whether every vertex of inner is within outer.
func encloses(outer, inner ctmextract.Ring) bool {
	p := &ctmextract.Polygon{Outer: outer}
	for _, pt := range inner {
		if !p.Contains(pt) {
			return false
		}
	}
	return true
}

// nameFilter tracks which of the requested names have been found.
type nameFilter struct {
	want  map[string]bool
	found map[string]bool
}

func newNameFilter(names []string) *nameFilter {
	f := &nameFilter{found: make(map[string]bool)}
	if len(names) > 0 {
		f.want = make(map[string]bool, len(names))
		for _, n := range names {
			f.want[n] = true
		}
	}
	return f
}

func (f *nameFilter) keep(name string) bool {
	if f.want != nil && !f.want[name] {
		return false
	}
	f.found[name] = true
	return true
}

// missing returns an error naming the requested regions that were not
// found, or nil if all were found.
func (f *nameFilter) missing(file string) error {
	var m []string
	for n := range f.want {
		if !f.found[n] {
			m = append(m, n)
		}
	}
	if len(m) == 0 {
		return nil
	}
	sort.Strings(m)
	return fmt.Errorf("region: %s: %s: %w", file, strings.Join(m, ", "), ErrRegionNotFound)
}

// toLonLat returns a function that transforms geometries from sr to
// longitude/latitude, or nil if sr is nil.
func toLonLat(sr *proj.SR) (func(geom.Geom) (geom.Geom, error), error) {
	if sr == nil {
		return nil, nil
	}
	dst, err := proj.Parse(LonLat)
	if err != nil {
		return nil, err
	}
	t, err := sr.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("region: creating projection transform: %w", err)
	}
	return func(g geom.Geom) (geom.Geom, error) { return g.Transform(t) }, nil
}

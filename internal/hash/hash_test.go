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

package hash

import (
	"testing"

	"github.com/spatialmodel/ctmextract"
)

func TestGrid(t *testing.T) {
	a, err := ctmextract.NewRectilinearGrid([]float64{53, 53.5, 54}, []float64{-2, -1.5, -1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctmextract.NewRectilinearGrid([]float64{53, 53.5, 54}, []float64{-2, -1.5, -1})
	if err != nil {
		t.Fatal(err)
	}
	c, err := ctmextract.NewRectilinearGrid([]float64{53, 53.5, 54}, []float64{-2, -1.5, -1.1})
	if err != nil {
		t.Fatal(err)
	}
	ha, hb, hc := Grid(a), Grid(b), Grid(c)
	if ha != hb {
		t.Errorf("identical grids hash differently: %s, %s", ha, hb)
	}
	if ha == hc {
		t.Errorf("different grids hash the same: %s", ha)
	}
	if len(ha) != 32 {
		t.Errorf("hash %s has length %d, want 32", ha, len(ha))
	}
}

func TestRegions(t *testing.T) {
	p, err := ctmextract.NewPolygon(ctmextract.Ring{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		t.Fatal(err)
	}
	a := ctmextract.RegionSet{{Name: "a", Polygons: []*ctmextract.Polygon{p}}}
	b := ctmextract.RegionSet{{Name: "b", Polygons: []*ctmextract.Polygon{p}}}
	literal := ctmextract.RegionSet{{Name: "a", Polygons: []*ctmextract.Polygon{{Outer: p.Outer}}}}
	if Regions(a) == Regions(b) {
		t.Error("region names do not change the hash")
	}
	if Regions(a) != Regions(literal) {
		t.Error("hash depends on how the polygon was created")
	}
	if Regions(nil) == "" {
		t.Error("empty hash for empty region set")
	}
}

func TestHashFallback(t *testing.T) {
	// gob cannot encode a struct without exported fields.
	type opaque struct{ v int }
	if hash(opaque{1}) == hash(opaque{2}) {
		t.Error("fallback hash ignores values")
	}
}

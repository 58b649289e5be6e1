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

// Package hash computes fingerprints of model grids and region sets, which
// are recorded in output files so that results can be traced back to the
// inputs that produced them.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
	"github.com/spatialmodel/ctmextract"
)

// Grid returns a fingerprint of the shape and coordinates of g.
func Grid(g *ctmextract.CurvilinearGrid) string {
	return hash(struct {
		Shape    []int
		Lat, Lon []float64
	}{g.Lat.Shape, g.Lat.Elements, g.Lon.Elements})
}

// Regions returns a fingerprint of the names and boundaries of rs.
func Regions(rs ctmextract.RegionSet) string {
	type polygon struct {
		Outer ctmextract.Ring
		Holes []ctmextract.Ring
	}
	type region struct {
		Name     string
		Polygons []polygon
	}
	o := make([]region, len(rs))
	for i, r := range rs {
		o[i].Name = r.Name
		for _, p := range r.Polygons {
			o[i].Polygons = append(o[i].Polygons, polygon{Outer: p.Outer, Holes: p.Holes})
		}
	}
	return hash(o)
}

func hash(object interface{}) string {
	h := fnv.New128a()
	e := gob.NewEncoder(h)
	if err := e.Encode(object); err == nil {
		return fmt.Sprintf("%x", h.Sum(nil))
	}
	// gob cannot encode some values, such as empty structs; spew can.
	h.Reset()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	return fmt.Sprintf("%x", h.Sum(nil))
}

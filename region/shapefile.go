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

package region

import (
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/ctmextract"
)

// LoadShapefile reads the polygons from the shapefile at path whose
// nameField attribute matches one of names, or all polygons when no names
// are given. Records that share a name are combined into a single region.
// Geometries are converted to longitude/latitude using the spatial
// reference in the accompanying .prj file; without a .prj file the
// coordinates are assumed to already be longitude/latitude.
func LoadShapefile(path, nameField string, names ...string) (ctmextract.RegionSet, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("region: opening shapefile: %w", err)
	}
	defer d.Close()

	if !hasField(d.Fields(), nameField) {
		return nil, fmt.Errorf("region: shapefile %s does not contain attribute column %s; available columns are %s",
			path, nameField, strings.Join(fieldNames(d.Fields()), ", "))
	}

	var sr *proj.SR
	if _, err := os.Stat(strings.TrimSuffix(path, ".shp") + ".prj"); err == nil {
		if sr, err = d.SR(); err != nil {
			return nil, fmt.Errorf("region: reading shapefile projection: %w", err)
		}
	}
	transform, err := toLonLat(sr)
	if err != nil {
		return nil, err
	}

	filter := newNameFilter(names)
	var o ctmextract.RegionSet
	byName := make(map[string]*ctmextract.Region)
	for {
		g, fields, more := d.DecodeRowFields(nameField)
		if !more {
			break
		}
		if err := d.Error(); err != nil {
			return nil, fmt.Errorf("region: decoding shapefile %s: %w", path, err)
		}
		name := cleanAttribute(fields[nameField])
		if !filter.keep(name) {
			continue
		}
		if transform != nil {
			if g, err = transform(g); err != nil {
				return nil, fmt.Errorf("region: projecting %s: %w", name, err)
			}
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("region: %s in %s has geometry type %T, which is not polygonal", name, path, g)
		}
		r, err := FromGeom(name, poly)
		if err != nil {
			return nil, err
		}
		if prev, ok := byName[name]; ok {
			prev.Polygons = append(prev.Polygons, r.Polygons...)
			continue
		}
		byName[name] = r
		o = append(o, r)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("region: decoding shapefile %s: %w", path, err)
	}
	if err := filter.missing(path); err != nil {
		return nil, err
	}
	return o, nil
}

func fieldNames(fields []goshp.Field) []string {
	o := make([]string, len(fields))
	for i, f := range fields {
		o[i] = cleanAttribute(string(f.Name[:]))
	}
	return o
}

// hasField reports whether name is one of fields, ignoring case as the
// shapefile decoder does.
func hasField(fields []goshp.Field, name string) bool {
	for _, f := range fieldNames(fields) {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func cleanAttribute(s string) string { return strings.Trim(s, "\x00 ") }

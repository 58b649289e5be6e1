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
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/spatialmodel/ctmextract"
)

type feature struct {
	Type       string                 `json:"type"`
	Geometry   *rawGeometry           `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadGeoJSON reads regions from a GeoJSON FeatureCollection, Feature or
// bare Polygon or MultiPolygon geometry. Coordinates are expected to be
// longitude/latitude, as GeoJSON requires. Features are named by their
// nameProperty property and filtered by names as in LoadShapefile; a bare
// geometry is given the name of its type and is not filtered.
func LoadGeoJSON(r io.Reader, nameProperty string, names ...string) (ctmextract.RegionSet, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("region: reading GeoJSON: %w", err)
	}
	var doc struct {
		Type       string                 `json:"type"`
		Features   []*feature             `json:"features"`
		Geometry   *rawGeometry           `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("region: decoding GeoJSON: %w", err)
	}
	var features []*feature
	switch doc.Type {
	case "FeatureCollection":
		features = doc.Features
	case "Feature":
		features = []*feature{{Type: doc.Type, Geometry: doc.Geometry, Properties: doc.Properties}}
	case "Polygon", "MultiPolygon":
		var g rawGeometry
		if err := json.Unmarshal(b, &g); err != nil {
			return nil, fmt.Errorf("region: decoding GeoJSON: %w", err)
		}
		p, err := g.polygonal()
		if err != nil {
			return nil, err
		}
		reg, err := FromGeom(doc.Type, p)
		if err != nil {
			return nil, err
		}
		return ctmextract.RegionSet{reg}, nil
	default:
		return nil, fmt.Errorf("region: unsupported GeoJSON type %q", doc.Type)
	}

	filter := newNameFilter(names)
	var o ctmextract.RegionSet
	byName := make(map[string]*ctmextract.Region)
	for i, f := range features {
		v, ok := f.Properties[nameProperty]
		if !ok {
			return nil, fmt.Errorf("region: GeoJSON feature %d does not have property %s", i, nameProperty)
		}
		name := fmt.Sprint(v)
		if !filter.keep(name) {
			continue
		}
		if f.Geometry == nil {
			return nil, fmt.Errorf("region: GeoJSON feature %s has no geometry", name)
		}
		p, err := f.Geometry.polygonal()
		if err != nil {
			return nil, fmt.Errorf("region: %s: %w", name, err)
		}
		reg, err := FromGeom(name, p)
		if err != nil {
			return nil, err
		}
		if prev, ok := byName[name]; ok {
			prev.Polygons = append(prev.Polygons, reg.Polygons...)
			continue
		}
		byName[name] = reg
		o = append(o, reg)
	}
	if err := filter.missing("GeoJSON"); err != nil {
		return nil, err
	}
	return o, nil
}

// polygonal decodes a Polygon or MultiPolygon geometry. The geojson
// package only decodes single polygons, so each member of a MultiPolygon
// is decoded separately.
func (g *rawGeometry) polygonal() (geom.Polygonal, error) {
	switch g.Type {
	case "Polygon":
		return decodePolygon(g.Coordinates)
	case "MultiPolygon":
		var parts []json.RawMessage
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("region: decoding MultiPolygon: %w", err)
		}
		mp := make(geom.MultiPolygon, len(parts))
		for i, c := range parts {
			p, err := decodePolygon(c)
			if err != nil {
				return nil, err
			}
			mp[i] = p
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("region: geometry type %q is not polygonal", g.Type)
	}
}

func decodePolygon(coords json.RawMessage) (geom.Polygon, error) {
	var c interface{}
	if err := json.Unmarshal(coords, &c); err != nil {
		return nil, fmt.Errorf("region: decoding Polygon: %w", err)
	}
	g, err := geojson.FromGeoJSON(&geojson.Geometry{Type: "Polygon", Coordinates: c})
	if err != nil {
		return nil, fmt.Errorf("region: decoding Polygon: %w", err)
	}
	p, ok := g.(geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("region: decoding Polygon: got %T", g)
	}
	return p, nil
}

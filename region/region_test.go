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
	"errors"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/ctmextract"
)

func box(x0, y0, x1, y1 float64) []geom.Point {
	return []geom.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}
}

func TestFromGeom(t *testing.T) {
	// An island inside a lake inside a park.
	p := geom.Polygon{box(0, 0, 10, 10), box(2, 2, 8, 8), box(4, 4, 6, 6)}
	r, err := FromGeom("park", p)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Polygons) != 2 {
		t.Fatalf("got %d polygons, want 2", len(r.Polygons))
	}
	tests := []struct {
		pt   ctmextract.Point
		want bool
	}{
		{ctmextract.Point{X: 1, Y: 1}, true},
		{ctmextract.Point{X: 3, Y: 3}, false},
		{ctmextract.Point{X: 5, Y: 5}, true},
		{ctmextract.Point{X: 2, Y: 5}, true},
		{ctmextract.Point{X: 11, Y: 5}, false},
	}
	for _, test := range tests {
		if got := r.Contains(test.pt); got != test.want {
			t.Errorf("%v: got %v, want %v", test.pt, got, test.want)
		}
	}

	mp := geom.MultiPolygon{{box(0, 0, 1, 1)}, {box(5, 5, 6, 6)}}
	r, err = FromGeom("two", mp)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Polygons) != 2 || !r.Contains(ctmextract.Point{X: 5.5, Y: 5.5}) {
		t.Errorf("multipolygon not converted: %+v", r)
	}

	if _, err := FromGeom("bad", geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}}); !errors.Is(err, ctmextract.ErrMalformedPolygon) {
		t.Errorf("err = %v, want ErrMalformedPolygon", err)
	}
}

const featureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME": "Manchester", "CODE": 1},
     "geometry": {"type": "Polygon", "coordinates": [[[-2.3,53.4],[-2.2,53.4],[-2.2,53.5],[-2.3,53.5],[-2.3,53.4]]]}},
    {"type": "Feature", "properties": {"NAME": "Wigan", "CODE": 2},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[-2.7,53.5],[-2.5,53.5],[-2.5,53.6],[-2.7,53.6],[-2.7,53.5]],
        [[-2.65,53.52],[-2.55,53.52],[-2.55,53.58],[-2.65,53.58],[-2.65,53.52]]],
       [[[-2.9,53.5],[-2.8,53.5],[-2.8,53.6],[-2.9,53.5]]]
     ]}},
    {"type": "Feature", "properties": {"NAME": "Manchester", "CODE": 3},
     "geometry": {"type": "Polygon", "coordinates": [[[-2.0,53.0],[-1.9,53.0],[-1.9,53.1],[-2.0,53.0]]]}}
  ]
}`

func TestLoadGeoJSON(t *testing.T) {
	rs, err := LoadGeoJSON(strings.NewReader(featureCollection), "NAME")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Manchester", "Wigan"}; !reflect.DeepEqual(rs.Names(), want) {
		t.Errorf("names = %v, want %v", rs.Names(), want)
	}
	if n := len(rs[0].Polygons); n != 2 {
		t.Errorf("Manchester has %d polygons, want 2", n)
	}
	tests := []struct {
		pt   ctmextract.Point
		want bool
	}{
		{ctmextract.Point{X: -2.25, Y: 53.45}, true},
		{ctmextract.Point{X: -2.68, Y: 53.55}, true},
		{ctmextract.Point{X: -2.6, Y: 53.55}, false}, // hole
		{ctmextract.Point{X: -2.85, Y: 53.52}, true},
		{ctmextract.Point{X: -1.95, Y: 53.02}, true},
		{ctmextract.Point{X: 0, Y: 0}, false},
	}
	for _, test := range tests {
		if got := rs.Contains(test.pt); got != test.want {
			t.Errorf("%v: got %v, want %v", test.pt, got, test.want)
		}
	}

	rs, err = LoadGeoJSON(strings.NewReader(featureCollection), "CODE", "2")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].Name != "2" {
		t.Errorf("filtered regions = %v", rs.Names())
	}

	_, err = LoadGeoJSON(strings.NewReader(featureCollection), "NAME", "Wigan", "Bolton")
	if !errors.Is(err, ErrRegionNotFound) || !strings.Contains(err.Error(), "Bolton") {
		t.Errorf("err = %v, want ErrRegionNotFound for Bolton", err)
	}
	if _, err = LoadGeoJSON(strings.NewReader(featureCollection), "NOTAFIELD"); err == nil {
		t.Error("missing property was not reported")
	}
}

func TestLoadGeoJSONGeometry(t *testing.T) {
	rs, err := LoadGeoJSON(strings.NewReader(`{"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`), "NAME")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || !rs.Contains(ctmextract.Point{X: 0.5, Y: 0.5}) {
		t.Errorf("regions = %+v", rs)
	}
	if _, err := LoadGeoJSON(strings.NewReader(`{"type": "Point", "coordinates": [0,0]}`), "NAME"); err == nil {
		t.Error("point geometry was accepted")
	}
	if _, err := LoadGeoJSON(strings.NewReader(`{"type": "Polygon", "coordinates": [[[0,0,0],[1,0,0],[1,1,0]]]}`), "NAME"); err == nil {
		t.Error("invalid coordinates were accepted")
	}
}

// writeShapefile creates a polygon shapefile in dir with a NAME column.
func writeShapefile(t *testing.T, dir, prj string, names []string, polys []geom.Polygon) string {
	path := filepath.Join(dir, "regions.shp")
	e, err := shp.NewEncoderFromFields(path, goshp.POLYGON, goshp.StringField("NAME", 20))
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range polys {
		if err := e.EncodeFields(p, names[i]); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
	if prj != "" {
		if err := ioutil.WriteFile(filepath.Join(dir, "regions.prj"), []byte(prj), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestLoadShapefile(t *testing.T) {
	dir, err := ioutil.TempDir("", "region")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := writeShapefile(t, dir, "", []string{"Bolton", "Bury", "Bolton"}, []geom.Polygon{
		{box(-2.6, 53.5, -2.4, 53.7)},
		{box(-2.4, 53.5, -2.2, 53.7), box(-2.35, 53.55, -2.25, 53.65)},
		{box(-3, 53, -2.9, 53.1)},
	})

	rs, err := LoadShapefile(path, "NAME")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Bolton", "Bury"}; !reflect.DeepEqual(rs.Names(), want) {
		t.Fatalf("names = %v, want %v", rs.Names(), want)
	}
	if n := len(rs[0].Polygons); n != 2 {
		t.Errorf("Bolton has %d polygons, want 2", n)
	}
	if !rs[1].Contains(ctmextract.Point{X: -2.38, Y: 53.6}) || rs[1].Contains(ctmextract.Point{X: -2.3, Y: 53.6}) {
		t.Error("Bury hole not preserved")
	}

	rs, err = Load(path, "name", "Bury")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].Name != "Bury" {
		t.Errorf("filtered regions = %v", rs.Names())
	}

	if _, err := LoadShapefile(path, "NAME", "Oldham"); !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("err = %v, want ErrRegionNotFound", err)
	}
	_, err = LoadShapefile(path, "BOROUGH")
	if err == nil || !strings.Contains(err.Error(), "NAME") {
		t.Errorf("err = %v, want list of available columns", err)
	}
}

func TestLoadShapefileProjected(t *testing.T) {
	dir, err := ioutil.TempDir("", "region")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	const r = 6378137.0
	merc := func(lon, lat float64) geom.Point {
		return geom.Point{
			X: r * lon * math.Pi / 180,
			Y: r * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)),
		}
	}
	ring := []geom.Point{merc(-2.5, 53.2), merc(-1.5, 53.2), merc(-1.5, 53.8), merc(-2.5, 53.8), merc(-2.5, 53.2)}
	path := writeShapefile(t, dir, "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs",
		[]string{"Box"}, []geom.Polygon{{ring}})

	rs, err := LoadShapefile(path, "NAME")
	if err != nil {
		t.Fatal(err)
	}
	if !rs.Contains(ctmextract.Point{X: -2, Y: 53.5}) {
		t.Error("projected region does not contain its center")
	}
	if rs.Contains(ctmextract.Point{X: -2, Y: 55}) || rs.Contains(ctmextract.Point{X: 1, Y: 53.5}) {
		t.Error("projected region contains points outside it")
	}
}

func TestLoadUnsupported(t *testing.T) {
	if _, err := Load("regions.kml", "NAME"); err == nil {
		t.Error("unsupported file type was accepted")
	}
}

const catalog = `
[Sets.West]
File = "regions.geojson"
Names = ["Wigan"]

[Sets.West.BoundingBox]
LatLower = 53.3
LatHigher = 53.7
LonLower = -2.9
LonHigher = -2.4

[Sets.All]
File = "regions.geojson"
`

func TestCatalog(t *testing.T) {
	dir, err := ioutil.TempDir("", "region")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if err := ioutil.WriteFile(filepath.Join(dir, "regions.geojson"), []byte(featureCollection), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "catalog.toml")
	if err := ioutil.WriteFile(path, []byte(catalog), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := ReadCatalogFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"All", "West"}; !reflect.DeepEqual(c.SetNames(), want) {
		t.Errorf("set names = %v, want %v", c.SetNames(), want)
	}

	rs, b, err := c.Load("West")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].Name != "Wigan" {
		t.Errorf("West regions = %v", rs.Names())
	}
	want := ctmextract.BoundingBox{LatLower: 53.3, LatHigher: 53.7, LonLower: -2.9, LonHigher: -2.4}
	if b == nil || *b != want {
		t.Errorf("bounding box = %+v, want %+v", b, want)
	}

	rs, b, err = c.Load("All")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 || b != nil {
		t.Errorf("All: %d regions, bounding box %v", len(rs), b)
	}

	if _, _, err := c.Load("East"); !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("err = %v, want ErrRegionNotFound", err)
	}
}

func TestReadCatalogErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":  "[Sets.A]\nFile = \"a.shp\"\nNameFeild = \"NAME\"\n",
		"no file":      "[Sets.A]\nNameField = \"NAME\"\n",
		"bounding box": "[Sets.A]\nFile = \"a.shp\"\n[Sets.A.BoundingBox]\nLatLower = 2.0\nLatHigher = 1.0\nLonLower = 0.0\nLonHigher = 1.0\n",
		"syntax":       "[Sets.A\n",
	} {
		if _, err := ReadCatalog(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

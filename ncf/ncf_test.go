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

package ncf

import (
	"errors"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/ctmextract"
	"gonum.org/v1/gonum/floats"
)

// writeModelFile creates a small file laid out like WRF-Chem output: the
// coordinates have a leading time dimension and the surface field has a
// singleton vertical dimension.
func writeModelFile(t *testing.T, dir string) string {
	path := filepath.Join(dir, "model.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	h := cdf.NewHeader([]string{"time", "lev", "y", "x"}, []int{2, 1, 2, 3})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "hours since 2020-12-31 0:0:0")
	h.AddVariable("XLAT", []string{"time", "y", "x"}, []float32{0})
	h.AddVariable("XLONG", []string{"time", "y", "x"}, []float32{0})
	h.AddVariable("NO2", []string{"time", "lev", "y", "x"}, []float32{0})
	h.AddAttribute("NO2", "units", "ppb")
	h.AddAttribute("NO2", "_FillValue", []float32{-999})
	h.AddVariable("O3", []string{"time", "y", "x"}, []float64{0})
	h.AddAttribute("O3", "units", "ppb")
	h.AddVariable("PACKED", []string{"y", "x"}, []int16{0})
	h.AddAttribute("PACKED", "scale_factor", []float32{0.5})
	h.AddAttribute("PACKED", "add_offset", []float32{10})
	h.Define()
	f, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	writeVar := func(v string, data interface{}) {
		end := f.Header.Lengths(v)
		if _, err := f.Writer(v, make([]int, len(end)), end).Write(data); err != nil {
			t.Fatal(err)
		}
	}
	writeVar("time", []float64{0, 1.5})
	writeVar("XLAT", []float32{53, 53, 53, 54, 54, 54, 0, 0, 0, 0, 0, 0})
	writeVar("XLONG", []float32{-2, -1.5, -1, -2, -1.5, -1, 0, 0, 0, 0, 0, 0})
	writeVar("NO2", []float32{1, 2, 3, 4, 5, -999, 7, 8, 9, 10, 11, 12})
	writeVar("O3", []float64{30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41})
	writeVar("PACKED", []int16{0, 1, 2, 3, 4, 5})
	if err := cdf.UpdateNumRecs(w); err != nil {
		t.Fatal(err)
	}
	return path
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "ncf")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRead(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	f, err := Open(writeModelFile(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := f.Grid("XLAT", "XLONG")
	if err != nil {
		t.Fatal(err)
	}
	if g.Rows() != 2 || g.Cols() != 3 {
		t.Fatalf("grid shape = %dx%d, want 2x3", g.Rows(), g.Cols())
	}
	if p := g.Point(1, 2); p != (ctmextract.Point{X: -1, Y: 54}) {
		t.Errorf("point (1,2) = %v", p)
	}

	times, err := f.Times("time")
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{
		time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 31, 1, 30, 0, 0, time.UTC),
	}
	if len(times) != 2 || !times[0].Equal(want[0]) || !times[1].Equal(want[1]) {
		t.Errorf("times = %v, want %v", times, want)
	}

	c, err := f.Cube("NO2", "time")
	if err != nil {
		t.Fatal(err)
	}
	if nt, ny, nx := c.Shape(); nt != 2 || ny != 2 || nx != 3 {
		t.Fatalf("cube shape = %v", c.Data.Shape)
	}
	if c.Units != "ppb" || !c.Times[1].Equal(want[1]) {
		t.Errorf("units %q, times %v", c.Units, c.Times)
	}
	if !math.IsNaN(c.Data.Get(0, 1, 2)) {
		t.Errorf("fill value = %g, want NaN", c.Data.Get(0, 1, 2))
	}
	if v := c.Data.Get(1, 0, 1); v != 8 {
		t.Errorf("NO2[1,0,1] = %g, want 8", v)
	}

	cubes, err := f.Cubes("time", "O3", "PACKED")
	if err != nil {
		t.Fatal(err)
	}
	if v := cubes[0].Data.Get(1, 1, 1); v != 40 {
		t.Errorf("O3[1,1,1] = %g, want 40", v)
	}
	if nt, _, _ := cubes[1].Shape(); nt != 1 {
		t.Errorf("2D variable has %d time steps, want 1", nt)
	}
	if !floats.Equal(cubes[1].Data.Elements, []float64{10, 10.5, 11, 11.5, 12, 12.5}) {
		t.Errorf("unpacked = %v", cubes[1].Data.Elements)
	}

	if _, err := f.Cube("NOTHERE", "time"); err == nil {
		t.Error("missing variable was not reported")
	}
	if _, err := f.Grid("time", "XLONG"); err == nil {
		t.Error("mismatched coordinates were accepted")
	}
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units string
		step  time.Duration
		ref   time.Time
	}{
		{"days since 1900-1-1 0:0:0", 24 * time.Hour, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"hours since 2020-12-31 00:00:00", time.Hour, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"minutes since 2020-12-31T06:00:00Z", time.Minute, time.Date(2020, 12, 31, 6, 0, 0, 0, time.UTC)},
		{"seconds since 2021-01-02", time.Second, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"hours since 2020-12-31 00:00:00 UTC", time.Hour, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, test := range tests {
		step, ref, err := parseTimeUnits(test.units)
		if err != nil {
			t.Errorf("%s: %v", test.units, err)
			continue
		}
		if step != test.step || !ref.Equal(test.ref) {
			t.Errorf("%s: got %v %v, want %v %v", test.units, step, ref, test.step, test.ref)
		}
	}
	for _, units := range []string{"", "ppb", "fortnights since 2020-01-01", "days since yesterday"} {
		if _, _, err := parseTimeUnits(units); err == nil {
			t.Errorf("%q was accepted", units)
		}
	}
}

func TestWriteRegridded(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	src, err := Open(writeModelFile(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	g, err := src.Grid("XLAT", "XLONG")
	if err != nil {
		t.Fatal(err)
	}
	c, err := src.Cube("O3", "time")
	if err != nil {
		t.Fatal(err)
	}
	target, err := ctmextract.NewRegularGrid(ctmextract.BoundingBox{LatLower: 53, LatHigher: 54.5, LonLower: -2, LonHigher: -0.4}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	r, err := ctmextract.NewRegridder(g, target)
	if err != nil {
		t.Fatal(err)
	}
	o, err := r.Apply(c)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "regridded.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteRegridded(w, target, []*ctmextract.DataCube{o}, map[string]string{"source": "model.nc"}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if s, _ := f.Attribute("", "source").(string); s != "model.nc" {
		t.Errorf("source attribute = %q", s)
	}
	rg, err := f.Grid("lat", "lon")
	if err != nil {
		t.Fatal(err)
	}
	if rg.Rows() != len(target.Lat) || rg.Cols() != len(target.Lon) {
		t.Errorf("grid shape = %dx%d", rg.Rows(), rg.Cols())
	}
	back, err := f.Cube("O3", "time")
	if err != nil {
		t.Fatal(err)
	}
	if back.Units != "ppb" || !back.Times[1].Equal(c.Times[1]) {
		t.Errorf("units %q, times %v", back.Units, back.Times)
	}
	if len(back.Data.Elements) != len(o.Data.Elements) {
		t.Fatalf("read %d values, wrote %d", len(back.Data.Elements), len(o.Data.Elements))
	}
	for i, v := range o.Data.Elements {
		b := back.Data.Elements[i]
		if math.IsNaN(v) != math.IsNaN(b) || (!math.IsNaN(v) && math.Abs(v-b) > 1e-4) {
			t.Errorf("element %d: wrote %g, read %g", i, v, b)
		}
	}
	// (53, -2) is a source cell center and (54, -0.5) is outside the source grid.
	if v := back.Data.Get(0, 0, 0); math.Abs(v-30) > 1e-4 {
		t.Errorf("O3 at source corner = %g, want 30", v)
	}
	if v := back.Data.Get(0, 2, 3); !math.IsNaN(v) {
		t.Errorf("O3 outside source grid = %g, want NaN", v)
	}

	if err := WriteRegridded(w, target, []*ctmextract.DataCube{c}, nil); !errors.Is(err, ctmextract.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestWriteMask(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	g, err := ctmextract.NewRectilinearGrid([]float64{53, 53.5, 54}, []float64{-2, -1.5, -1})
	if err != nil {
		t.Fatal(err)
	}
	p, err := ctmextract.NewPolygon(ctmextract.Ring{{X: -1.6, Y: 53.4}, {X: -1.4, Y: 53.4}, {X: -1.4, Y: 53.6}, {X: -1.6, Y: 53.6}})
	if err != nil {
		t.Fatal(err)
	}
	m, err := ctmextract.BuildMask(g, ctmextract.RegionSet{{Name: "r", Polygons: []*ctmextract.Polygon{p}}},
		ctmextract.BoundingBox{LatLower: 53, LatHigher: 54, LonLower: -2, LonHigher: -1})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "mask.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteMask(w, g, m, map[string]string{"regions": "r"}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rg, inside, err := f.ReadMask()
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(rg.Lat.Elements, g.Lat.Elements) || !floats.Equal(rg.Lon.Elements, g.Lon.Elements) {
		t.Errorf("grid changed: %v %v", rg.Lat.Elements, rg.Lon.Elements)
	}
	for i, in := range inside {
		if in != (i == 4) {
			t.Errorf("cell %d inside = %v", i, in)
		}
	}
}

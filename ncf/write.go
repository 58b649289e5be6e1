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
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/ctmextract"
)

// WriteRegridded writes cubes that have been regridded onto target to w
// as CF-style NetCDF with dimensions (time, lat, lon). All cubes must
// have the same time steps. attrs are written as global attributes.
func WriteRegridded(w *os.File, target *ctmextract.RegularGrid, cubes []*ctmextract.DataCube, attrs map[string]string) error {
	if len(cubes) == 0 {
		return fmt.Errorf("ncf: no variables to write")
	}
	nt, ny, nx := cubes[0].Shape()
	if nt == 0 {
		return fmt.Errorf("ncf: variable %s has no time steps", cubes[0].Name)
	}
	for _, c := range cubes {
		if t, y, x := c.Shape(); t != nt || y != len(target.Lat) || x != len(target.Lon) {
			return fmt.Errorf("ncf: variable %s has shape %v but the target grid is %dx%d with %d time steps: %w",
				c.Name, c.Data.Shape, len(target.Lat), len(target.Lon), nt, ctmextract.ErrShapeMismatch)
		}
	}

	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{nt, ny, nx})
	h.AddAttribute("", "Conventions", "CF-1.6")
	h.AddAttribute("", "grid_increment", []float64{target.Increment})
	addGlobalAttributes(h, attrs)

	h.AddVariable("time", []string{"time"}, []float64{0})
	ref := cubes[0].Times[0]
	h.AddAttribute("time", "units", "hours since "+ref.UTC().Format("2006-01-02 15:04:05"))
	h.AddAttribute("time", "standard_name", "time")
	h.AddAttribute("time", "calendar", "standard")

	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddAttribute("lat", "standard_name", "latitude")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddAttribute("lon", "standard_name", "longitude")

	for _, c := range cubes {
		h.AddVariable(c.Name, []string{"time", "lat", "lon"}, []float32{0})
		h.AddAttribute(c.Name, "units", c.Units)
		h.AddAttribute(c.Name, "_FillValue", []float32{float32(math.NaN())})
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("ncf: creating file: %v", err)
	}

	hours := make([]float64, nt)
	for i, t := range cubes[0].Times {
		hours[i] = t.Sub(ref).Hours()
	}
	if err := write(f, "time", hours); err != nil {
		return err
	}
	if err := write(f, "lat", target.Lat); err != nil {
		return err
	}
	if err := write(f, "lon", target.Lon); err != nil {
		return err
	}
	for _, c := range cubes {
		data32 := make([]float32, len(c.Data.Elements))
		for i, e := range c.Data.Elements {
			data32[i] = float32(e)
		}
		if err := write(f, c.Name, data32); err != nil {
			return err
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("ncf: %v", err)
	}
	return nil
}

// WriteMask writes the cell center coordinates of g and mask m to w. The
// mask variable is 1 inside the regions and the fill value 0 elsewhere,
// so CF-aware readers see missing values outside the regions.
func WriteMask(w *os.File, g *ctmextract.CurvilinearGrid, m *ctmextract.Mask, attrs map[string]string) error {
	rows, cols := m.Shape()
	if rows != g.Rows() || cols != g.Cols() {
		return fmt.Errorf("ncf: mask shape %dx%d does not match grid shape %dx%d: %w",
			rows, cols, g.Rows(), g.Cols(), ctmextract.ErrShapeMismatch)
	}
	h := cdf.NewHeader([]string{"y", "x"}, []int{rows, cols})
	h.AddAttribute("", "Conventions", "CF-1.6")
	addGlobalAttributes(h, attrs)

	h.AddVariable("lat", []string{"y", "x"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddAttribute("lat", "standard_name", "latitude")
	h.AddVariable("lon", []string{"y", "x"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddAttribute("lon", "standard_name", "longitude")
	h.AddVariable("mask", []string{"y", "x"}, []int16{0})
	h.AddAttribute("mask", "_FillValue", []int16{0})
	h.AddAttribute("mask", "flag_values", []int16{1})
	h.AddAttribute("mask", "flag_meanings", "inside")
	h.AddAttribute("mask", "coordinates", "lat lon")
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("ncf: creating file: %v", err)
	}
	if err := write(f, "lat", g.Lat.Elements); err != nil {
		return err
	}
	if err := write(f, "lon", g.Lon.Elements); err != nil {
		return err
	}
	mask := make([]int16, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.Inside(i, j) {
				mask[i*cols+j] = 1
			}
		}
	}
	if err := write(f, "mask", mask); err != nil {
		return err
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("ncf: %v", err)
	}
	return nil
}

// ReadMask reads a mask written by WriteMask along with its grid.
func (f *File) ReadMask() (*ctmextract.CurvilinearGrid, []bool, error) {
	g, err := f.Grid("lat", "lon")
	if err != nil {
		return nil, nil, err
	}
	l, err := f.lengths("mask")
	if err != nil {
		return nil, nil, err
	}
	vals, err := f.read("mask", make([]int, len(l)), l)
	if err != nil {
		return nil, nil, err
	}
	if len(vals) != g.Rows()*g.Cols() {
		return nil, nil, fmt.Errorf("ncf: mask in %s does not match its grid: %w", f.path, ctmextract.ErrShapeMismatch)
	}
	inside := make([]bool, len(vals))
	for i, v := range vals {
		inside[i] = v == 1
	}
	return g, inside, nil
}

func addGlobalAttributes(h *cdf.Header, attrs map[string]string) {
	names := make([]string, 0, len(attrs))
	for n := range attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		h.AddAttribute("", n, attrs[n])
	}
	h.AddAttribute("", "history", "created "+time.Now().UTC().Format(time.RFC3339))
}

// write writes the whole of variable v.
func write(f *cdf.File, v string, data interface{}) error {
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	w := f.Writer(v, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("ncf: writing variable %s: %v", v, err)
	}
	return nil
}

// Cubes reads several variables at once. Each entry of names is a
// variable in f.
func (f *File) Cubes(timeVar string, names ...string) ([]*ctmextract.DataCube, error) {
	o := make([]*ctmextract.DataCube, len(names))
	for i, n := range names {
		c, err := f.Cube(n, timeVar)
		if err != nil {
			return nil, err
		}
		o[i] = c
	}
	return o, nil
}

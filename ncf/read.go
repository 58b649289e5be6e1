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

// Package ncf reads chemical transport model output from NetCDF (classic
// format) files and writes masks and regridded data back to NetCDF.
package ncf

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ctmextract"
)

// File is an open NetCDF file.
type File struct {
	f    *os.File
	ff   *cdf.File
	path string
}

// Open opens the NetCDF file at path, which can include environment
// variables.
func Open(path string) (*File, error) {
	path = os.ExpandEnv(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncf: %w", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncf: opening %s: %v", path, err)
	}
	return &File{f: f, ff: ff, path: path}, nil
}

// Close closes the file.
func (f *File) Close() error { return f.f.Close() }

// Path returns the location of the file.
func (f *File) Path() string { return f.path }

// Variables returns the names of the variables in the file.
func (f *File) Variables() []string { return f.ff.Header.Variables() }

// Attribute returns the value of attribute a of variable v, or of the
// file when v is empty, or nil if there is no such attribute.
func (f *File) Attribute(v, a string) interface{} { return f.ff.Header.GetAttribute(v, a) }

// lengths returns the dimension lengths of variable v, with the number of
// records substituted for the length of the record dimension.
func (f *File) lengths(v string) ([]int, error) {
	l := f.ff.Header.Lengths(v)
	if len(l) == 0 {
		return nil, fmt.Errorf("ncf: variable %s not in %s", v, f.path)
	}
	l = append([]int(nil), l...)
	if l[0] == 0 {
		fi, err := f.f.Stat()
		if err != nil {
			return nil, fmt.Errorf("ncf: %w", err)
		}
		l[0] = int(f.ff.Header.NumRecs(fi.Size()))
	}
	return l, nil
}

// read reads the hyperslab of variable v between begin and end, applying
// any scale_factor and add_offset and replacing fill values with NaN.
func (f *File) read(v string, begin, end []int) ([]float64, error) {
	n := 1
	for i := range end {
		n *= end[i] - begin[i]
	}
	r := f.ff.Reader(v, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncf: reading variable %s from %s: %v", v, f.path, err)
	}
	o, err := toFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("ncf: variable %s in %s: %v", v, f.path, err)
	}
	var fills []float64
	for _, a := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(f.ff.Header.GetAttribute(v, a)); ok {
			fills = append(fills, fv)
		}
	}
	scale, hasScale := attrFloat(f.ff.Header.GetAttribute(v, "scale_factor"))
	offset, hasOffset := attrFloat(f.ff.Header.GetAttribute(v, "add_offset"))
	for i, val := range o {
		for _, fv := range fills {
			if val == fv {
				val = math.NaN()
				break
			}
		}
		if hasScale {
			val *= scale
		}
		if hasOffset {
			val += offset
		}
		o[i] = val
	}
	return o, nil
}

func toFloat64(buf interface{}) ([]float64, error) {
	var o []float64
	switch b := buf.(type) {
	case []float64:
		o = b
	case []float32:
		o = make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
	case []int32:
		o = make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
	case []int16:
		o = make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
	case []int8:
		o = make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}
	return o, nil
}

// attrFloat returns the first element of a numeric attribute value.
func attrFloat(a interface{}) (float64, bool) {
	switch v := a.(type) {
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int8:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

// Grid reads the cell center coordinates from the latVar and lonVar
// variables. Coordinates can be two-dimensional [row, col] fields,
// three-dimensional [time, row, col] fields as written by WRF, in which
// case the first time step is used, or one-dimensional axes of a
// rectilinear grid.
func (f *File) Grid(latVar, lonVar string) (*ctmextract.CurvilinearGrid, error) {
	lat, err := f.coord(latVar)
	if err != nil {
		return nil, err
	}
	lon, err := f.coord(lonVar)
	if err != nil {
		return nil, err
	}
	if len(lat.Shape) == 1 && len(lon.Shape) == 1 {
		return ctmextract.NewRectilinearGrid(lat.Elements, lon.Elements)
	}
	return ctmextract.NewCurvilinearGrid(lat, lon)
}

func (f *File) coord(v string) (*sparse.DenseArray, error) {
	l, err := f.lengths(v)
	if err != nil {
		return nil, err
	}
	begin := make([]int, len(l))
	end := append([]int(nil), l...)
	var shape []int
	switch len(l) {
	case 1, 2:
		shape = l
	case 3:
		end[0] = 1
		shape = l[1:]
	default:
		return nil, fmt.Errorf("ncf: coordinate variable %s in %s has %d dimensions; it should have 1, 2 or 3",
			v, f.path, len(l))
	}
	vals, err := f.read(v, begin, end)
	if err != nil {
		return nil, err
	}
	o := sparse.ZerosDense(shape...)
	copy(o.Elements, vals)
	return o, nil
}

// Times reads the time axis from timeVar, which must follow the CF
// convention of numeric offsets with a units attribute of the form
// "<unit> since <reference time>".
func (f *File) Times(timeVar string) ([]time.Time, error) {
	l, err := f.lengths(timeVar)
	if err != nil {
		return nil, err
	}
	if len(l) != 1 {
		return nil, fmt.Errorf("ncf: time variable %s in %s has %d dimensions; it should have 1", timeVar, f.path, len(l))
	}
	units, _ := f.ff.Header.GetAttribute(timeVar, "units").(string)
	step, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, fmt.Errorf("ncf: time variable %s in %s: %w", timeVar, f.path, err)
	}
	vals, err := f.read(timeVar, []int{0}, l)
	if err != nil {
		return nil, err
	}
	o := make([]time.Time, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("ncf: time variable %s in %s has a missing value at index %d", timeVar, f.path, i)
		}
		o[i] = ref.Add(time.Duration(math.Round(v * float64(step))))
	}
	return o, nil
}

var timeLayouts = []string{
	"2006-1-2 15:4:5Z07:00",
	"2006-1-2T15:4:5Z07:00",
	"2006-1-2 15:4:5",
	"2006-1-2T15:4:5",
	"2006-1-2 15:4",
	"2006-1-2",
}

func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("units %q are not of the form '<unit> since <time>'", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}
	ref := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), "UTC"))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("invalid reference time %q", parts[1])
}

// Cube reads varName as a data cube with shape [time, row, col]. A
// singleton vertical dimension, as in [time, level, row, col] surface
// fields, is removed, and a two-dimensional variable is read as a single
// time step. Timestamps are read from timeVar when it is present in the
// file; otherwise they are left as the zero time.
func (f *File) Cube(varName, timeVar string) (*ctmextract.DataCube, error) {
	l, err := f.lengths(varName)
	if err != nil {
		return nil, err
	}
	var nt, ny, nx int
	switch {
	case len(l) == 2:
		nt, ny, nx = 1, l[0], l[1]
	case len(l) == 3:
		nt, ny, nx = l[0], l[1], l[2]
	case len(l) == 4 && l[1] == 1:
		nt, ny, nx = l[0], l[2], l[3]
	default:
		return nil, fmt.Errorf("ncf: variable %s in %s has dimensions %v %v; it should be [time, row, col]: %w",
			varName, f.path, f.ff.Header.Dimensions(varName), l, ctmextract.ErrShapeMismatch)
	}
	vals, err := f.read(varName, make([]int, len(l)), l)
	if err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(nt, ny, nx)
	copy(data.Elements, vals)

	times := make([]time.Time, nt)
	if timeVar != "" && len(f.ff.Header.Lengths(timeVar)) > 0 {
		t, err := f.Times(timeVar)
		if err != nil {
			return nil, err
		}
		if len(l) == 2 && len(t) > 0 {
			// Time-invariant fields are stamped with the first time step.
			t = t[:1]
		}
		times = t
	}
	units, _ := f.ff.Header.GetAttribute(varName, "units").(string)
	c, err := ctmextract.NewDataCube(varName, units, times, data)
	if err != nil {
		return nil, fmt.Errorf("ncf: reading %s from %s: %w", varName, f.path, err)
	}
	return c, nil
}

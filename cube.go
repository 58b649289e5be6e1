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
	"time"

	"github.com/ctessum/sparse"
)

// DataCube holds a time series of two-dimensional fields. Data is indexed
// by [time, row, col], and Times holds one timestamp per leading index.
type DataCube struct {
	// Name is the variable name, e.g. "SURF_ppb_NO2".
	Name string

	// Units are the units of the values in Data.
	Units string

	Times []time.Time
	Data  *sparse.DenseArray
}

// NewDataCube checks that data is three-dimensional with one time slice
// per timestamp and returns a cube holding them.
func NewDataCube(name, units string, times []time.Time, data *sparse.DenseArray) (*DataCube, error) {
	if data == nil || len(data.Shape) != 3 {
		var shape []int
		if data != nil {
			shape = data.Shape
		}
		return nil, fmt.Errorf("ctmextract: data cube %s: want 3 dimensions but have shape %v: %w", name, shape, ErrShapeMismatch)
	}
	if len(times) != data.Shape[0] {
		return nil, fmt.Errorf("ctmextract: data cube %s: %d timestamps for %d time slices: %w",
			name, len(times), data.Shape[0], ErrShapeMismatch)
	}
	return &DataCube{Name: name, Units: units, Times: times, Data: data}, nil
}

// Shape returns the number of time steps, rows and columns in c.
func (c *DataCube) Shape() (nt, ny, nx int) {
	return c.Data.Shape[0], c.Data.Shape[1], c.Data.Shape[2]
}

// Slice returns the values of time step t in row-major order. The returned
// slice shares memory with c.
func (c *DataCube) Slice(t int) []float64 {
	_, ny, nx := c.Shape()
	return c.Data.Elements[t*ny*nx : (t+1)*ny*nx]
}

// sameShape reports whether c and o have the same dimensions and time axis
// length.
func (c *DataCube) sameShape(o *DataCube) bool {
	t1, y1, x1 := c.Shape()
	t2, y2, x2 := o.Shape()
	return t1 == t2 && y1 == y2 && x1 == x2
}

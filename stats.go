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
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds statistics of a single time step of a data cube.
type Summary struct {
	Time time.Time

	Min, Mean, Median, Max, Std float64

	// N is the number of non-NaN values.
	N int
}

// Summarize computes the minimum, mean, median, maximum and population
// standard deviation of each time step of c. NaN values, such as those in
// cells removed by a mask, are ignored. All statistics of a time step
// without any valid values are NaN.
func Summarize(c *DataCube) []Summary {
	nt, _, _ := c.Shape()
	o := make([]Summary, nt)
	for t := 0; t < nt; t++ {
		o[t] = summarize(c.Slice(t))
		o[t].Time = c.Times[t]
	}
	return o
}

func summarize(data []float64) Summary {
	vals := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		nan := math.NaN()
		return Summary{Min: nan, Mean: nan, Median: nan, Max: nan, Std: nan}
	}
	sort.Float64s(vals)
	var median float64
	if n := len(vals); n%2 == 1 {
		median = vals[n/2]
	} else {
		median = (vals[n/2-1] + vals[n/2]) / 2
	}
	return Summary{
		Min:    floats.Min(vals),
		Mean:   stat.Mean(vals, nil),
		Median: median,
		Max:    floats.Max(vals),
		Std:    math.Sqrt(stat.Moment(2, vals, nil)),
		N:      len(vals),
	}
}

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

// Package export writes extraction results to files for use in other
// software: statistics as CSV and masked grid cells as shapefiles.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spatialmodel/ctmextract"
)

// StatsHeader is the header row of statistics files.
var StatsHeader = []string{"Date", "Minimum", "Mean", "Median", "Maximum", "Std"}

// DateFormat is the layout of dates in statistics files, the one pandas
// uses when writing timestamps.
const DateFormat = "2006-01-02 15:04:05"

// WriteStatsCSV writes one row per time step of s. Dates are formatted as
// DateFormat in UTC, and statistics that are NaN because no cells had data are
// left empty.
func WriteStatsCSV(w io.Writer, s []ctmextract.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatsHeader); err != nil {
		return fmt.Errorf("export: writing statistics: %w", err)
	}
	for _, r := range s {
		rec := []string{
			r.Time.UTC().Format(DateFormat),
			formatFloat(r.Min),
			formatFloat(r.Mean),
			formatFloat(r.Median),
			formatFloat(r.Max),
			formatFloat(r.Std),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: writing statistics: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: writing statistics: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

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

package export

import (
	"fmt"
	"math"

	"github.com/spatialmodel/ctmextract"
	"github.com/tealeg/xlsx"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// WriteStatsXLSX writes a workbook to path with one sheet of statistics
// per variable, laid out the same way as WriteStatsCSV. names and s must
// have the same length.
func WriteStatsXLSX(path string, names []string, s [][]ctmextract.Summary) error {
	if len(names) != len(s) {
		return fmt.Errorf("export: %d sheet names for %d sets of statistics", len(names), len(s))
	}
	f := xlsx.NewFile()
	for i, name := range names {
		if len(name) > maxSheetName {
			name = name[:maxSheetName]
		}
		sheet, err := f.AddSheet(name)
		if err != nil {
			return fmt.Errorf("export: adding sheet %s: %w", name, err)
		}
		row := sheet.AddRow()
		for _, h := range StatsHeader {
			row.AddCell().SetString(h)
		}
		for _, r := range s[i] {
			row := sheet.AddRow()
			row.AddCell().SetString(r.Time.UTC().Format(DateFormat))
			for _, v := range []float64{r.Min, r.Mean, r.Median, r.Max, r.Std} {
				c := row.AddCell()
				if !math.IsNaN(v) {
					c.SetFloat(v)
				}
			}
		}
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("export: saving %s: %w", path, err)
	}
	return nil
}

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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/ctmextract"
	"gonum.org/v1/gonum/stat"
)

// WGS84 is the spatial reference of exported shapefiles.
const WGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// WriteMaskedPoints writes the centers of the grid cells that are inside
// mask m as a point shapefile at path. Each point has ROW and COL
// attributes holding its grid indices and, for each cube, the mean over
// time of the non-NaN values in the cell. Attribute names are shortened
// to fit the 10 character limit of shapefiles; the names used are
// returned in the order of cubes.
func WriteMaskedPoints(path string, g *ctmextract.CurvilinearGrid, m *ctmextract.Mask, cubes []*ctmextract.DataCube) ([]string, error) {
	rows, cols := m.Shape()
	if rows != g.Rows() || cols != g.Cols() {
		return nil, fmt.Errorf("export: mask shape %dx%d does not match grid shape %dx%d: %w",
			rows, cols, g.Rows(), g.Cols(), ctmextract.ErrShapeMismatch)
	}
	for _, c := range cubes {
		if _, ny, nx := c.Shape(); ny != rows || nx != cols {
			return nil, fmt.Errorf("export: variable %s has shape %v but the grid is %dx%d: %w",
				c.Name, c.Data.Shape, rows, cols, ctmextract.ErrShapeMismatch)
		}
	}

	used := map[string]bool{"ROW": true, "COL": true}
	names := make([]string, len(cubes))
	fields := []goshp.Field{goshp.NumberField("ROW", 8), goshp.NumberField("COL", 8)}
	for i, c := range cubes {
		names[i] = fieldName(c.Name, used)
		fields = append(fields, goshp.FloatField(names[i], 14, 8))
	}

	fileBase := strings.TrimSuffix(path, filepath.Ext(path))
	e, err := shp.NewEncoderFromFields(fileBase+".shp", goshp.POINT, fields...)
	if err != nil {
		return nil, fmt.Errorf("export: creating shapefile: %w", err)
	}
	vals := make([]float64, 0)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !m.Inside(i, j) {
				continue
			}
			attrs := []interface{}{i, j}
			for _, c := range cubes {
				vals = vals[:0]
				nt, _, _ := c.Shape()
				for t := 0; t < nt; t++ {
					if v := c.Data.Get(t, i, j); !math.IsNaN(v) {
						vals = append(vals, v)
					}
				}
				mean := math.NaN()
				if len(vals) > 0 {
					mean = stat.Mean(vals, nil)
				}
				attrs = append(attrs, mean)
			}
			if err := e.EncodeFields(geom.Point(g.Point(i, j)), attrs...); err != nil {
				e.Close()
				return nil, fmt.Errorf("export: writing shapefile: %w", err)
			}
		}
	}
	e.Close()

	f, err := os.Create(fileBase + ".prj")
	if err != nil {
		return nil, fmt.Errorf("export: creating prj file: %w", err)
	}
	if _, err := fmt.Fprint(f, WGS84); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: writing prj file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("export: writing prj file: %w", err)
	}
	return names, nil
}

// fieldName returns a unique attribute name of at most 10 characters.
func fieldName(name string, used map[string]bool) string {
	const maxLen = 10
	n := name
	if len(n) > maxLen {
		n = n[:maxLen]
	}
	for k := 1; used[n]; k++ {
		suffix := strconv.Itoa(k)
		base := name
		if len(base) > maxLen-len(suffix) {
			base = base[:maxLen-len(suffix)]
		}
		n = base + suffix
	}
	used[n] = true
	return n
}

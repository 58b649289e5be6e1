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

package ctmutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ctmextract"
	"github.com/spatialmodel/ctmextract/export"
	"github.com/spatialmodel/ctmextract/internal/hash"
	"github.com/spatialmodel/ctmextract/ncf"
	"github.com/spatialmodel/ctmextract/region"
)

// Mask builds the mask of grid cells inside the configured regions and
// writes it to c.MaskFile. If c.PointsFile is set, the centers of the
// masked cells are also written there as a shapefile along with the
// time-mean of each variable.
func Mask(c *Config, log logrus.FieldLogger) error {
	g, err := loadGrid(c, log)
	if err != nil {
		return err
	}
	regions, b, err := loadRegions(c, log)
	if err != nil {
		return err
	}
	m, err := buildMask(c, g, regions, b, log)
	if err != nil {
		return err
	}

	if c.MaskFile != "" {
		w, err := os.Create(c.MaskFile)
		if err != nil {
			return fmt.Errorf("ctmutil: creating mask file: %w", err)
		}
		attrs := map[string]string{
			"regions":     strings.Join(regions.Names(), ","),
			"region_hash": hash.Regions(regions),
			"source_file": c.GridFile,
		}
		if err := ncf.WriteMask(w, g, m, attrs); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("ctmutil: writing mask file: %w", err)
		}
		log.WithField("file", c.MaskFile).Info("wrote mask")
	}

	if c.PointsFile != "" {
		cubes, err := loadVariables(c, log)
		if err != nil {
			return err
		}
		fields, err := export.WriteMaskedPoints(c.PointsFile, g, m, cubes)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"file":   c.PointsFile,
			"fields": strings.Join(fields, ","),
		}).Info("wrote masked cell centers")
	}
	return nil
}

// Stats masks each configured variable with the configured regions and
// writes its per-time-step statistics to c.StatsFile. If StatsFile is an
// .xlsx file, each variable gets its own sheet. Otherwise the statistics
// are written as CSV and, when there is more than one variable, the
// variable name is added to the file name.
func Stats(c *Config, log logrus.FieldLogger) error {
	g, err := loadGrid(c, log)
	if err != nil {
		return err
	}
	regions, b, err := loadRegions(c, log)
	if err != nil {
		return err
	}
	m, err := buildMask(c, g, regions, b, log)
	if err != nil {
		return err
	}
	if m.Count() == 0 {
		log.Warn("no grid cells are inside the regions; all statistics will be missing")
	}
	cubes, err := loadVariables(c, log)
	if err != nil {
		return err
	}
	names := make([]string, len(cubes))
	stats := make([][]ctmextract.Summary, len(cubes))
	for i, cube := range cubes {
		masked, err := m.Apply(cube)
		if err != nil {
			return err
		}
		names[i] = cube.Name
		stats[i] = ctmextract.Summarize(masked)
	}

	if strings.ToLower(filepath.Ext(c.StatsFile)) == ".xlsx" {
		if err := export.WriteStatsXLSX(c.StatsFile, names, stats); err != nil {
			return err
		}
		log.WithField("file", c.StatsFile).Info("wrote statistics")
		return nil
	}
	for i, name := range names {
		path := outputPath(c.StatsFile, name, len(names))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("ctmutil: creating statistics file: %w", err)
		}
		if err := export.WriteStatsCSV(f, stats[i]); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("ctmutil: writing statistics file: %w", err)
		}
		log.WithFields(logrus.Fields{
			"variable": name,
			"file":     path,
		}).Info("wrote statistics")
	}
	return nil
}

// Regrid interpolates each configured variable onto a regular grid
// covering the bounding box and writes the results to c.RegridFile. If
// regions are configured, cells outside them are masked out first.
func Regrid(c *Config, log logrus.FieldLogger) error {
	g, err := loadGrid(c, log)
	if err != nil {
		return err
	}
	var m *ctmextract.Mask
	b := c.BoundingBox
	if c.hasRegions() {
		regions, rb, err := loadRegions(c, log)
		if err != nil {
			return err
		}
		if m, err = buildMask(c, g, regions, rb, log); err != nil {
			return err
		}
		b = rb
	}
	target, err := ctmextract.NewRegularGrid(b, c.GridIncrement)
	if err != nil {
		return err
	}
	r, err := ctmextract.NewRegridder(g, target)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"lat":     len(target.Lat),
		"lon":     len(target.Lon),
		"covered": r.Coverage(),
	}).Info("computed regridding weights")

	cubes, err := loadVariables(c, log)
	if err != nil {
		return err
	}
	out := make([]*ctmextract.DataCube, len(cubes))
	for i, cube := range cubes {
		if m != nil {
			if cube, err = m.Apply(cube); err != nil {
				return err
			}
		}
		if out[i], err = r.Apply(cube); err != nil {
			return err
		}
	}

	w, err := os.Create(c.RegridFile)
	if err != nil {
		return fmt.Errorf("ctmutil: creating regridded file: %w", err)
	}
	attrs := map[string]string{
		"source_file":      c.DataFile,
		"source_grid_hash": hash.Grid(g),
	}
	if err := ncf.WriteRegridded(w, target, out, attrs); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("ctmutil: writing regridded file: %w", err)
	}
	log.WithField("file", c.RegridFile).Info("wrote regridded data")
	return nil
}

func loadGrid(c *Config, log logrus.FieldLogger) (*ctmextract.CurvilinearGrid, error) {
	f, err := ncf.Open(c.GridFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := f.Grid(c.LatVar, c.LonVar)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file": c.GridFile,
		"rows": g.Rows(),
		"cols": g.Cols(),
	}).Debug("read grid")
	return g, nil
}

// loadRegions loads the regions from the catalog, if one is configured,
// or from the region file. A bounding box in the catalog replaces the
// configured one.
func loadRegions(c *Config, log logrus.FieldLogger) (ctmextract.RegionSet, ctmextract.BoundingBox, error) {
	b := c.BoundingBox
	var rs ctmextract.RegionSet
	switch {
	case c.RegionCatalog != "" && c.RegionSet != "":
		cat, err := region.ReadCatalogFile(c.RegionCatalog)
		if err != nil {
			return nil, b, err
		}
		var cb *ctmextract.BoundingBox
		if rs, cb, err = cat.Load(c.RegionSet); err != nil {
			return nil, b, err
		}
		if cb != nil {
			b = *cb
		}
	case c.RegionFile != "":
		if filepath.Ext(c.RegionFile) == ".shp" {
			if _, err := os.Stat(strings.TrimSuffix(c.RegionFile, ".shp") + ".prj"); err != nil {
				log.WithField("file", c.RegionFile).Warn("shapefile has no .prj file; assuming longitude/latitude coordinates")
			}
		}
		var err error
		if rs, err = region.Load(c.RegionFile, c.RegionNameField, c.Regions...); err != nil {
			return nil, b, err
		}
	default:
		return nil, b, fmt.Errorf("ctmutil: no regions specified; set RegionFile or RegionCatalog and RegionSet")
	}
	log.WithFields(logrus.Fields{
		"regions": strings.Join(rs.Names(), ","),
		"bounds":  fmt.Sprintf("%+v", b),
	}).Info("loaded regions")
	return rs, b, nil
}

func buildMask(c *Config, g *ctmextract.CurvilinearGrid, rs ctmextract.RegionSet, b ctmextract.BoundingBox, log logrus.FieldLogger) (*ctmextract.Mask, error) {
	m, err := ctmextract.BuildMaskConcurrent(g, rs, b, c.Workers)
	if err != nil {
		return nil, err
	}
	log.WithField("cells", m.Count()).Info("built mask")
	return m, nil
}

// loadVariables reads the model variables needed by the configured
// expressions from the data file and evaluates them. Expressions that
// name a single model variable return that variable unchanged apart from
// its name.
func loadVariables(c *Config, log logrus.FieldLogger) ([]*ctmextract.DataCube, error) {
	names, err := c.variableNames()
	if err != nil {
		return nil, err
	}
	f, err := ncf.Open(c.DataFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw := make(map[string]*ctmextract.DataCube)
	o := make([]*ctmextract.DataCube, len(names))
	for i, name := range names {
		e, err := ctmextract.NewExpression(c.Variables[name])
		if err != nil {
			return nil, err
		}
		for _, v := range e.Variables() {
			if _, ok := raw[v]; ok {
				continue
			}
			if raw[v], err = f.Cube(v, c.TimeVar); err != nil {
				return nil, err
			}
			log.WithField("variable", v).Debug("read model variable")
		}
		if vars := e.Variables(); len(vars) == 1 && strings.TrimSpace(e.String()) == vars[0] {
			src := raw[vars[0]]
			o[i] = &ctmextract.DataCube{Name: name, Units: src.Units, Times: src.Times, Data: src.Data}
			continue
		}
		if o[i], err = e.Evaluate(name, "", raw); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// outputPath adds name to the file name of path when there are several
// outputs.
func outputPath(path, name string, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + name + ext
}

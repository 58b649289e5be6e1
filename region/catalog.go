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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/ctmextract"
)

// Catalog holds named sets of regions, so that commonly used areas can
// be referred to by name rather than by file and region list. A catalog
// is written in TOML, for example:
//
//	[Sets.GreaterManchester]
//	File = "gmb.shp"
//	NameField = "NAME"
//	Names = ["Manchester", "Salford", "Trafford"]
//
//	[Sets.GreaterManchester.BoundingBox]
//	LatLower = 53.3
//	LatHigher = 53.7
//	LonLower = -2.8
//	LonHigher = -1.9
type Catalog struct {
	Sets map[string]*CatalogEntry

	// Dir is the directory that relative file paths are resolved against.
	Dir string `toml:"-"`
}

// CatalogEntry describes one set of regions.
type CatalogEntry struct {
	// File is the shapefile or GeoJSON file holding the region
	// geometry. It can include environment variables.
	File string

	// NameField is the attribute that holds region names.
	NameField string

	// Names lists the regions in the set. All regions in File are used
	// if it is empty.
	Names []string

	// BoundingBox optionally gives the area to consider when masking.
	BoundingBox *ctmextract.BoundingBox
}

// ReadCatalog reads a catalog from r.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	c := new(Catalog)
	md, err := toml.DecodeReader(r, c)
	if err != nil {
		return nil, fmt.Errorf("region: reading catalog: %w", err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		keys := make([]string, len(u))
		for i, k := range u {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("region: reading catalog: unknown keys %s", strings.Join(keys, ", "))
	}
	for name, e := range c.Sets {
		if e.File == "" {
			return nil, fmt.Errorf("region: catalog set %s has no File", name)
		}
		if e.BoundingBox != nil {
			if err := e.BoundingBox.Validate(); err != nil {
				return nil, fmt.Errorf("region: catalog set %s: %w", name, err)
			}
		}
	}
	return c, nil
}

// ReadCatalogFile reads the catalog at path. Relative region files in the
// catalog are resolved against the directory containing path.
func ReadCatalogFile(path string) (*Catalog, error) {
	path = os.ExpandEnv(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}
	defer f.Close()
	c, err := ReadCatalog(f)
	if err != nil {
		return nil, err
	}
	c.Dir = filepath.Dir(path)
	return c, nil
}

// SetNames returns the names of the sets in c in alphabetical order.
func (c *Catalog) SetNames() []string {
	o := make([]string, 0, len(c.Sets))
	for n := range c.Sets {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// Load loads the regions in the named set. The returned bounding box is
// nil if the set does not specify one.
func (c *Catalog) Load(set string) (ctmextract.RegionSet, *ctmextract.BoundingBox, error) {
	e, ok := c.Sets[set]
	if !ok {
		return nil, nil, fmt.Errorf("region: catalog set %s: %w; available sets are %s",
			set, ErrRegionNotFound, strings.Join(c.SetNames(), ", "))
	}
	file := os.ExpandEnv(e.File)
	if !filepath.IsAbs(file) && c.Dir != "" {
		file = filepath.Join(c.Dir, file)
	}
	nameField := e.NameField
	if nameField == "" {
		nameField = "NAME"
	}
	rs, err := Load(file, nameField, e.Names...)
	if err != nil {
		return nil, nil, err
	}
	return rs, e.BoundingBox, nil
}

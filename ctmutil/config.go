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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/ctmextract"
	"github.com/spf13/cast"
)

// Config holds the settings shared by the extraction commands.
type Config struct {
	// GridFile holds the LatVar and LonVar coordinate fields. DataFile
	// holds the model variables and the TimeVar time axis; it defaults to
	// GridFile.
	GridFile, DataFile      string
	LatVar, LonVar, TimeVar string

	// Variables maps output names to expressions of model variables.
	Variables map[string]string

	RegionFile, RegionNameField string
	Regions                     []string
	RegionCatalog, RegionSet    string

	BoundingBox   ctmextract.BoundingBox
	GridIncrement float64

	StatsFile, MaskFile, PointsFile, RegridFile string

	// Workers is the number of goroutines used to build masks. Zero
	// means one per processor.
	Workers int
}

// ReadConfig creates a Config from cfg, expanding environment variables
// in file paths.
func ReadConfig(cfg *viper.Viper) (*Config, error) {
	vars, err := GetStringMapString("Variables", cfg)
	if err != nil {
		return nil, err
	}
	c := &Config{
		GridFile:        os.ExpandEnv(cfg.GetString("GridFile")),
		DataFile:        os.ExpandEnv(cfg.GetString("DataFile")),
		LatVar:          cfg.GetString("LatVar"),
		LonVar:          cfg.GetString("LonVar"),
		TimeVar:         cfg.GetString("TimeVar"),
		Variables:       vars,
		RegionFile:      os.ExpandEnv(cfg.GetString("RegionFile")),
		RegionNameField: cfg.GetString("RegionNameField"),
		Regions:         cfg.GetStringSlice("Regions"),
		RegionCatalog:   os.ExpandEnv(cfg.GetString("RegionCatalog")),
		RegionSet:       cfg.GetString("RegionSet"),
		BoundingBox: ctmextract.BoundingBox{
			LatLower:  cfg.GetFloat64("LatLower"),
			LatHigher: cfg.GetFloat64("LatHigher"),
			LonLower:  cfg.GetFloat64("LonLower"),
			LonHigher: cfg.GetFloat64("LonHigher"),
		},
		GridIncrement: cfg.GetFloat64("GridIncrement"),
		StatsFile:     os.ExpandEnv(cfg.GetString("StatsFile")),
		MaskFile:      os.ExpandEnv(cfg.GetString("MaskFile")),
		PointsFile:    os.ExpandEnv(cfg.GetString("PointsFile")),
		RegridFile:    os.ExpandEnv(cfg.GetString("RegridFile")),
		Workers:       cfg.GetInt("Workers"),
	}
	if c.GridFile == "" {
		return nil, fmt.Errorf("ctmutil: GridFile is not set")
	}
	if c.DataFile == "" {
		c.DataFile = c.GridFile
	}
	if err := c.BoundingBox.Validate(); err != nil {
		return nil, err
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("ctmutil: Workers must not be negative; got %d", c.Workers)
	}
	return c, nil
}

// hasRegions reports whether c specifies any regions.
func (c *Config) hasRegions() bool {
	return c.RegionFile != "" || (c.RegionCatalog != "" && c.RegionSet != "")
}

// variableNames returns the output variable names in alphabetical order.
func (c *Config) variableNames() ([]string, error) {
	if len(c.Variables) == 0 {
		return nil, fmt.Errorf("ctmutil: there are no variables specified for output; " +
			"please fill in the Variables configuration and try again")
	}
	names := make([]string, 0, len(c.Variables))
	for n := range c.Variables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument or environment variable.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if v == "" {
			return nil, nil
		}
		o := make(map[string]string)
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("ctmutil: reading %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("ctmutil: invalid type for %s: %#v", varName, i)
	}
}

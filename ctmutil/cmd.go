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
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ctmextract"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the commands.
var Log = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	regionFlags := func() []*pflag.FlagSet {
		return []*pflag.FlagSet{maskCmd.Flags(), statsCmd.Flags(), regridCmd.Flags()}
	}

	// Options are the configuration options available to ctmextract.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the minimum severity of log messages. It can
              be one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "GridFile",
			usage: `
              GridFile is the path to the NetCDF file holding the model
              latitude and longitude fields. It can contain environment
              variables.`,
			shorthand:  "g",
			defaultVal: "",
			flagsets:   regionFlags(),
		},
		{
			name: "LatVar",
			usage: `
              LatVar is the name of the latitude variable in GridFile.`,
			defaultVal: "XLAT",
			flagsets:   regionFlags(),
		},
		{
			name: "LonVar",
			usage: `
              LonVar is the name of the longitude variable in GridFile.`,
			defaultVal: "XLONG",
			flagsets:   regionFlags(),
		},
		{
			name: "DataFile",
			usage: `
              DataFile is the path to the NetCDF file holding the model
              output variables. If it is empty, GridFile is used.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   regionFlags(),
		},
		{
			name: "TimeVar",
			usage: `
              TimeVar is the name of the time variable in DataFile. Its
              units attribute must be in the form 'hours since 2006-01-02 15:04:05'.`,
			defaultVal: "time",
			flagsets:   regionFlags(),
		},
		{
			name: "Variables",
			usage: `
              Variables maps output variable names to expressions of the
              model variables in DataFile, for example
              {"NOx": "SURF_ppb_NO2 + SURF_ppb_NO"}.`,
			defaultVal: map[string]string{"SURF_ppb_NO2": "SURF_ppb_NO2"},
			flagsets:   regionFlags(),
		},
		{
			name: "RegionFile",
			usage: `
              RegionFile is the path to a shapefile or GeoJSON file holding
              the region boundaries.`,
			shorthand:  "r",
			defaultVal: "",
			flagsets:   regionFlags(),
		},
		{
			name: "RegionNameField",
			usage: `
              RegionNameField is the attribute of RegionFile holding the
              region names.`,
			defaultVal: "NAME",
			flagsets:   regionFlags(),
		},
		{
			name: "Regions",
			usage: `
              Regions lists the regions in RegionFile to use. If it is
              empty, all regions are used.`,
			defaultVal: []string{},
			flagsets:   regionFlags(),
		},
		{
			name: "RegionCatalog",
			usage: `
              RegionCatalog is the path to a TOML file of named region sets.
              If it is set along with RegionSet, it takes the place of
              RegionFile, RegionNameField and Regions.`,
			defaultVal: "",
			flagsets:   regionFlags(),
		},
		{
			name: "RegionSet",
			usage: `
              RegionSet is the name of the region set in RegionCatalog to use.`,
			defaultVal: "",
			flagsets:   regionFlags(),
		},
		{
			name: "LatLower",
			usage: `
              LatLower is the southern edge of the bounding box.`,
			defaultVal: 53.0,
			flagsets:   regionFlags(),
		},
		{
			name: "LatHigher",
			usage: `
              LatHigher is the northern edge of the bounding box.`,
			defaultVal: 54.0,
			flagsets:   regionFlags(),
		},
		{
			name: "LonLower",
			usage: `
              LonLower is the western edge of the bounding box.`,
			defaultVal: -3.0,
			flagsets:   regionFlags(),
		},
		{
			name: "LonHigher",
			usage: `
              LonHigher is the eastern edge of the bounding box.`,
			defaultVal: -1.0,
			flagsets:   regionFlags(),
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of goroutines used to build the mask.
              Zero means one per processor.`,
			defaultVal: 0,
			flagsets:   regionFlags(),
		},
		{
			name: "StatsFile",
			usage: `
              StatsFile is the path of the output CSV file.`,
			shorthand:  "o",
			defaultVal: "example_data2.csv",
			flagsets:   []*pflag.FlagSet{statsCmd.Flags()},
		},
		{
			name: "MaskFile",
			usage: `
              MaskFile is the path of the output NetCDF mask file.`,
			defaultVal: "mask.nc",
			flagsets:   []*pflag.FlagSet{maskCmd.Flags()},
		},
		{
			name: "PointsFile",
			usage: `
              PointsFile, if set, is the path of an output shapefile of the
              centers of the masked grid cells.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{maskCmd.Flags()},
		},
		{
			name: "GridIncrement",
			usage: `
              GridIncrement is the spacing in degrees of the regular
              output grid.`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{regridCmd.Flags()},
		},
		{
			name: "RegridFile",
			usage: `
              RegridFile is the path of the output NetCDF file of
              regridded variables.`,
			defaultVal: "regridded.nc",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CTMEXTRACT")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.String(option.name, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(maskCmd)
	Root.AddCommand(statsCmd)
	Root.AddCommand(regridCmd)
}

// setConfig reads in the configuration file, if there is one, and
// configures the logger.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ctmextract: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("ctmextract: %v", err)
	}
	Log.SetLevel(level)
	Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ctmextract",
	Short: "Extract regional data from air quality model output.",
	Long: `ctmextract extracts data from gridded chemical transport model output
for geographic regions. Use the subcommands specified below to build region
masks, calculate regional statistics, or regrid model output to a regular
latitude-longitude grid.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CTMEXTRACT_var' where 'var' is the
name of the variable to be set. File paths are allowed to contain environment
variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ctmextract.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ctmextract v%s\n", ctmextract.Version)
	},
	DisableAutoGenTag: true,
}

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Build a region mask.",
	Long: `mask finds the model grid cells whose centers are inside the configured
regions and saves the result as a NetCDF file. Optionally, the masked cell
centers can also be saved as a shapefile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Mask(c, Log)
	},
	DisableAutoGenTag: true,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Calculate regional statistics.",
	Long: `stats calculates the minimum, mean, median, maximum and standard deviation
of each output variable over the grid cells inside the configured regions, for
each time step. They are saved as CSV, one file per variable when there are
several, or as an Excel workbook with one sheet per variable if StatsFile ends
in .xlsx.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Stats(c, Log)
	},
	DisableAutoGenTag: true,
}

var regridCmd = &cobra.Command{
	Use:   "regrid",
	Short: "Regrid model output to a regular grid.",
	Long: `regrid interpolates each output variable onto a regular latitude-longitude
grid covering the bounding box and saves the result as a CF-style NetCDF file.
If regions are configured, grid cells outside of them are treated as missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Regrid(c, Log)
	},
	DisableAutoGenTag: true,
}

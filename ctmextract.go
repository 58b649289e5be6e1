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

// Package ctmextract extracts pollutant concentrations from gridded
// chemical transport model output and restricts them to a region of
// interest made up of administrative boundary polygons.
//
// The model grid is curvilinear: every cell center has its own latitude
// and longitude, and rows and columns need not follow lines of constant
// latitude or longitude. A Mask marks the cells whose centers fall inside
// the region so that concentrations outside it can be dropped before the
// data are summarized. Alternatively, a Regridder resamples the model
// output onto a regular latitude/longitude grid by bilinear interpolation.
package ctmextract

// Version gives the version number.
const Version = "0.3.0"

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

import "errors"

var (
	// ErrShapeMismatch is returned when arrays that must share a shape
	// do not, for example the latitude and longitude fields of a grid or
	// a mask and the data cube it is applied to.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidBoundingBox is returned when the lower bound of a
	// bounding box is not less than its upper bound on either axis.
	ErrInvalidBoundingBox = errors.New("invalid bounding box")

	// ErrMalformedPolygon is returned for polygon rings with fewer than
	// three distinct vertices or with non-finite coordinates.
	ErrMalformedPolygon = errors.New("malformed polygon")

	// ErrInvalidIncrement is returned when a regular grid is requested
	// with a non-positive step.
	ErrInvalidIncrement = errors.New("invalid grid increment")

	// ErrNonFinite is returned when grid coordinates contain NaN or
	// infinite values.
	ErrNonFinite = errors.New("non-finite coordinate")
)

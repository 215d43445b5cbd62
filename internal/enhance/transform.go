// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package enhance applies one of several tone-mapping transforms to a frame.
package enhance

import (
	"fmt"
	"image"
	"strings"

	"github.com/mlnoga/nightvision/internal/errs"
)

// A tone-mapping strategy. The set of variants is closed
type Transform interface {
	fmt.Stringer
	isTransform()
}

// Logarithmic compression
type Log struct {
	InputScale float64
}

// Contrast limited adaptive histogram equalization per channel
type LocalHE struct {
	ClipLimit    float64
	TileGridSize image.Point
}

// Global histogram equalization per channel
type GlobalHE struct{}

// Adaptive gamma correction with weighted histogram distribution on the intensity
type AGCWHD struct{}

func (Log) isTransform()      {}
func (LocalHE) isTransform()  {}
func (GlobalHE) isTransform() {}
func (AGCWHD) isTransform()   {}

func (t Log) String() string { return fmt.Sprintf("log(inputScale=%g)", t.InputScale) }
func (t LocalHE) String() string {
	return fmt.Sprintf("locHE(clipLimit=%g, tiles=%dx%d)", t.ClipLimit, t.TileGridSize.X, t.TileGridSize.Y)
}
func (GlobalHE) String() string { return "globHE" }
func (AGCWHD) String() string   { return "AGCWHD" }

// Names accepted for the transform parameter
var TransformNames = []string{"log", "locHE", "globHE", "AGCWHD"}

// Resolves a transform name, spelled exactly as in TransformNames, and binds its parameters
func ParseTransform(name string, p *Params) (Transform, error) {
	switch name {
	case "log":
		return Log{InputScale: p.InputScale}, nil
	case "locHE":
		return LocalHE{ClipLimit: p.ClipLimit, TileGridSize: p.TileGridSize}, nil
	case "globHE":
		return GlobalHE{}, nil
	case "AGCWHD":
		return AGCWHD{}, nil
	}
	return nil, errs.Configf("unknown transform '%s', expecting one of %s", name, strings.Join(TransformNames, ", "))
}

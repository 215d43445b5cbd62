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

package enhance

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/mlnoga/nightvision/internal/errs"
)

/* Example configuration file:

levels: 256
transform: AGCWHD
inputScale: 0.2
clipLimit: 40
tileGridSize:
  x: 8
  y: 8
maxWidth: 1280
maxHeight: 720
histDir: charts/
verbose: true

*/

// Enhancement parameters. Immutable once an Enhancer is built from them
type Params struct {
	Levels    int    `json:"levels" yaml:"levels"`
	Transform string `json:"transform" yaml:"transform"`

	InputScale   float64     `json:"inputScale" yaml:"inputScale"`
	ClipLimit    float64     `json:"clipLimit" yaml:"clipLimit"`
	TileGridSize image.Point `json:"tileGridSize" yaml:"tileGridSize"`

	// Preprocessing window, 0 for unbounded
	MaxWidth  int `json:"maxWidth" yaml:"maxWidth"`
	MaxHeight int `json:"maxHeight" yaml:"maxHeight"`

	// Directory for AGCWHD histogram charts, empty for none
	HistDir string `json:"histDir" yaml:"histDir"`
	Verbose bool   `json:"verbose" yaml:"verbose"`
}

func DefaultParams() Params {
	return Params{
		Levels:       256,
		Transform:    "AGCWHD",
		InputScale:   0.2,
		ClipLimit:    40,
		TileGridSize: image.Point{X: 8, Y: 8},
		MaxWidth:     1280,
		MaxHeight:    720,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (p *Params) UnmarshalJSON(data []byte) error {
	type defaults Params
	def := defaults(DefaultParams())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*p = Params(def)
	return nil
}

// Loads parameters from a JSON or YAML file, with defaults for missing entries.
// Files ending in .json are parsed as JSON, everything else as YAML
func LoadParams(fileName string) (*Params, error) {
	contents, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errs.Configf("read '%s': %w", fileName, err)
	}
	p := DefaultParams()
	if strings.EqualFold(filepath.Ext(fileName), ".json") {
		err = json.Unmarshal(contents, &p)
	} else {
		err = yaml.UnmarshalStrict(contents, &p)
	}
	if err != nil {
		return nil, errs.Configf("parse '%s': %w", fileName, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Checks parameters for consistency
func (p *Params) Validate() error {
	if p.Levels < 2 || p.Levels > 65536 {
		return errs.Configf("levels %d outside [2, 65536]", p.Levels)
	}
	if _, err := ParseTransform(p.Transform, p); err != nil {
		return err
	}
	if p.InputScale <= 0 {
		return errs.Configf("inputScale %g must be positive", p.InputScale)
	}
	if p.ClipLimit <= 0 {
		return errs.Configf("clipLimit %g must be positive", p.ClipLimit)
	}
	if p.TileGridSize.X < 1 || p.TileGridSize.Y < 1 {
		return errs.Configf("tileGridSize %dx%d must be at least 1x1", p.TileGridSize.X, p.TileGridSize.Y)
	}
	if p.MaxWidth < 0 || p.MaxHeight < 0 {
		return errs.Configf("window %dx%d must not be negative", p.MaxWidth, p.MaxHeight)
	}
	return nil
}

func (p *Params) String() string {
	return fmt.Sprintf("levels %d transform %s window %dx%d", p.Levels, p.Transform, p.MaxWidth, p.MaxHeight)
}

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

package frame

import (
	"fmt"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Number of color channels in a frame, in order blue, green, red
const Channels = 3

const (
	Blue  = 0
	Green = 1
	Red   = 2
)

// A three-channel raster image with integer samples.
// Data is planar: blue plane first, then green, then red, each Pixels long.
type Frame struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Width  int
	Height int
	Levels int // Number of intensity levels L; samples lie in [0, L-1]
	Pixels int // Width*Height

	Data []uint16
}

// Creates an all-black frame of the given size
func New(width, height, levels int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.Inputf("invalid frame size %dx%d", width, height)
	}
	if levels < 2 || levels > 65536 {
		return nil, errs.Configf("levels %d outside [2, 65536]", levels)
	}
	pixels := width * height
	return &Frame{
		Width:  width,
		Height: height,
		Levels: levels,
		Pixels: pixels,
		Data:   make([]uint16, pixels*Channels),
	}, nil
}

// Creates an empty frame with the same ID, name and geometry as f
func NewFromFrame(f *Frame) *Frame {
	return &Frame{
		ID:       f.ID,
		FileName: f.FileName,
		Width:    f.Width,
		Height:   f.Height,
		Levels:   f.Levels,
		Pixels:   f.Pixels,
		Data:     make([]uint16, len(f.Data)),
	}
}

// Returns a deep copy
func (f *Frame) Clone() *Frame {
	c := NewFromFrame(f)
	copy(c.Data, f.Data)
	return c
}

// Returns the plane of channel c. The slice aliases the frame data
func (f *Frame) Channel(c int) []uint16 {
	return f.Data[c*f.Pixels : (c+1)*f.Pixels]
}

// Largest representable sample value, L-1
func (f *Frame) MaxValue() uint16 {
	return uint16(f.Levels - 1)
}

func (f *Frame) DimensionsToString() string {
	return fmt.Sprintf("%dx%dx%d", f.Width, f.Height, Channels)
}

// Checks that every sample lies in [0, L-1]
func (f *Frame) Validate() error {
	if len(f.Data) != f.Pixels*Channels || f.Pixels != f.Width*f.Height {
		return errs.Inputf("%d: inconsistent frame geometry %s with %d samples", f.ID, f.DimensionsToString(), len(f.Data))
	}
	max := f.MaxValue()
	for i, v := range f.Data {
		if v > max {
			return errs.Inputf("%d: sample %d at index %d exceeds L-1=%d", f.ID, v, i, max)
		}
	}
	return nil
}

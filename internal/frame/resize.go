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
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Downscales a frame to fit into a maxWidth x maxHeight window, preserving the
// aspect ratio. Frames that already fit are returned as is. Non-positive
// window dimensions disable the respective constraint
func FitToWindow(f *Frame, maxWidth, maxHeight int) *Frame {
	width, height := FitDimensions(f.Width, f.Height, maxWidth, maxHeight)
	if width == f.Width && height == f.Height {
		return f
	}
	return Resize(f, width, height)
}

// Returns the size FitToWindow produces for a width x height frame
func FitDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	factor := 1.0
	if maxWidth > 0 && width > maxWidth {
		factor = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && height > maxHeight {
		factor = math.Min(factor, float64(maxHeight)/float64(height))
	}
	if factor >= 1 {
		return width, height
	}
	return int(math.Max(1, math.Round(float64(width)*factor))),
		int(math.Max(1, math.Round(float64(height)*factor)))
}

// Resamples all channels to the given size with Catmull-Rom interpolation
func Resize(f *Frame, width, height int) *Frame {
	res := &Frame{
		ID:       f.ID,
		FileName: f.FileName,
		Width:    width,
		Height:   height,
		Levels:   f.Levels,
		Pixels:   width * height,
		Data:     make([]uint16, width*height*Channels),
	}
	src := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	dst := image.NewGray16(image.Rect(0, 0, width, height))
	max := f.MaxValue()
	for c := 0; c < Channels; c++ {
		planeToGray16(f.Channel(c), src)
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		gray16ToPlane(dst, res.Channel(c), max)
	}
	return res
}

func planeToGray16(plane []uint16, img *image.Gray16) {
	for i, v := range plane {
		img.Pix[2*i] = uint8(v >> 8)
		img.Pix[2*i+1] = uint8(v)
	}
}

// Catmull-Rom may overshoot, so values are clamped to max
func gray16ToPlane(img *image.Gray16, plane []uint16, max uint16) {
	for i := range plane {
		v := uint16(img.Pix[2*i])<<8 | uint16(img.Pix[2*i+1])
		if v > max {
			v = max
		}
		plane[i] = v
	}
}

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

	"github.com/disintegration/imaging"
)

// Converts a Go image into a frame with the given number of levels.
// Alpha is ignored.
func FromImage(img image.Image, levels int) (*Frame, error) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	f, err := New(b.Dx(), b.Dy(), levels)
	if err != nil {
		return nil, err
	}
	blue, green, red := f.Channel(Blue), f.Channel(Green), f.Channel(Red)
	for y := 0; y < f.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		yoffset := y * f.Width
		for x := 0; x < f.Width; x++ {
			px := row[x*4 : x*4+4]
			red[yoffset+x] = FromByte(px[0], levels)
			green[yoffset+x] = FromByte(px[1], levels)
			blue[yoffset+x] = FromByte(px[2], levels)
		}
	}
	return f, nil
}

// Converts a frame into an opaque 8-bit Go image
func (f *Frame) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	blue, green, red := f.Channel(Blue), f.Channel(Green), f.Channel(Red)
	for y := 0; y < f.Height; y++ {
		row := img.Pix[y*img.Stride:]
		yoffset := y * f.Width
		for x := 0; x < f.Width; x++ {
			px := row[x*4 : x*4+4]
			px[0] = ToByte(red[yoffset+x], f.Levels)
			px[1] = ToByte(green[yoffset+x], f.Levels)
			px[2] = ToByte(blue[yoffset+x], f.Levels)
			px[3] = 0xff
		}
	}
	return img
}

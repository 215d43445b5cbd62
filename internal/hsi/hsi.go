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

// Package hsi converts frames between BGR and the hue, saturation,
// intensity representation used for intensity-only tone mapping.
package hsi

import (
	"fmt"
	"math"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/pool"
)

// Guards the saturation division for black pixels, and is the hue
// denominator below which a pixel counts as achromatic
const epsilon = 1e-6

// Storage convention of HSI components
type Encoding int

const (
	Normalized Encoding = iota // components are doubles in [0,1]
	Discrete                   // components are integers in [0, L-1]
)

func (e Encoding) String() string {
	switch e {
	case Normalized:
		return "normalized"
	case Discrete:
		return "discrete"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Plane indices
const (
	I = 0
	S = 1
	H = 2
)

// A planar HSI image. Plane 0 is intensity, 1 saturation and 2 hue,
// each Pixels long. Hue is stored as a fraction of a full turn.
type Image struct {
	ID       int
	Width    int
	Height   int
	Levels   int
	Pixels   int
	Encoding Encoding

	Data []float64
}

func newImage(id, width, height, levels int, enc Encoding) *Image {
	pixels := width * height
	return &Image{
		ID:       id,
		Width:    width,
		Height:   height,
		Levels:   levels,
		Pixels:   pixels,
		Encoding: enc,
		Data:     pool.Float64.Get(pixels * 3),
	}
}

// Returns plane c, aliasing the image data
func (img *Image) Plane(c int) []float64 {
	return img.Data[c*img.Pixels : (c+1)*img.Pixels]
}

// Returns the pixel buffer to the pool. The image must not be used afterwards
func (img *Image) Release() {
	pool.Float64.Put(img.Data)
	img.Data = nil
}

func checkEncoding(enc Encoding) error {
	if enc != Normalized && enc != Discrete {
		return errs.Configf("unknown HSI encoding %d", int(enc))
	}
	return nil
}

// Converts a BGR frame to HSI
func ToHSI(f *frame.Frame, levels int, enc Encoding) (*Image, error) {
	if err := checkEncoding(enc); err != nil {
		return nil, err
	}
	if levels < 2 {
		return nil, errs.Configf("levels %d below 2", levels)
	}
	top := float64(levels - 1)
	blue, green, red := f.Channel(frame.Blue), f.Channel(frame.Green), f.Channel(frame.Red)
	for i := range blue {
		if float64(blue[i]) > top || float64(green[i]) > top || float64(red[i]) > top {
			return nil, errs.Inputf("%d: pixel %d exceeds L-1=%d", f.ID, i, levels-1)
		}
	}

	img := newImage(f.ID, f.Width, f.Height, levels, enc)
	intens, sat, hue := img.Plane(I), img.Plane(S), img.Plane(H)
	for i := range blue {
		b, g, r := float64(blue[i])/top, float64(green[i])/top, float64(red[i])/top

		sum := b + g + r
		min := math.Min(b, math.Min(g, r))
		s := 1 - 3*min/(sum+epsilon)

		num := 0.5 * ((r - g) + (r - b))
		den := math.Sqrt((r-g)*(r-g) + (r-b)*(g-b))
		theta := 0.0 // hue is undefined for achromatic pixels
		if den > epsilon {
			theta = math.Acos(clamp(num/den, -1, 1))
		}
		h := theta
		if b > g {
			h = 2*math.Pi - theta
		}

		intens[i], sat[i], hue[i] = sum/3, clamp(s, 0, 1), h/(2*math.Pi)
	}
	if enc == Discrete {
		for i, v := range img.Data {
			img.Data[i] = math.Round(v * top)
		}
	}
	return img, nil
}

// Converts an HSI image back to a BGR frame with the given number of levels
func ToBGR(img *Image, levels int, enc Encoding) (*frame.Frame, error) {
	if err := checkEncoding(enc); err != nil {
		return nil, err
	}
	if enc != img.Encoding {
		return nil, errs.Configf("%d: image is %v, asked to decode as %v", img.ID, img.Encoding, enc)
	}
	f, err := frame.New(img.Width, img.Height, levels)
	if err != nil {
		return nil, err
	}
	f.ID = img.ID

	scale := 1.0
	if enc == Discrete {
		scale = 1 / float64(img.Levels-1)
	}
	top := float64(levels - 1)
	intens, sat, hue := img.Plane(I), img.Plane(S), img.Plane(H)
	blue, green, red := f.Channel(frame.Blue), f.Channel(frame.Green), f.Channel(frame.Red)
	for p := range intens {
		i, s, h := intens[p]*scale, sat[p]*scale, hue[p]*scale*2*math.Pi

		var b, g, r float64
		switch {
		case h < 2*math.Pi/3:
			b = i * (1 - s)
			r = i * (1 + s*math.Cos(h)/math.Cos(math.Pi/3-h))
			g = 3*i - (r + b)
		case h < 4*math.Pi/3:
			h -= 2 * math.Pi / 3
			r = i * (1 - s)
			g = i * (1 + s*math.Cos(h)/math.Cos(math.Pi/3-h))
			b = 3*i - (r + g)
		default:
			h -= 4 * math.Pi / 3
			g = i * (1 - s)
			b = i * (1 + s*math.Cos(h)/math.Cos(math.Pi/3-h))
			r = 3*i - (g + b)
		}

		blue[p] = uint16(math.Round(clamp(b, 0, 1) * top))
		green[p] = uint16(math.Round(clamp(g, 0, 1) * top))
		red[p] = uint16(math.Round(clamp(r, 0, 1) * top))
	}
	return f, nil
}

// Returns the intensity plane quantized to integers in [0, L-1]
func (img *Image) QuantizedIntensity() []uint16 {
	top := float64(img.Levels - 1)
	if img.Encoding == Discrete {
		top = 1
	}
	intens := img.Plane(I)
	res := make([]uint16, len(intens))
	for i, v := range intens {
		res[i] = uint16(math.Round(clamp(v*top, 0, float64(img.Levels-1))))
	}
	return res
}

// Returns a copy of the image with the intensity plane replaced by the
// given integer levels. Hue and saturation are carried over unchanged
func (img *Image) WithIntensity(levels []uint16) (*Image, error) {
	if len(levels) != img.Pixels {
		return nil, errs.Computationf("%d: intensity plane has %d values, want %d", img.ID, len(levels), img.Pixels)
	}
	res := newImage(img.ID, img.Width, img.Height, img.Levels, img.Encoding)
	copy(res.Data[img.Pixels:], img.Data[img.Pixels:])
	scale := 1 / float64(img.Levels-1)
	if img.Encoding == Discrete {
		scale = 1
	}
	intens := res.Plane(I)
	for i, v := range levels {
		intens[i] = float64(v) * scale
	}
	return res, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

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

// Package vision provides histogram equalization primitives on single
// channels, in pure Go and optionally backed by OpenCV.
package vision

import (
	"image"
	"math"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Channel-wise histogram equalization
type Equalizer interface {
	// Global histogram equalization
	Global(ch []uint16, width, height, levels int) ([]uint16, error)

	// Contrast limited adaptive histogram equalization over a grid of tiles.
	// The clip limit is relative to a flat histogram
	Local(ch []uint16, width, height, levels int, clipLimit float64, tiles image.Point) ([]uint16, error)
}

// Equalizer used by the enhancer. Builds with the gocv tag replace it with OpenCV
var Default Equalizer = Native{}

// Pure Go fallback for builds without OpenCV
type Native struct{}

func checkChannel(ch []uint16, width, height, levels int) error {
	if width <= 0 || height <= 0 || len(ch) != width*height {
		return errs.Inputf("channel of %d values does not match %dx%d", len(ch), width, height)
	}
	if levels < 2 || levels > 65536 {
		return errs.Configf("levels %d outside [2, 65536]", levels)
	}
	for i, v := range ch {
		if int(v) >= levels {
			return errs.Inputf("value %d at index %d exceeds L-1=%d", v, i, levels-1)
		}
	}
	return nil
}

func (Native) Global(ch []uint16, width, height, levels int) ([]uint16, error) {
	if err := checkChannel(ch, width, height, levels); err != nil {
		return nil, err
	}
	hist := make([]int, levels)
	for _, v := range ch {
		hist[v]++
	}

	// map the first occupied level to 0 and spread the rest by cumulative count
	first := 0
	for hist[first] == 0 {
		first++
	}
	total := len(ch)
	res := make([]uint16, len(ch))
	if hist[first] == total {
		for i := range res {
			res[i] = uint16(first)
		}
		return res, nil
	}
	lut := make([]uint16, levels)
	scale := float64(levels-1) / float64(total-hist[first])
	sum := 0
	for v := first + 1; v < levels; v++ {
		sum += hist[v]
		lut[v] = uint16(math.Min(math.Round(float64(sum)*scale), float64(levels-1)))
	}
	for i, v := range ch {
		res[i] = lut[v]
	}
	return res, nil
}

func (Native) Local(ch []uint16, width, height, levels int, clipLimit float64, tiles image.Point) ([]uint16, error) {
	if err := checkChannel(ch, width, height, levels); err != nil {
		return nil, err
	}
	if tiles.X <= 0 || tiles.Y <= 0 {
		return nil, errs.Configf("tile grid %dx%d must be positive", tiles.X, tiles.Y)
	}
	if clipLimit < 0 {
		return nil, errs.Configf("clip limit %g is negative", clipLimit)
	}
	tx, ty := min(tiles.X, width), min(tiles.Y, height)
	tileW, tileH := float64(width)/float64(tx), float64(height)/float64(ty)

	luts := make([][]float64, tx*ty)
	for j := 0; j < ty; j++ {
		y0, y1 := int(float64(j)*tileH), int(float64(j+1)*tileH)
		for i := 0; i < tx; i++ {
			x0, x1 := int(float64(i)*tileW), int(float64(i+1)*tileW)
			luts[j*tx+i] = tileLUT(ch, width, x0, x1, y0, y1, levels, clipLimit)
		}
	}

	// bilinear interpolation between the LUTs of the four nearest tile centers
	res := make([]uint16, len(ch))
	top := float64(levels - 1)
	for y := 0; y < height; y++ {
		tyf := (float64(y)+0.5)/tileH - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ty2 := ty1 + 1
		ty1, ty2 = max(ty1, 0), min(ty2, ty-1)

		for x := 0; x < width; x++ {
			txf := (float64(x)+0.5)/tileW - 0.5
			tx1 := int(math.Floor(txf))
			xa := txf - float64(tx1)
			tx2 := tx1 + 1
			tx1, tx2 = max(tx1, 0), min(tx2, tx-1)

			v := ch[y*width+x]
			upper := luts[ty1*tx+tx1][v]*(1-xa) + luts[ty1*tx+tx2][v]*xa
			lower := luts[ty2*tx+tx1][v]*(1-xa) + luts[ty2*tx+tx2][v]*xa
			res[y*width+x] = uint16(math.Min(math.Round(upper*(1-ya)+lower*ya), top))
		}
	}
	return res, nil
}

// Builds the clipped equalization lookup table of one tile. Excess counts
// above the clip limit are redistributed evenly over all levels
func tileLUT(ch []uint16, width, x0, x1, y0, y1, levels int, clipLimit float64) []float64 {
	hist := make([]int, levels)
	for y := y0; y < y1; y++ {
		for _, v := range ch[y*width+x0 : y*width+x1] {
			hist[v]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	if clipLimit > 0 {
		limit := max(1, int(clipLimit*float64(area)/float64(levels)))
		clipped := 0
		for v, c := range hist {
			if c > limit {
				clipped += c - limit
				hist[v] = limit
			}
		}
		batch := clipped / levels
		residual := clipped - batch*levels
		for v := range hist {
			hist[v] += batch
		}
		if residual > 0 {
			step := max(levels/residual, 1)
			for v := 0; v < levels && residual > 0; v += step {
				hist[v]++
				residual--
			}
		}
	}

	lut := make([]float64, levels)
	scale := float64(levels-1) / float64(area)
	sum := 0
	for v, c := range hist {
		sum += c
		lut[v] = math.Min(float64(sum)*scale, float64(levels-1))
	}
	return lut
}

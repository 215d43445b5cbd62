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

//go:build gocv

package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/mlnoga/nightvision/internal/errs"
)

func init() {
	Default = OpenCV{}
}

// Equalizer backed by OpenCV. Handles 8-bit channels, other depths fall back to Native
type OpenCV struct{}

func toMat(ch []uint16, width, height int) (gocv.Mat, error) {
	buf := make([]byte, len(ch))
	for i, v := range ch {
		buf[i] = byte(v)
	}
	m, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return m, errs.Computationf("cannot wrap %dx%d channel: %w", width, height, err)
	}
	return m, nil
}

func fromMat(m gocv.Mat) []uint16 {
	buf := m.ToBytes()
	res := make([]uint16, len(buf))
	for i, b := range buf {
		res[i] = uint16(b)
	}
	return res
}

func (OpenCV) Global(ch []uint16, width, height, levels int) ([]uint16, error) {
	if levels != 256 {
		return Native{}.Global(ch, width, height, levels)
	}
	if err := checkChannel(ch, width, height, levels); err != nil {
		return nil, err
	}
	src, err := toMat(ch, width, height)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	gocv.EqualizeHist(src, &dst)
	return fromMat(dst), nil
}

func (OpenCV) Local(ch []uint16, width, height, levels int, clipLimit float64, tiles image.Point) ([]uint16, error) {
	if levels != 256 {
		return Native{}.Local(ch, width, height, levels, clipLimit, tiles)
	}
	if err := checkChannel(ch, width, height, levels); err != nil {
		return nil, err
	}
	if tiles.X <= 0 || tiles.Y <= 0 {
		return nil, errs.Configf("tile grid %dx%d must be positive", tiles.X, tiles.Y)
	}
	src, err := toMat(ch, width, height)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	clahe := gocv.NewCLAHEWithParams(clipLimit, tiles)
	defer clahe.Close()
	clahe.Apply(src, &dst)
	return fromMat(dst), nil
}

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

package tone

import (
	"fmt"

	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/hsi"
	"github.com/mlnoga/nightvision/internal/stats"
)

// Outcome of an AGCWHD run, with the intermediate values worth logging
type AGCWHDResult struct {
	Frame *frame.Frame

	Before *stats.Histogram // Intensity histogram of the input
	After  *stats.Histogram // Intensity histogram after gamma correction

	Limit   float64 // Clipping limit
	M       float64 // Sum of clipped counts
	WHDFSum float64
}

func (r *AGCWHDResult) String() string {
	return fmt.Sprintf("cMax %d clip limit %.4g M %g WHDF sum %.6g", r.Before.CMax, r.Limit, r.M, r.WHDFSum)
}

// Adaptive gamma correction with weighted histogram distribution.
// Remaps the intensity of the frame in HSI space; hue and saturation are kept
func AGCWHD(f *frame.Frame, levels int) (*AGCWHDResult, error) {
	img, err := hsi.ToHSI(f, levels, hsi.Normalized)
	if err != nil {
		return nil, err
	}
	defer img.Release()

	intensity := img.QuantizedIntensity()
	h, err := stats.NewHistogram(intensity, levels)
	if err != nil {
		return nil, err
	}
	limit := stats.ClippingLimit(h, levels)
	clipped, m := h.Clip(limit)
	pdf, err := stats.NewPDF(clipped, m)
	if err != nil {
		return nil, err
	}
	cdf := stats.NewCDF(pdf)
	whdf, err := stats.NewWHDF(pdf, cdf, h.CMax)
	if err != nil {
		return nil, err
	}
	gm, err := NewGammaMap(whdf, h.CMax)
	if err != nil {
		return nil, err
	}
	corrected, err := gm.Correct(intensity)
	if err != nil {
		return nil, err
	}

	remapped, err := img.WithIntensity(corrected)
	if err != nil {
		return nil, err
	}
	defer remapped.Release()
	out, err := hsi.ToBGR(remapped, levels, hsi.Normalized)
	if err != nil {
		return nil, err
	}
	out.FileName = f.FileName

	after, err := stats.NewHistogram(corrected, levels)
	if err != nil {
		return nil, err
	}
	return &AGCWHDResult{
		Frame:   out,
		Before:  h,
		After:   after,
		Limit:   limit,
		M:       m,
		WHDFSum: whdf.Sum,
	}, nil
}

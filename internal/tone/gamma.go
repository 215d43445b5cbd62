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
	"math"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/stats"
)

// Per-intensity gamma exponents for values 0..CMax
type GammaMap struct {
	Gamma []float64
	CMax  int
}

// Builds the gamma map by accumulating each intensity's share of the
// WHDF sum in ascending order. Exponents are non-increasing and lie in [0,1]
func NewGammaMap(whdf *stats.WHDF, cMax int) (*GammaMap, error) {
	if whdf.Sum <= 0 || math.IsNaN(whdf.Sum) {
		return nil, errs.Computationf("WHDF sum %g is not positive", whdf.Sum)
	}
	if cMax < 0 || cMax >= len(whdf.W) {
		return nil, errs.Computationf("cMax %d outside WHDF domain 0..%d", cMax, len(whdf.W)-1)
	}
	gamma := make([]float64, cMax+1)
	cum := 0.0
	for v := range gamma {
		cum += whdf.W[v] / whdf.Sum
		gamma[v] = math.Max(0, 1-cum)
	}
	return &GammaMap{Gamma: gamma, CMax: cMax}, nil
}

// Applies the gamma map to a channel, returning a new channel with values in [0, CMax].
// Values above CMax indicate a map built from a different channel and are an error
func (g *GammaMap) Correct(channel []uint16) ([]uint16, error) {
	res := make([]uint16, len(channel))
	if g.CMax == 0 {
		for i, v := range channel {
			if v != 0 {
				return nil, errs.Computationf("value %d at index %d above cMax 0", v, i)
			}
		}
		return res, nil
	}
	cMax := float64(g.CMax)
	for i, v := range channel {
		if int(v) > g.CMax {
			return nil, errs.Computationf("value %d at index %d above cMax %d", v, i, g.CMax)
		}
		if v == 0 {
			continue
		}
		newV := math.Round(math.Pow(float64(v)/cMax, g.Gamma[v]) * cMax)
		res[i] = uint16(math.Min(math.Max(newV, 0), cMax))
	}
	return res, nil
}

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

	"github.com/mlnoga/nightvision/internal/frame"
)

// Logarithmic compression of a channel, newV = (L-1)/ln(1+max) * ln(1 + (e^s-1)*oldV).
// An all-black channel is returned unchanged
func Logarithmic(channel []uint16, levels int, inputScale float64) []uint16 {
	res := make([]uint16, len(channel))
	_, max := frame.MinMax(channel)
	if max == 0 {
		copy(res, channel)
		return res
	}
	top := float64(levels - 1)
	scale := top / math.Log1p(float64(max))
	mult := math.Expm1(inputScale)

	// lookup table, as channels have few distinct values
	lut := make([]uint16, int(max)+1)
	for v := range lut {
		newV := math.Round(scale * math.Log1p(mult*float64(v)))
		lut[v] = uint16(math.Min(math.Max(newV, 0), top))
	}
	for i, v := range channel {
		res[i] = lut[v]
	}
	return res
}

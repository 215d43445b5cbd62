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

import "math"

// Returns minimum and maximum of a channel
func MinMax(ch []uint16) (min, max uint16) {
	if len(ch) == 0 {
		return 0, 0
	}
	min, max = ch[0], ch[0]
	for _, v := range ch[1:] {
		if v < min {
			min = v
		} else if v > max {
			max = v
		}
	}
	return min, max
}

// Linearly stretches each channel from [min,max] to the full range [0, L-1].
// Channels with min==max are copied unchanged; their indices are returned
// so the caller can warn about them.
func StretchChannels(f *Frame) (res *Frame, uniform []int) {
	res = NewFromFrame(f)
	top := float64(f.Levels - 1)
	for c := 0; c < Channels; c++ {
		src, dest := f.Channel(c), res.Channel(c)
		min, max := MinMax(src)
		if min == max {
			copy(dest, src)
			uniform = append(uniform, c)
			continue
		}
		scale := top / float64(max-min)
		for i, v := range src {
			dest[i] = uint16(math.Round(float64(v-min) * scale))
		}
	}
	return res, uniform
}

// Maps 8-bit samples to [0, L-1]
func FromByte(v uint8, levels int) uint16 {
	if levels == 256 {
		return uint16(v)
	}
	return uint16(math.Round(float64(v) * float64(levels-1) / 255))
}

// Maps samples in [0, L-1] to 8 bits
func ToByte(v uint16, levels int) uint8 {
	if levels == 256 {
		return uint8(v)
	}
	b := math.Round(float64(v) * 255 / float64(levels-1))
	if b > 255 {
		b = 255
	}
	return uint8(b)
}

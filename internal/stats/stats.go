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

package stats

import (
	"fmt"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/pool"
	"github.com/mlnoga/nightvision/internal/qsort"
)

// Number of samples drawn for the approximate median
const medianSamples = 128 * 1024

// Basic statistics on a channel
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64 // Approximate, from random subsampling on large channels
}

// Pretty print basic stats to string
func (s *Stats) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Median %.6g",
		s.Min, s.Max, s.Mean, s.StdDev, s.Median)
}

// Calculates statistics for a channel
func NewStats(channel []uint16) *Stats {
	s := &Stats{}
	if len(channel) == 0 {
		return s
	}
	min, max := frame.MinMax(channel)
	s.Min, s.Max = float64(min), float64(max)

	data := pool.Float64.Get(len(channel))
	defer pool.Float64.Put(data)
	for i, v := range channel {
		data[i] = float64(v)
	}
	s.Mean, s.StdDev = stat.PopMeanStdDev(data, nil)
	s.Median = float64(FastApproxMedian(channel, medianSamples))
	return s
}

// Calculates a fast approximate median of the channel. Channels no larger than
// numSamples are evaluated exactly, larger ones by random subsampling
func FastApproxMedian(channel []uint16, numSamples int) uint16 {
	if len(channel) <= numSamples {
		tmp := append([]uint16(nil), channel...)
		return qsort.QSelectMedian(tmp)
	}
	samples := pool.Uint16.Get(numSamples)
	defer pool.Uint16.Put(samples)
	max := uint32(len(channel))
	rng := fastrand.RNG{}
	for i := range samples {
		samples[i] = channel[rng.Uint32n(max)]
	}
	return qsort.QSelectMedian(samples)
}

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
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Dense intensity histogram over the full domain 0..L-1
type Histogram struct {
	Counts []float64 // Occurrences per intensity value, zero-filled
	Total  float64   // Sum of all counts
	CMax   int       // Largest intensity value actually observed
}

// Counts occurrences of each intensity value of a channel
func NewHistogram(channel []uint16, levels int) (*Histogram, error) {
	if levels < 2 {
		return nil, errs.Configf("levels %d below 2", levels)
	}
	h := &Histogram{Counts: make([]float64, levels)}
	for i, v := range channel {
		if int(v) >= levels {
			return nil, errs.Computationf("value %d at index %d outside histogram domain 0..%d", v, i, levels-1)
		}
		h.Counts[v]++
		if int(v) > h.CMax {
			h.CMax = int(v)
		}
	}
	h.Total = float64(len(channel))
	return h, nil
}

// Returns the clipping limit, pixel count divided by the number of levels
func ClippingLimit(h *Histogram, levels int) float64 {
	return h.Total / float64(levels)
}

// Caps each bin at floor(limit), but never below one, so that frames with
// fewer pixels than levels keep their observed values. Returns the clipped
// histogram and the sum of its counts M
func (h *Histogram) Clip(limit float64) (clipped *Histogram, m float64) {
	ceiling := math.Max(1, math.Floor(limit))
	clipped = &Histogram{Counts: make([]float64, len(h.Counts)), CMax: h.CMax}
	for v, c := range h.Counts {
		if c > ceiling {
			c = ceiling
		}
		clipped.Counts[v] = c
		m += c
	}
	clipped.Total = m
	return clipped, m
}

// Returns the location and the value of the histogram peak
func (h *Histogram) Peak() (x int, y float64) {
	x, y = -1, math.Inf(-1)
	for i, v := range h.Counts {
		if v > y {
			x, y = i, v
		}
	}
	return x, y
}

// Fits a normal distribution to the histogram with Nelder-Mead, and returns its mode and standard deviation
func (h *Histogram) FitNormal() (mode, stdDev float64, err error) {
	// Take an educated initial guess: the maximum value of the histogram,
	// with a width matching its area
	peak, peakVal := h.Peak()
	if peakVal <= 0 {
		return -1, -1, errs.Computationf("normal fit on empty histogram")
	}
	sigma0 := math.Max(1, h.Total/(peakVal*math.Sqrt(2*math.Pi)))

	x0 := []float64{h.Total, float64(peak), sigma0}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, mu, sigma := x[0], x[1], x[2]
			scaler := alpha / (sigma * math.Sqrt(2*math.Pi))
			sumSqDiff := 0.0
			for i, y := range h.Counts {
				xmusig := (float64(i) - mu) / sigma
				diff := y - scaler*math.Exp(-0.5*xmusig*xmusig)
				sumSqDiff += diff * diff
			}
			return math.Sqrt(sumSqDiff / float64(len(h.Counts)))
		},
	}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return -1, -1, errs.Computationf("normal fit: %w", err)
	}
	return result.X[1], math.Abs(result.X[2]), nil
}

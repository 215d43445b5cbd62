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

	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Probability mass per intensity value
type PDF struct {
	P    []float64
	PMax float64 // Largest mass over the full domain
	PMin float64 // Smallest mass over the full domain, zero bins included
}

// Normalizes a clipped histogram by its count sum M
func NewPDF(clipped *Histogram, m float64) (*PDF, error) {
	if m <= 0 {
		return nil, errs.Computationf("clipped histogram is empty, M=%g", m)
	}
	p := make([]float64, len(clipped.Counts))
	floats.ScaleTo(p, 1/m, clipped.Counts)
	return &PDF{P: p, PMax: floats.Max(p), PMin: floats.Min(p)}, nil
}

// Cumulative probability in ascending intensity order
type CDF struct {
	C []float64
}

func NewCDF(pdf *PDF) *CDF {
	return &CDF{C: floats.CumSum(make([]float64, len(pdf.P)), pdf.P)}
}

// Weighted histogram distribution. Sum covers intensities 0..cMax inclusive
type WHDF struct {
	W   []float64
	Sum float64
}

// Computes pmax * ((pdf-pmin)/(pmax-pmin))^cdf per intensity. A flat PDF
// weighs every intensity with pmax. Empty bins below the first observed
// value also weigh pmax, as 0^0 is 1
func NewWHDF(pdf *PDF, cdf *CDF, cMax int) (*WHDF, error) {
	if cMax < 0 || cMax >= len(pdf.P) {
		return nil, errs.Computationf("cMax %d outside domain 0..%d", cMax, len(pdf.P)-1)
	}
	spread := pdf.PMax - pdf.PMin
	w := make([]float64, len(pdf.P))
	for v, p := range pdf.P {
		norm := 1.0
		if spread > 0 {
			norm = (p - pdf.PMin) / spread
		}
		w[v] = pdf.PMax * math.Pow(norm, cdf.C[v])
	}
	return &WHDF{W: w, Sum: floats.Sum(w[:cMax+1])}, nil
}

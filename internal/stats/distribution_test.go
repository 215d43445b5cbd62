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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Runs histogram, clip, PDF, CDF and WHDF on a channel
func distributions(t *testing.T, ch []uint16, levels int) (*Histogram, *PDF, *CDF, *WHDF) {
	t.Helper()
	h, err := NewHistogram(ch, levels)
	require.NoError(t, err)
	clipped, m := h.Clip(ClippingLimit(h, levels))
	pdf, err := NewPDF(clipped, m)
	require.NoError(t, err)
	cdf := NewCDF(pdf)
	whdf, err := NewWHDF(pdf, cdf, h.CMax)
	require.NoError(t, err)
	return h, pdf, cdf, whdf
}

func TestDistributionInvariants(t *testing.T) {
	for _, levels := range []int{16, 256, 4096} {
		ch := randomChannel(20000, levels, uint32(levels-1)/2)
		h, pdf, cdf, whdf := distributions(t, ch, levels)

		assert.InDelta(t, 1.0, floats.Sum(pdf.P), 1e-9, "L=%d", levels)
		assert.Equal(t, floats.Max(pdf.P), pdf.PMax)
		assert.Equal(t, floats.Min(pdf.P), pdf.PMin)
		for v := 1; v < levels; v++ {
			assert.GreaterOrEqual(t, cdf.C[v], cdf.C[v-1], "L=%d v=%d", levels, v)
		}
		assert.InDelta(t, 1.0, cdf.C[h.CMax], 1e-9, "L=%d", levels)
		assert.InDelta(t, floats.Sum(whdf.W[:h.CMax+1]), whdf.Sum, 1e-12)
		for _, w := range whdf.W {
			assert.True(t, w >= 0 && w <= pdf.PMax)
		}
	}
}

func TestUniformFrameDistribution(t *testing.T) {
	_, pdf, cdf, whdf := distributions(t, channelOf(map[uint16]int{128: 10000}), 256)
	assert.Equal(t, 1.0, pdf.P[128])
	assert.Equal(t, 1.0, pdf.PMax)
	assert.Equal(t, 0.0, pdf.PMin)
	assert.Equal(t, 1.0, cdf.C[128])
	assert.Equal(t, 0.0, cdf.C[127])
	// 128 empty bins below weigh pmax each, plus the bin itself
	assert.Equal(t, 129.0, whdf.Sum)
	assert.Equal(t, 0.0, whdf.W[129])
}

func TestTwoValueDistribution(t *testing.T) {
	_, pdf, cdf, whdf := distributions(t, channelOf(map[uint16]int{0: 768, 255: 256}), 256)
	assert.Equal(t, 0.5, pdf.P[0])
	assert.Equal(t, 0.5, pdf.P[255])
	assert.Equal(t, 0.5, pdf.PMax)
	assert.Equal(t, 0.0, pdf.PMin)
	assert.Equal(t, 0.5, cdf.C[0])
	assert.Equal(t, 0.5, cdf.C[254])
	assert.Equal(t, 1.0, cdf.C[255])
	assert.Equal(t, 0.5, whdf.W[0])
	assert.Equal(t, 0.0, whdf.W[100])
	assert.Equal(t, 0.5, whdf.W[255])
	assert.Equal(t, 1.0, whdf.Sum)
}

func TestFlatPDF(t *testing.T) {
	ch := make([]uint16, 0, 4*256)
	for i := 0; i < 4; i++ {
		for v := 0; v < 256; v++ {
			ch = append(ch, uint16(v))
		}
	}
	_, pdf, _, whdf := distributions(t, ch, 256)
	assert.Equal(t, pdf.PMax, pdf.PMin)
	for _, w := range whdf.W {
		assert.Equal(t, pdf.PMax, w)
	}
	assert.InDelta(t, 1.0, whdf.Sum, 1e-12)
}

func TestEmptyClippedHistogram(t *testing.T) {
	_, err := NewPDF(&Histogram{Counts: make([]float64, 256)}, 0)
	assert.ErrorIs(t, err, errs.ErrComputation)
}

func TestWHDFRejectsBadCMax(t *testing.T) {
	pdf := &PDF{P: make([]float64, 4)}
	_, err := NewWHDF(pdf, NewCDF(pdf), 4)
	assert.ErrorIs(t, err, errs.ErrComputation)
}

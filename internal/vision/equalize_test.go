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

package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/nightvision/internal/errs"
)

func lowContrast(n int) []uint16 {
	rng := fastrand.RNG{}
	ch := make([]uint16, n)
	for i := range ch {
		ch[i] = uint16(100 + rng.Uint32n(10))
	}
	return ch
}

func stdDev(ch []uint16) float64 {
	data := make([]float64, len(ch))
	for i, v := range ch {
		data[i] = float64(v)
	}
	_, s := stat.PopMeanStdDev(data, nil)
	return s
}

func TestGlobalTwoValues(t *testing.T) {
	ch := []uint16{10, 10, 10, 20}
	res, err := Native{}.Global(ch, 2, 2, 256)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 0, 0, 255}, res)
	assert.Equal(t, []uint16{10, 10, 10, 20}, ch, "input must not change")
}

func TestGlobalUniform(t *testing.T) {
	ch := []uint16{42, 42, 42, 42, 42, 42}
	res, err := Native{}.Global(ch, 3, 2, 256)
	require.NoError(t, err)
	assert.Equal(t, ch, res)
}

func TestGlobalSpreadsContrast(t *testing.T) {
	ch := lowContrast(64 * 64)
	res, err := Native{}.Global(ch, 64, 64, 1024)
	require.NoError(t, err)
	lo, hi := res[0], res[0]
	for i, v := range res {
		lo, hi = min(lo, v), max(hi, v)
		for j := range ch[:50] {
			if ch[i] < ch[j] {
				assert.LessOrEqual(t, v, res[j])
			}
		}
	}
	assert.Equal(t, uint16(0), lo)
	assert.Equal(t, uint16(1023), hi)
}

func TestLocalSingleTileIsMonotone(t *testing.T) {
	// 31x17 pixels keep the LUT values off exact halves
	ch := lowContrast(31 * 17)
	res, err := Native{}.Local(ch, 31, 17, 256, 40, image.Point{1, 1})
	require.NoError(t, err)
	mapped := map[uint16]uint16{}
	for i, v := range ch {
		if prev, ok := mapped[v]; ok {
			assert.Equal(t, prev, res[i], "value %d", v)
		}
		mapped[v] = res[i]
	}
	for v := uint16(101); v < 110; v++ {
		assert.GreaterOrEqual(t, mapped[v], mapped[v-1])
	}
}

func TestLocalIncreasesContrast(t *testing.T) {
	ch := lowContrast(128 * 96)
	for _, clip := range []float64{0, 2, 40} {
		res, err := Native{}.Local(ch, 128, 96, 256, clip, image.Point{8, 8})
		require.NoError(t, err)
		assert.Greater(t, stdDev(res), stdDev(ch), "clip %g", clip)
		for _, v := range res {
			assert.Less(t, int(v), 256)
		}
	}
}

func TestLocalTinyImage(t *testing.T) {
	res, err := Native{}.Local([]uint16{1, 200, 3}, 3, 1, 256, 40, image.Point{8, 8})
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestEqualizerErrors(t *testing.T) {
	_, err := Native{}.Global([]uint16{1, 2, 3}, 2, 2, 256)
	assert.ErrorIs(t, err, errs.ErrInput)
	_, err = Native{}.Global([]uint16{1, 2, 3, 300}, 2, 2, 256)
	assert.ErrorIs(t, err, errs.ErrInput)
	_, err = Native{}.Local([]uint16{1, 2, 3, 4}, 2, 2, 256, 40, image.Point{0, 8})
	assert.ErrorIs(t, err, errs.ErrConfig)
	_, err = Native{}.Local([]uint16{1, 2, 3, 4}, 2, 2, 256, -1, image.Point{8, 8})
	assert.ErrorIs(t, err, errs.ErrConfig)
}

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

package hsi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
)

func newFrame(t *testing.T, width, height, levels int, bgr ...uint16) *frame.Frame {
	t.Helper()
	f, err := frame.New(width, height, levels)
	require.NoError(t, err)
	for p := 0; p < f.Pixels && 3*p+2 < len(bgr); p++ {
		f.Channel(frame.Blue)[p] = bgr[3*p]
		f.Channel(frame.Green)[p] = bgr[3*p+1]
		f.Channel(frame.Red)[p] = bgr[3*p+2]
	}
	return f
}

func assertWithinOne(t *testing.T, want, got *frame.Frame) {
	t.Helper()
	require.Equal(t, len(want.Data), len(got.Data))
	for i := range want.Data {
		diff := int(want.Data[i]) - int(got.Data[i])
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d=%d; want %d±1", i, got.Data[i], want.Data[i])
			return
		}
	}
}

func TestPrimaries(t *testing.T) {
	tcs := []struct {
		name    string
		b, g, r uint16
		i, s, h float64
	}{
		{"red", 0, 0, 255, 1.0 / 3, 1, 0},
		{"green", 0, 255, 0, 1.0 / 3, 1, 1.0 / 3},
		{"blue", 255, 0, 0, 1.0 / 3, 1, 2.0 / 3},
		{"white", 255, 255, 255, 1, 0, 0},
		{"gray", 128, 128, 128, 128.0 / 255, 0, 0},
	}
	for _, tc := range tcs {
		img, err := ToHSI(newFrame(t, 1, 1, 256, tc.b, tc.g, tc.r), 256, Normalized)
		require.NoError(t, err)
		assert.InDelta(t, tc.i, img.Plane(I)[0], 1e-6, tc.name)
		assert.InDelta(t, tc.s, img.Plane(S)[0], 1e-5, tc.name)
		assert.InDelta(t, tc.h, img.Plane(H)[0], 1e-9, tc.name)
		img.Release()
	}
}

func TestHueOfFaintColors(t *testing.T) {
	tcs := []struct {
		name    string
		b, g, r uint16
		h       float64
	}{
		{"faint red", 0, 0, 1, 0},
		{"faint green", 0, 1, 0, 1.0 / 3},
		{"faint blue", 1, 0, 0, 2.0 / 3},
		{"gray", 1, 1, 1, 0},
	}
	for _, tc := range tcs {
		img, err := ToHSI(newFrame(t, 1, 1, 65536, tc.b, tc.g, tc.r), 65536, Normalized)
		require.NoError(t, err)
		assert.InDelta(t, tc.h, img.Plane(H)[0], 1e-9, tc.name)
		img.Release()
	}
}

func TestBlackFrame(t *testing.T) {
	f := newFrame(t, 4, 4, 256)
	img, err := ToHSI(f, 256, Normalized)
	require.NoError(t, err)
	for p := 0; p < img.Pixels; p++ {
		assert.Equal(t, 0.0, img.Plane(I)[p])
		assert.InDelta(t, 1.0, img.Plane(S)[p], 1e-12)
		assert.False(t, math.IsNaN(img.Plane(H)[p]))
	}
	back, err := ToBGR(img, 256, Normalized)
	require.NoError(t, err)
	assert.Equal(t, f.Data, back.Data)
}

func TestRoundTripNormalized(t *testing.T) {
	rng := fastrand.RNG{}
	for _, levels := range []int{256, 1024, 65536} {
		f, err := frame.New(64, 48, levels)
		require.NoError(t, err)
		for i := range f.Data {
			f.Data[i] = uint16(rng.Uint32n(uint32(levels)))
		}
		img, err := ToHSI(f, levels, Normalized)
		require.NoError(t, err)
		for _, v := range img.Data {
			require.False(t, math.IsNaN(v))
			require.True(t, v >= 0 && v <= 1, "component %f outside [0,1]", v)
		}
		back, err := ToBGR(img, levels, Normalized)
		require.NoError(t, err)
		assertWithinOne(t, f, back)
		img.Release()
	}
}

func TestRoundTripDiscreteAchromatic(t *testing.T) {
	f := newFrame(t, 4, 1, 256, 0, 0, 0, 17, 17, 17, 128, 128, 128, 255, 255, 255)
	img, err := ToHSI(f, 256, Discrete)
	require.NoError(t, err)
	for _, v := range img.Data {
		assert.Equal(t, math.Round(v), v)
		assert.True(t, v >= 0 && v <= 255)
	}
	back, err := ToBGR(img, 256, Discrete)
	require.NoError(t, err)
	assertWithinOne(t, f, back)
}

func TestUnknownEncoding(t *testing.T) {
	f := newFrame(t, 1, 1, 256)
	_, err := ToHSI(f, 256, Encoding(7))
	assert.ErrorIs(t, err, errs.ErrConfig)

	img, err := ToHSI(f, 256, Normalized)
	require.NoError(t, err)
	_, err = ToBGR(img, 256, Encoding(7))
	assert.ErrorIs(t, err, errs.ErrConfig)
	_, err = ToBGR(img, 256, Discrete)
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestOutOfRangeSample(t *testing.T) {
	f := newFrame(t, 1, 1, 256, 0, 300, 0)
	_, err := ToHSI(f, 256, Normalized)
	assert.ErrorIs(t, err, errs.ErrInput)
}

func TestIntensityRoundTrip(t *testing.T) {
	f := newFrame(t, 2, 1, 256, 10, 20, 30, 200, 100, 50)
	img, err := ToHSI(f, 256, Normalized)
	require.NoError(t, err)
	q := img.QuantizedIntensity()
	assert.Equal(t, []uint16{20, 117}, q)

	same, err := img.WithIntensity(q)
	require.NoError(t, err)
	assert.Equal(t, img.Plane(S), same.Plane(S))
	assert.Equal(t, img.Plane(H), same.Plane(H))
	back, err := ToBGR(same, 256, Normalized)
	require.NoError(t, err)
	assertWithinOne(t, f, back)

	_, err = img.WithIntensity(q[:1])
	assert.ErrorIs(t, err, errs.ErrComputation)
}

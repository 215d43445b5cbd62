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

//go:build gocv

package video

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/nightvision/internal/enhance"
	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
)

func TestMP4RoundTrip(t *testing.T) {
	dir := t.TempDir()
	inFile := filepath.Join(dir, "raw", "night.mp4")
	var in []*frame.Frame
	for i := 0; i < 5; i++ {
		in = append(in, grayFrame(t, 64, 48, i))
	}
	writeVideo(t, inFile, in, Header{Width: 64, Height: 48, FPSNum: 24, FPSDen: 1})

	h, frames := readAll(t, inFile)
	assert.Equal(t, Header{Width: 64, Height: 48, FPSNum: 24, FPSDen: 1}, h)
	require.Len(t, frames, 5)

	p := enhance.DefaultParams()
	p.MaxWidth, p.MaxHeight = 32, 32
	e, err := enhance.NewEnhancer(p)
	require.NoError(t, err)
	outFile := filepath.Join(dir, "mod", "night.mp4")
	sum, err := ProcessFile(context.Background(), inFile, outFile, e, testContext(2))
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Frames)

	h, frames = readAll(t, outFile)
	assert.Equal(t, 32, h.Width)
	assert.Equal(t, 24, h.Height)
	assert.Len(t, frames, 5)
}

func TestCreateWriterFailsUpFront(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateWriter(filepath.Join(dir, "out.mp4"), Header{FPSNum: 25, FPSDen: 1})
	assert.ErrorIs(t, err, errs.ErrIO)
	_, err = CreateWriter(filepath.Join(dir, "missing", "out.mp4"), Header{Width: 32, Height: 24, FPSNum: 25, FPSDen: 1})
	assert.ErrorIs(t, err, errs.ErrIO)

	w, err := CreateWriter(filepath.Join(dir, "out.mp4"), Header{Width: 32, Height: 24, FPSNum: 25, FPSDen: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, w.Write(grayFrame(t, 16, 16, 0)), errs.ErrIO)
	assert.NoError(t, w.Close())
}

func TestFPSToRatio(t *testing.T) {
	tcs := []struct {
		fps      float64
		num, den int
	}{
		{25, 25, 1},
		{29.97, 30000, 1001},
		{0, 25, 1},
	}
	for _, tc := range tcs {
		num, den := fpsToRatio(tc.fps)
		assert.Equal(t, tc.num, num, "fps %g", tc.fps)
		assert.Equal(t, tc.den, den, "fps %g", tc.fps)
	}
}

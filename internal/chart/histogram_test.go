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

package chart

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/nightvision/internal/stats"
)

func sampleHistogram(t *testing.T) *stats.Histogram {
	t.Helper()
	ch := make([]uint16, 0, 1000)
	for i := 0; i < 1000; i++ {
		ch = append(ch, uint16(i%97))
	}
	h, err := stats.NewHistogram(ch, 256)
	require.NoError(t, err)
	return h
}

func TestWriteHistogramPNG(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "charts", "frame_hist_before.png")
	require.NoError(t, WriteHistogramPNG(fileName, sampleHistogram(t), "before"))

	file, err := os.Open(fileName)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
}

func TestWriteHistogramEmpty(t *testing.T) {
	var buf bytes.Buffer
	h := &stats.Histogram{Counts: make([]float64, 16)}
	require.NoError(t, WriteHistogram(&buf, h, "empty"))
	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

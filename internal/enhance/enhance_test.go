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

package enhance

import (
	"encoding/json"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/logging"
	"github.com/mlnoga/nightvision/internal/ops"
	"github.com/mlnoga/nightvision/internal/tone"
	"github.com/mlnoga/nightvision/internal/vision"
)

func testContext() *ops.Context {
	return ops.NewContext(logging.New(io.Discard, true), 2)
}

func uniformFrame(t *testing.T, w, h int, v uint16) *frame.Frame {
	t.Helper()
	f, err := frame.New(w, h, 256)
	require.NoError(t, err)
	for i := range f.Data {
		f.Data[i] = v
	}
	return f
}

// Random 8-bit frame where every channel spans the full range, so stretching is the identity
func fullRangeFrame(t *testing.T, w, h int) *frame.Frame {
	t.Helper()
	f, err := frame.New(w, h, 256)
	require.NoError(t, err)
	rng := fastrand.RNG{}
	for c := 0; c < frame.Channels; c++ {
		ch := f.Channel(c)
		for i := range ch {
			ch[i] = uint16(rng.Uint32n(256))
		}
		ch[0], ch[len(ch)-1] = 0, 255
	}
	return f
}

func newTestEnhancer(t *testing.T, transform string, mod func(p *Params)) *Enhancer {
	t.Helper()
	p := DefaultParams()
	p.Transform = transform
	if mod != nil {
		mod(&p)
	}
	e, err := NewEnhancer(p)
	require.NoError(t, err)
	e.Equalizer = vision.Native{}
	return e
}

func TestUniformFrameUnchanged(t *testing.T) {
	for _, v := range []uint16{0, 128} {
		in := uniformFrame(t, 100, 100, v)
		out, err := newTestEnhancer(t, "AGCWHD", nil).Enhance(in, testContext())
		require.NoError(t, err)
		assert.Equal(t, in.Data, out.Data, "value %d", v)
		assert.Equal(t, 100, out.Width)
		assert.Equal(t, 100, out.Height)
	}
}

func TestEnhanceKeepsInput(t *testing.T) {
	in := fullRangeFrame(t, 40, 30)
	orig := in.Clone()
	for _, name := range TransformNames {
		out, err := newTestEnhancer(t, name, nil).Enhance(in, testContext())
		require.NoError(t, err, name)
		assert.Equal(t, orig.Data, in.Data, name)
		assert.Equal(t, len(in.Data), len(out.Data), name)
		assert.NoError(t, out.Validate(), name)
	}
}

func TestLogTransform(t *testing.T) {
	in := fullRangeFrame(t, 64, 48)
	out, err := newTestEnhancer(t, "log", func(p *Params) { p.InputScale = 0.2 }).Enhance(in, testContext())
	require.NoError(t, err)
	for c := 0; c < frame.Channels; c++ {
		assert.Equal(t, tone.Logarithmic(in.Channel(c), 256, 0.2), out.Channel(c))
	}
}

func TestEqualizeTransforms(t *testing.T) {
	in := fullRangeFrame(t, 64, 48)

	out, err := newTestEnhancer(t, "globHE", nil).Enhance(in, testContext())
	require.NoError(t, err)
	for c := 0; c < frame.Channels; c++ {
		expected, err := vision.Native{}.Global(in.Channel(c), in.Width, in.Height, 256)
		require.NoError(t, err)
		assert.Equal(t, expected, out.Channel(c))
	}

	tiles := image.Point{X: 4, Y: 2}
	out, err = newTestEnhancer(t, "locHE", func(p *Params) {
		p.ClipLimit = 3
		p.TileGridSize = tiles
	}).Enhance(in, testContext())
	require.NoError(t, err)
	for c := 0; c < frame.Channels; c++ {
		expected, err := vision.Native{}.Local(in.Channel(c), in.Width, in.Height, 256, 3, tiles)
		require.NoError(t, err)
		assert.Equal(t, expected, out.Channel(c))
	}
}

func TestFitToWindow(t *testing.T) {
	in := fullRangeFrame(t, 200, 100)
	in.ID = 3
	out, err := newTestEnhancer(t, "globHE", func(p *Params) {
		p.MaxWidth, p.MaxHeight = 100, 100
	}).Enhance(in, testContext())
	require.NoError(t, err)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
	assert.Equal(t, 3, out.ID)
}

func TestHistogramCharts(t *testing.T) {
	dir := t.TempDir()
	in := fullRangeFrame(t, 32, 32)
	in.FileName = filepath.Join("dark", "night.jpg")
	_, err := newTestEnhancer(t, "AGCWHD", func(p *Params) { p.HistDir = dir }).Enhance(in, testContext())
	require.NoError(t, err)
	for _, name := range []string{"night_hist_before.png", "night_hist_after.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, "frame00007", chartBaseName(&frame.Frame{ID: 7}))
}

func TestEnhanceErrors(t *testing.T) {
	c := testContext()

	_, err := NewEnhancer(Params{Levels: 256, Transform: "sharpen", InputScale: 1, ClipLimit: 1, TileGridSize: image.Point{X: 1, Y: 1}})
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = (&Enhancer{Params: DefaultParams()}).Enhance(uniformFrame(t, 4, 4, 1), c)
	assert.ErrorIs(t, err, errs.ErrConfig)

	e := newTestEnhancer(t, "AGCWHD", func(p *Params) { p.Levels = 1024 })
	_, err = e.Enhance(uniformFrame(t, 4, 4, 1), c)
	assert.ErrorIs(t, err, errs.ErrConfig)

	bad := uniformFrame(t, 4, 4, 1)
	bad.Data[5] = 300
	_, err = newTestEnhancer(t, "log", nil).Enhance(bad, c)
	assert.ErrorIs(t, err, errs.ErrInput)
}

func TestParseTransform(t *testing.T) {
	p := DefaultParams()
	tcs := []struct {
		name string
		want Transform
	}{
		{"log", Log{InputScale: 0.2}},
		{"locHE", LocalHE{ClipLimit: 40, TileGridSize: image.Point{X: 8, Y: 8}}},
		{"globHE", GlobalHE{}},
		{"AGCWHD", AGCWHD{}},
	}
	for _, tc := range tcs {
		got, err := ParseTransform(tc.name, &p)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
	for _, name := range []string{"unsharp", "agcwhd", "LOCHE", " AGCWHD ", "Log", ""} {
		_, err := ParseTransform(name, &p)
		assert.ErrorIs(t, err, errs.ErrConfig, name)
	}
}

func TestValidate(t *testing.T) {
	def := DefaultParams()
	assert.NoError(t, def.Validate())

	tcs := []struct {
		name string
		mod  func(p *Params)
	}{
		{"levels", func(p *Params) { p.Levels = 1 }},
		{"transform", func(p *Params) { p.Transform = "" }},
		{"inputScale", func(p *Params) { p.InputScale = 0 }},
		{"clipLimit", func(p *Params) { p.ClipLimit = -1 }},
		{"tiles", func(p *Params) { p.TileGridSize = image.Point{X: 0, Y: 8} }},
		{"window", func(p *Params) { p.MaxHeight = -1 }},
	}
	for _, tc := range tcs {
		p := DefaultParams()
		tc.mod(&p)
		assert.ErrorIs(t, p.Validate(), errs.ErrConfig, tc.name)
	}
}

func TestLoadParams(t *testing.T) {
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "night.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("transform: log\ninputScale: 0.5\ntileGridSize:\n  x: 4\n  y: 2\n"), 0o644))
	p, err := LoadParams(yamlFile)
	require.NoError(t, err)
	assert.Equal(t, "log", p.Transform)
	assert.Equal(t, 0.5, p.InputScale)
	assert.Equal(t, image.Point{X: 4, Y: 2}, p.TileGridSize)
	assert.Equal(t, 256, p.Levels)
	assert.Equal(t, 720, p.MaxHeight)

	jsonFile := filepath.Join(dir, "night.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"transform":"globHE","maxWidth":640}`), 0o644))
	p, err = LoadParams(jsonFile)
	require.NoError(t, err)
	assert.Equal(t, "globHE", p.Transform)
	assert.Equal(t, 640, p.MaxWidth)
	assert.Equal(t, 720, p.MaxHeight)
	assert.Equal(t, 40.0, p.ClipLimit)

	badFile := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(badFile, []byte("transfrom: log\n"), 0o644))
	_, err = LoadParams(badFile)
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = LoadParams(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestOpEnhanceFromJSON(t *testing.T) {
	op, err := ops.UnmarshalOperator([]byte(`{"type":"enhance","params":{"transform":"log"}}`))
	require.NoError(t, err)
	enh, ok := op.(*OpEnhance)
	require.True(t, ok)
	assert.True(t, enh.Active)
	assert.Equal(t, "log", enh.Params.Transform)
	assert.Equal(t, 0.2, enh.Params.InputScale)

	encoded, err := json.Marshal(enh)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"transform":"log"`)
}

func TestOpEnhancePromises(t *testing.T) {
	c := testContext()
	in := fullRangeFrame(t, 16, 16)
	promise := func() (*frame.Frame, error) { return in, nil }

	p := DefaultParams()
	p.Transform = "unsharp"
	_, err := NewOpEnhance(p).MakePromises([]ops.Promise{promise}, c)
	assert.ErrorIs(t, err, errs.ErrConfig)

	p.Transform = "log"
	outs, err := NewOpEnhance(p).MakePromises([]ops.Promise{promise, promise}, c)
	require.NoError(t, err)
	frames, err := ops.MaterializeAll(outs, c.MaxThreads, false)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, tone.Logarithmic(in.Channel(frame.Red), 256, 0.2), frames[1].Channel(frame.Red))
}

func TestOpEnhanceSandboxedHistDir(t *testing.T) {
	c := testContext()
	c.Sandboxed = true
	in := fullRangeFrame(t, 16, 16)
	promise := func() (*frame.Frame, error) { return in, nil }

	tcs := []struct {
		histDir string
		ok      bool
	}{
		{"", true},
		{"charts", true},
		{filepath.Join(t.TempDir(), "charts"), false},
		{"../charts", false},
	}
	for _, tc := range tcs {
		p := DefaultParams()
		p.HistDir = tc.histDir
		_, err := NewOpEnhance(p).MakePromises([]ops.Promise{promise}, c)
		if tc.ok {
			assert.NoError(t, err, tc.histDir)
		} else {
			assert.ErrorIs(t, err, errs.ErrIO, tc.histDir)
		}
	}
}

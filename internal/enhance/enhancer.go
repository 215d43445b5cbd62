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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mlnoga/nightvision/internal/chart"
	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/ops"
	"github.com/mlnoga/nightvision/internal/stats"
	"github.com/mlnoga/nightvision/internal/tone"
	"github.com/mlnoga/nightvision/internal/vision"
)

var channelNames = [frame.Channels]string{"blue", "green", "red"}

// Enhances frames with a fixed set of parameters. Safe for concurrent use
type Enhancer struct {
	Params    Params
	Transform Transform
	Equalizer vision.Equalizer
}

// Validates the parameters and resolves the transform
func NewEnhancer(p Params) (*Enhancer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t, err := ParseTransform(p.Transform, &p)
	if err != nil {
		return nil, err
	}
	return &Enhancer{Params: p, Transform: t, Equalizer: vision.Default}, nil
}

// Returns the size of enhanced frames for width x height inputs
func (e *Enhancer) OutputSize(width, height int) (int, int) {
	return frame.FitDimensions(width, height, e.Params.MaxWidth, e.Params.MaxHeight)
}

// Fits the frame to the window, stretches each channel to the full range and
// applies the transform. Returns a new frame; the input is left untouched
func (e *Enhancer) Enhance(f *frame.Frame, c *ops.Context) (*frame.Frame, error) {
	if e.Transform == nil {
		return nil, errs.Configf("%d: no transform configured", f.ID)
	}
	if f.Levels != e.Params.Levels {
		return nil, errs.Configf("%d: frame has %d levels, expecting %d", f.ID, f.Levels, e.Params.Levels)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	fitted := frame.FitToWindow(f, e.Params.MaxWidth, e.Params.MaxHeight)
	if fitted != f {
		c.Log.Debugf("%d: Resized from %dx%d to %dx%d", f.ID, f.Width, f.Height, fitted.Width, fitted.Height)
	}
	stretched, uniform := frame.StretchChannels(fitted)
	for _, ch := range uniform {
		c.Log.Warnf("%d: Uniform %s channel, leaving it unchanged", f.ID, channelNames[ch])
	}

	var out *frame.Frame
	var err error
	switch t := e.Transform.(type) {
	case Log:
		out = frame.NewFromFrame(stretched)
		for ch := 0; ch < frame.Channels; ch++ {
			copy(out.Channel(ch), tone.Logarithmic(stretched.Channel(ch), stretched.Levels, t.InputScale))
		}
	case LocalHE:
		out, err = e.perChannel(stretched, func(ch []uint16) ([]uint16, error) {
			return e.equalizer().Local(ch, stretched.Width, stretched.Height, stretched.Levels, t.ClipLimit, t.TileGridSize)
		})
	case GlobalHE:
		out, err = e.perChannel(stretched, func(ch []uint16) ([]uint16, error) {
			return e.equalizer().Global(ch, stretched.Width, stretched.Height, stretched.Levels)
		})
	case AGCWHD:
		out, err = e.agcwhd(stretched, c)
	default:
		return nil, errs.Configf("%d: unsupported transform %v", f.ID, t)
	}
	if err != nil {
		return nil, err
	}
	out.ID, out.FileName = f.ID, f.FileName
	c.Log.Debugf("%d: Applied %v to %s pixels in %v", f.ID, e.Transform, out.DimensionsToString(), time.Since(start))
	return out, nil
}

func (e *Enhancer) equalizer() vision.Equalizer {
	if e.Equalizer == nil {
		return vision.Default
	}
	return e.Equalizer
}

func (e *Enhancer) perChannel(f *frame.Frame, apply func(ch []uint16) ([]uint16, error)) (*frame.Frame, error) {
	out := frame.NewFromFrame(f)
	for ch := 0; ch < frame.Channels; ch++ {
		res, err := apply(f.Channel(ch))
		if err != nil {
			return nil, fmt.Errorf("%d: %s channel: %w", f.ID, channelNames[ch], err)
		}
		copy(out.Channel(ch), res)
	}
	return out, nil
}

func (e *Enhancer) agcwhd(f *frame.Frame, c *ops.Context) (*frame.Frame, error) {
	res, err := tone.AGCWHD(f, f.Levels)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	c.Log.Debugf("%d: AGCWHD %v", f.ID, res)

	if e.Params.HistDir != "" {
		base := filepath.Join(e.Params.HistDir, chartBaseName(f))
		charts := []struct {
			suffix, title string
			hist          *stats.Histogram
		}{
			{"_hist_before.png", "intensity before", res.Before},
			{"_hist_after.png", "intensity after", res.After},
		}
		for _, ch := range charts {
			fileName := base + ch.suffix
			if err := chart.WriteHistogramPNG(fileName, ch.hist, ch.title); err != nil {
				return nil, err
			}
			c.Log.Debugf("%d: Wrote histogram chart %s", f.ID, fileName)
		}
	}
	return res.Frame, nil
}

// Chart file name stem: the input base name without extension, or the frame ID
func chartBaseName(f *frame.Frame) string {
	if f.FileName == "" {
		return fmt.Sprintf("frame%05d", f.ID)
	}
	base := filepath.Base(f.FileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

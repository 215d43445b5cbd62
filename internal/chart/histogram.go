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
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/stats"
)

const (
	Width  = 640
	Height = 400

	margin   = 40
	fontSize = 12
)

var (
	fontOnce sync.Once
	fontTT   *truetype.Font
	fontErr  error
)

// Shared parsed copy of the Go regular font. Faces are not safe for
// concurrent use, so each chart gets its own
func newFace() (font.Face, error) {
	fontOnce.Do(func() {
		fontTT, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(fontTT, &truetype.Options{Size: fontSize}), nil
}

// Renders a bar chart of the histogram counts with axis labels
func Render(h *stats.Histogram, title string) (image.Image, error) {
	face, err := newFace()
	if err != nil {
		return nil, errs.Computationf("cannot load chart font: %w", err)
	}
	dc := gg.NewContext(Width, Height)
	dc.SetFontFace(face)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	peakX, peak := h.Peak()
	plotW, plotH := float64(Width-2*margin), float64(Height-2*margin)
	levels := len(h.Counts)
	barW := plotW / float64(levels)
	if peak > 0 {
		for v, c := range h.Counts {
			if c == 0 {
				continue
			}
			frac := float64(v) / float64(levels-1)
			barH := c / peak * plotH
			dc.SetColor(colorful.Hsv(220, 0.6, 0.25+0.75*frac))
			dc.DrawRectangle(margin+float64(v)*barW, margin+plotH-barH, maxf(barW, 1), barH)
			dc.Fill()
		}
	}

	// axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin+plotH, margin+plotW, margin+plotH)
	dc.DrawLine(margin, margin, margin, margin+plotH)
	dc.Stroke()

	dc.DrawStringAnchored(title, Width/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored("0", margin, margin+plotH+fontSize, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", levels-1), margin+plotW, margin+plotH+fontSize, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("pixels %g  cMax %d  peak %g at %d", h.Total, h.CMax, peak, peakX),
		Width/2, Height-margin/3, 0.5, 0.5)
	return dc.Image(), nil
}

// Renders the histogram and writes it as PNG
func WriteHistogram(w io.Writer, h *stats.Histogram, title string) error {
	img, err := Render(h, title)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}

// Renders the histogram into a PNG file, creating missing directories
func WriteHistogramPNG(fileName string, h *stats.Histogram, title string) error {
	img, err := Render(h, title)
	if err != nil {
		return err
	}
	if err := frame.EnsureDir(fileName); err != nil {
		return err
	}
	if err := gg.SavePNG(fileName, img); err != nil {
		return errs.IOf("cannot write chart %s: %w", fileName, err)
	}
	return nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

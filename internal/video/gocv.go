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
	"io"
	"math"

	"gocv.io/x/gocv"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
)

// Container formats decoded and encoded through OpenCV
var openCVExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".m4v"}

func init() {
	for _, ext := range openCVExtensions {
		sourceOpeners[ext] = OpenCapture
		sinkCreators[ext] = CreateWriter
	}
}

type capture struct {
	vc     *gocv.VideoCapture
	header Header
	levels int
	nextID int
	mat    gocv.Mat
}

// Opens a video file through OpenCV
func OpenCapture(fileName string, levels int) (Source, error) {
	vc, err := gocv.VideoCaptureFile(fileName)
	if err != nil {
		return nil, errs.Inputf("video file %s could not be opened: %w", fileName, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errs.Inputf("video file %s could not be opened", fileName)
	}
	num, den := fpsToRatio(vc.Get(gocv.VideoCaptureFPS))
	return &capture{
		vc: vc,
		header: Header{
			Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FPSNum: num,
			FPSDen: den,
		},
		levels: levels,
		mat:    gocv.NewMat(),
	}, nil
}

// Approximates a frame rate with a ratio over 1000, e.g. 29.97 as 30000:1001
func fpsToRatio(fps float64) (num, den int) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 25, 1
	}
	if r := math.Round(fps); math.Abs(fps-r) < 1e-3 {
		return int(r), 1
	}
	return int(math.Round(fps * 1001)), 1001
}

func (c *capture) Header() Header { return c.header }

func (c *capture) Read() (*frame.Frame, error) {
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, io.EOF
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, errs.Inputf("frame %d: %w", c.nextID, err)
	}
	f, err := frame.FromImage(img, c.levels)
	if err != nil {
		return nil, err
	}
	f.ID = c.nextID
	c.nextID++
	return f, nil
}

func (c *capture) Close() error {
	c.mat.Close()
	return c.vc.Close()
}

// Encodes mp4v through OpenCV
type writer struct {
	header Header
	vw     *gocv.VideoWriter
}

// Opens an mp4v writer for frames of the size and rate of h
func CreateWriter(fileName string, h Header) (Sink, error) {
	if h.Width <= 0 || h.Height <= 0 {
		return nil, errs.IOf("video writer %s needs a frame size, got %dx%d", fileName, h.Width, h.Height)
	}
	fps := h.FPS()
	if fps <= 0 {
		fps = 25
	}
	vw, err := gocv.VideoWriterFile(fileName, "mp4v", fps, h.Width, h.Height, true)
	if err != nil {
		return nil, errs.IOf("video writer %s could not be opened: %w", fileName, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, errs.IOf("video writer %s could not be opened", fileName)
	}
	return &writer{header: h, vw: vw}, nil
}

func (w *writer) Write(f *frame.Frame) error {
	if f.Width != w.header.Width || f.Height != w.header.Height {
		return errs.IOf("%d: frame size %dx%d differs from stream size %dx%d", f.ID, f.Width, f.Height, w.header.Width, w.header.Height)
	}
	mat, err := gocv.ImageToMatRGB(f.ToImage())
	if err != nil {
		return errs.IOf("%d: %w", f.ID, err)
	}
	defer mat.Close()
	if err := w.vw.Write(mat); err != nil {
		return errs.IOf("%d: %w", f.ID, err)
	}
	return nil
}

func (w *writer) Close() error {
	return w.vw.Close()
}

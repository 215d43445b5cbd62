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

// Package video runs the frame enhancer over video streams.
package video

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/mlnoga/nightvision/internal/enhance"
	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/ops"
)

// Stream properties. Frame rate is FPSNum/FPSDen frames per second
type Header struct {
	Width  int
	Height int
	FPSNum int
	FPSDen int
}

func (h Header) FPS() float64 {
	if h.FPSDen == 0 {
		return 0
	}
	return float64(h.FPSNum) / float64(h.FPSDen)
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%d at %d:%d fps", h.Width, h.Height, h.FPSNum, h.FPSDen)
}

// A decoded video stream. Read returns io.EOF after the last frame
type Source interface {
	Header() Header
	Read() (*frame.Frame, error)
	Close() error
}

// An encoded video stream. Frames must match the width and height of the
// header the sink was created with. Sinks created without a size take it
// from the first frame
type Sink interface {
	Write(f *frame.Frame) error
	Close() error
}

type (
	SourceOpener func(fileName string, levels int) (Source, error)
	SinkCreator  func(fileName string, h Header) (Sink, error)
)

// Codecs by lower case file extension
var (
	sourceOpeners = map[string]SourceOpener{".y4m": OpenY4M}
	sinkCreators  = map[string]SinkCreator{".y4m": CreateY4M}
)

// Returns the sorted file extensions with a registered decoder
func SourceExtensions() []string {
	exts := lo.Keys(sourceOpeners)
	sort.Strings(exts)
	return exts
}

// Opens a video file for decoding, selecting the codec by extension
func OpenSource(fileName string, levels int) (Source, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	open, ok := sourceOpeners[ext]
	if !ok {
		return nil, errs.Inputf("unsupported video format '%s' of %s, expecting one of %v", ext, fileName, SourceExtensions())
	}
	return open(fileName, levels)
}

// Creates a video file for encoding, selecting the codec by extension.
// Missing directories are created
func CreateSink(fileName string, h Header) (Sink, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	create, ok := sinkCreators[ext]
	if !ok {
		return nil, errs.IOf("unsupported video format '%s' of %s", ext, fileName)
	}
	if err := frame.EnsureDir(fileName); err != nil {
		return nil, err
	}
	return create(fileName, h)
}

// Enhances a video file into another. Both files are opened before the first
// frame is processed. The output has the source frame rate and the source
// size fitted to the enhancer's window
func ProcessFile(ctx context.Context, inFile, outFile string, e *enhance.Enhancer, c *ops.Context) (sum Summary, err error) {
	src, err := OpenSource(inFile, e.Params.Levels)
	if err != nil {
		return sum, err
	}
	defer src.Close()
	c.Log.Infof("Opened %s with %v", inFile, src.Header())

	outHeader := src.Header()
	outHeader.Width, outHeader.Height = e.OutputSize(outHeader.Width, outHeader.Height)
	dst, err := CreateSink(outFile, outHeader)
	if err != nil {
		return sum, err
	}
	sum, err = (&Pipeline{Enhancer: e}).Run(ctx, src, dst, c)
	if closeErr := dst.Close(); closeErr != nil && err == nil {
		err = errs.IOf("closing %s: %w", outFile, closeErr)
	}
	if err != nil {
		return sum, err
	}
	c.Log.Infof("Processed video saved under %s: %v", outFile, sum)
	return sum, nil
}

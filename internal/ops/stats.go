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

package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/hsi"
	"github.com/mlnoga/nightvision/internal/stats"
)

// Logs per-channel statistics and the intensity histogram shape of each frame,
// optionally appending them as CSV rows to a file. Takes n inputs, produces n outputs
type OpStats struct {
	OpUnaryBase
	FileName string `json:"fileName"`
	mutex    sync.Mutex
	started  bool
}

func init() { SetOperatorFactory(func() Operator { return NewOpStatsDefault() }) } // register the operator for JSON decoding

func NewOpStatsDefault() *OpStats { return NewOpStats("") }

func NewOpStats(fileName string) *OpStats {
	op := &OpStats{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "stats", Active: true}},
		FileName:    fileName,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpStats) UnmarshalJSON(data []byte) error {
	def := struct {
		OpBase
		FileName string `json:"fileName"`
	}{OpBase: NewOpStatsDefault().OpBase}
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	op.OpBase, op.FileName = def.OpBase, def.FileName
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Checks the output file against the sandbox before any frame is loaded
func (op *OpStats) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if c.Sandboxed && op.FileName != "" && !IsPathAllowed(op.FileName) {
		return nil, errs.IOf("file name %s outside current directory tree, aborting", op.FileName)
	}
	return op.OpUnaryBase.MakePromises(ins, c)
}

// Statistics of one frame
type FrameStats struct {
	Channels [frame.Channels]*stats.Stats

	CMax   int     // largest quantized intensity
	Mode   float64 // of a normal fit to the intensity histogram
	StdDev float64
}

var channelNames = [frame.Channels]string{"B", "G", "R"}

// Computes channel statistics and fits a normal distribution to the intensity histogram
func NewFrameStats(f *frame.Frame) (*FrameStats, error) {
	fs := &FrameStats{}
	for ch := 0; ch < frame.Channels; ch++ {
		fs.Channels[ch] = stats.NewStats(f.Channel(ch))
	}
	img, err := hsi.ToHSI(f, f.Levels, hsi.Normalized)
	if err != nil {
		return nil, err
	}
	defer img.Release()
	h, err := stats.NewHistogram(img.QuantizedIntensity(), f.Levels)
	if err != nil {
		return nil, err
	}
	fs.CMax = h.CMax
	if fs.Mode, fs.StdDev, err = h.FitNormal(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (op *OpStats) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	fs, err := NewFrameStats(f)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	for ch, s := range fs.Channels {
		c.Log.Infof("%d: %s %v", f.ID, channelNames[ch], s)
	}
	c.Log.Infof("%d: Intensity cMax %d mode %.2f stdDev %.2f", f.ID, fs.CMax, fs.Mode, fs.StdDev)

	if op.FileName != "" {
		if err := op.appendRow(f, fs); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Appends a CSV row, truncating the file and writing the header on first use
func (op *OpStats) appendRow(f *frame.Frame, fs *FrameStats) error {
	op.mutex.Lock() // lock so a single thread is active
	defer op.mutex.Unlock()

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if !op.started {
		flags |= os.O_TRUNC
		if err := frame.EnsureDir(op.FileName); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(op.FileName, flags, 0o644)
	if err != nil {
		return errs.IOf("%d: cannot open %s: %w", f.ID, op.FileName, err)
	}
	defer file.Close()

	if !op.started {
		fmt.Fprintf(file, "id,file,minB,meanB,maxB,minG,meanG,maxG,minR,meanR,maxR,cMax,mode,stdDev\n")
		op.started = true
	}
	fmt.Fprintf(file, "%d,%q", f.ID, f.FileName)
	for _, s := range fs.Channels {
		fmt.Fprintf(file, ",%g,%g,%g", s.Min, s.Mean, s.Max)
	}
	if _, err := fmt.Fprintf(file, ",%d,%g,%g\n", fs.CMax, fs.Mode, fs.StdDev); err != nil {
		return errs.IOf("%d: cannot write %s: %w", f.ID, op.FileName, err)
	}
	return nil
}

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

package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"golang.org/x/sync/errgroup"

	"github.com/mlnoga/nightvision/internal/enhance"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/ops"
)

// Bytes held per pixel while a frame is in flight: input and output samples,
// plus the three float64 HSI planes of AGCWHD
const bytesPerPixelInFlight = frame.Channels * (2 + 2 + 8)

// Enhances all frames of a source, in order, into a sink
type Pipeline struct {
	Enhancer *enhance.Enhancer
}

// Outcome of a pipeline run
type Summary struct {
	Frames  int
	P50     time.Duration // median per-frame latency
	P99     time.Duration
	Max     time.Duration
	Elapsed time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("%d frames in %v, latency p50 %v p99 %v max %v", s.Frames, s.Elapsed, s.P50, s.P99, s.Max)
}

// Latency histogram in microseconds, up to one hour per frame
func newLatencies() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3)
}

func summarize(lat *hdrhistogram.Histogram, frames int, elapsed time.Duration) Summary {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	sum := Summary{Frames: frames, Elapsed: elapsed}
	if lat.TotalCount() > 0 {
		sum.P50, sum.P99, sum.Max = us(lat.ValueAtQuantile(50)), us(lat.ValueAtQuantile(99)), us(lat.Max())
	}
	return sum
}

// Reads, enhances and writes frames until the source reports io.EOF. With
// c.MaxThreads > 1 frames are enhanced concurrently and re-sequenced before
// writing. The sink is not closed
func (p *Pipeline) Run(ctx context.Context, src Source, dst Sink, c *ops.Context) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	start := time.Now()
	lat := newLatencies()
	var frames int
	var err error
	if c.MaxThreads <= 1 {
		frames, err = p.runSequential(ctx, src, dst, c, lat)
	} else {
		frames, err = p.runParallel(ctx, src, dst, c, lat)
	}
	return summarize(lat, frames, time.Since(start)), err
}

func (p *Pipeline) runSequential(ctx context.Context, src Source, dst Sink, c *ops.Context, lat *hdrhistogram.Histogram) (frames int, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		f, err := src.Read()
		if errors.Is(err, io.EOF) {
			return frames, nil
		} else if err != nil {
			return frames, err
		}
		began := time.Now()
		out, err := p.Enhancer.Enhance(f, c)
		if err != nil {
			return frames, err
		}
		lat.RecordValue(int64(time.Since(began) / time.Microsecond))
		if err := dst.Write(out); err != nil {
			return frames, err
		}
		frames++
	}
}

// Number of frames allowed in flight between reading and writing
func (p *Pipeline) window(h Header, c *ops.Context) int {
	window := 2 * c.MaxThreads
	if pixels := h.Width * h.Height; pixels > 0 && c.MemoryMB > 0 {
		budget := int64(c.MemoryMB) * 1024 * 1024 / 4
		if byMemory := budget / int64(pixels*bytesPerPixelInFlight); byMemory < int64(window) {
			window = int(byMemory)
		}
	}
	return max(window, 1)
}

type job struct {
	seq int
	f   *frame.Frame
}

type result struct {
	seq     int
	f       *frame.Frame
	latency time.Duration
}

func (p *Pipeline) runParallel(ctx context.Context, src Source, dst Sink, c *ops.Context, lat *hdrhistogram.Histogram) (frames int, err error) {
	window := p.window(src.Header(), c)
	c.Log.Debugf("Enhancing with %d workers and up to %d frames in flight", c.MaxThreads, window)

	g, gctx := errgroup.WithContext(ctx)
	slots := make(chan struct{}, window) // frames read but not yet written
	jobs := make(chan job)
	results := make(chan result)

	g.Go(func() error {
		defer close(jobs)
		for seq := 0; ; seq++ {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			f, err := src.Read()
			if errors.Is(err, io.EOF) {
				return nil
			} else if err != nil {
				return err
			}
			select {
			case jobs <- job{seq, f}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var workers sync.WaitGroup
	for i := 0; i < c.MaxThreads; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				began := time.Now()
				out, err := p.Enhancer.Enhance(j.f, c)
				if err != nil {
					return err
				}
				select {
				case results <- result{j.seq, out, time.Since(began)}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := map[int]result{}
		for r := range results {
			pending[r.seq] = r
			for {
				next, ok := pending[frames]
				if !ok {
					break
				}
				delete(pending, frames)
				lat.RecordValue(int64(next.latency / time.Microsecond))
				if err := dst.Write(next.f); err != nil {
					return err
				}
				frames++
				<-slots
			}
		}
		return nil
	})

	err = g.Wait()
	return frames, err
}

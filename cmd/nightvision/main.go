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

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid"

	"github.com/mlnoga/nightvision/internal/enhance"
	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/logging"
	"github.com/mlnoga/nightvision/internal/ops"
	"github.com/mlnoga/nightvision/internal/rest"
	"github.com/mlnoga/nightvision/internal/video"
)

const version = "0.3.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var config = flag.String("config", "", "load enhancement parameters from YAML or JSON `file`. Flags given on the command line take precedence")
var out = flag.String("out", "mod/", "save output to `file`. A %d is replaced by the frame number, a trailing / keeps input file names")
var logFile = flag.String("log", "%auto", "save log output to `file`. `%auto` derives it from -out")

var transform = flag.String("transform", "AGCWHD", "tone-mapping transform, one of log, locHE, globHE, AGCWHD")
var levels = flag.Int("levels", 256, "number of intensity levels L in [2, 65536]")
var inputScale = flag.Float64("inputScale", 0.2, "input scale for the log transform")
var clipLimit = flag.Float64("clipLimit", 40, "clip limit for locHE")
var tile = tileFlag{X: 8, Y: 8}
var maxWidth = flag.Int("maxWidth", 1280, "downscale frames wider than this, 0=unbounded")
var maxHeight = flag.Int("maxHeight", 720, "downscale frames higher than this, 0=unbounded")
var histDir = flag.String("histDir", "", "save AGCWHD intensity histograms before and after enhancement to this directory")
var verbose = flag.Bool("verbose", false, "log per-frame diagnostics")

var threads = flag.Int("threads", 0, "number of frames to process in parallel, 0=number of logical cores")
var statsFile = flag.String("statsFile", "", "append per-frame statistics as CSV to `file`")

var addr = flag.String("addr", ":8080", "listen address for the REST server")
var chroot = flag.String("chroot", "", "chroot the REST server into this directory (requires root)")
var setuid = flag.Int("setuid", -1, "switch the REST server to this user ID, -1=keep")

func init() {
	flag.Var(&tile, "tile", "tile grid size for locHE, e.g. `8x8`")
}

// Flag holding a width x height tile grid
type tileFlag image.Point

func (t *tileFlag) String() string { return fmt.Sprintf("%dx%d", t.X, t.Y) }

func (t *tileFlag) Set(s string) error {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return fmt.Errorf("expecting WxH, got %s", s)
	}
	x, err := strconv.Atoi(w)
	if err != nil {
		return err
	}
	y, err := strconv.Atoi(h)
	if err != nil {
		return err
	}
	t.X, t.Y = x, y
	return nil
}

func main() {
	os.Exit(run())
}

// Runs the command given on the command line and returns the process exit code
func run() int {
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `Nightvision Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (image|video|stats|serve|legal|version) (file0 ... filen)

Commands:
  image   Enhance input images
  video   Enhance an input video into the -out file
  stats   Show input image statistics
  serve   Serve the REST API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return 0
	}

	params, err := loadParams()
	if err != nil {
		fmt.Fprintf(os.Stdout, "Error: %s\n", err.Error())
		return 1
	}
	log := logging.New(os.Stdout, params.Verbose)

	// Initialize logging to file in addition to stdout, if selected
	if *logFile == "%auto" {
		*logFile = autoLogFile(args[0], *out)
	}
	if *logFile != "" {
		if err := frame.EnsureDir(*logFile); err != nil {
			fmt.Fprintf(os.Stdout, "Error: %s\n", err.Error())
			return 1
		}
		closer, err := logging.AlsoToFile(log, *logFile)
		if err != nil {
			fmt.Fprintf(os.Stdout, "Error: unable to open logfile '%s': %s\n", *logFile, err.Error())
			return 1
		}
		defer closer.Close()
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(log.Out, "Error: could not create CPU profile: %s\n", err.Error())
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(log.Out, "Error: could not start CPU profile: %s\n", err.Error())
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	c := ops.NewContext(log, *threads)
	if args[0] == "image" || args[0] == "video" || args[0] == "stats" {
		log.Infof("Using %d threads on %d logical cores of %s with %d MiB memory", c.MaxThreads, cpuid.CPU.LogicalCores, cpuid.CPU.BrandName, c.MemoryMB)
	}

	// run actions
	switch args[0] {
	case "image":
		err = cmdImage(args[1:], params, c)

	case "video":
		err = cmdVideo(args[1:], params, c)

	case "stats":
		err = cmdStats(args[1:], params, c)

	case "serve":
		if err = rest.MakeSandbox(log, *chroot, *setuid); err == nil {
			s := &rest.Server{Log: log, MaxThreads: c.MaxThreads, Sandboxed: true}
			err = s.Serve(*addr)
		}

	case "legal":
		fmt.Fprint(os.Stdout, legal)
		return 0

	case "version":
		fmt.Fprintf(os.Stdout, "Version %s\n", version)
		return 0

	case "help", "?":
		flag.Usage()
		return 0

	default:
		fmt.Fprintf(os.Stdout, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return 1
	}

	// Store memory profile if flagged
	if *memprofile != "" {
		if err := writeMemProfile(*memprofile); err != nil {
			fmt.Fprintf(log.Out, "Error: could not write memory profile: %s\n", err.Error())
		}
	}

	if err != nil {
		fmt.Fprintf(log.Out, "Error: %s\n", err.Error())
		return 1
	}
	log.Infof("Done after %v", time.Since(start))
	return 0
}

func writeMemProfile(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC() // get up-to-date statistics
	return pprof.Lookup("allocs").WriteTo(f, 0)
}

// Log file for the given command and output, empty for none
func autoLogFile(command, out string) string {
	switch command {
	case "image", "video", "stats":
	default:
		return ""
	}
	if out == "" {
		return ""
	}
	if strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(os.PathSeparator)) {
		return filepath.Join(out, "nightvision.log")
	}
	return strings.ReplaceAll(strings.TrimSuffix(out, filepath.Ext(out)), "%d", "") + ".log"
}

// Loads parameters from the config file, if any, and applies flags set on the command line
func loadParams() (enhance.Params, error) {
	p := enhance.DefaultParams()
	if *config != "" {
		loaded, err := enhance.LoadParams(*config)
		if err != nil {
			return p, err
		}
		p = *loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transform":
			p.Transform = *transform
		case "levels":
			p.Levels = *levels
		case "inputScale":
			p.InputScale = *inputScale
		case "clipLimit":
			p.ClipLimit = *clipLimit
		case "tile":
			p.TileGridSize = image.Point(tile)
		case "maxWidth":
			p.MaxWidth = *maxWidth
		case "maxHeight":
			p.MaxHeight = *maxHeight
		case "histDir":
			p.HistDir = *histDir
		case "verbose":
			p.Verbose = *verbose
		}
	})
	return p, p.Validate()
}

func runSequence(seq *ops.OpSequence, c *ops.Context) error {
	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeAll(promises, c.MaxThreads, true)
	return err
}

// Enhances all images matching the given file patterns
func cmdImage(patterns []string, p enhance.Params, c *ops.Context) error {
	if len(patterns) == 0 {
		return errs.Inputf("no input images given")
	}
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany(patterns, p.Levels),
		enhance.NewOpEnhance(p),
		ops.NewOpSave(*out),
	)
	c.Log.Infof("Enhancing with %v", &p)
	return runSequence(seq, c)
}

// Shows statistics for all images matching the given file patterns
func cmdStats(patterns []string, p enhance.Params, c *ops.Context) error {
	if len(patterns) == 0 {
		return errs.Inputf("no input images given")
	}
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany(patterns, p.Levels),
		ops.NewOpStats(*statsFile),
	)
	return runSequence(seq, c)
}

// Enhances a single video. The output name comes from -out, or the second argument
func cmdVideo(args []string, p enhance.Params, c *ops.Context) error {
	if len(args) < 1 || len(args) > 2 {
		return errs.Inputf("expecting an input video and an optional output video, got %d arguments", len(args))
	}
	inFile, outFile := args[0], *out
	if len(args) == 2 {
		outFile = args[1]
	}
	if strings.HasSuffix(outFile, "/") || strings.HasSuffix(outFile, string(os.PathSeparator)) {
		outFile = filepath.Join(outFile, filepath.Base(inFile))
	}
	e, err := enhance.NewEnhancer(p)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	_, err = video.ProcessFile(ctx, inFile, outFile, e, c)
	return err
}

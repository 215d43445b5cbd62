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
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
)

// YUV4MPEG2 stream signature and frame marker
const (
	y4mMagic = "YUV4MPEG2"
	y4mFrame = "FRAME"
)

// Chroma plane layout of a YUV4MPEG2 stream
type chroma struct {
	name       string
	subX, subY int // subsampling factors, 0 for no chroma planes
}

var chromaByTag = map[string]chroma{
	"444":      {"444", 1, 1},
	"422":      {"422", 2, 1},
	"420":      {"420", 2, 2},
	"420jpeg":  {"420jpeg", 2, 2},
	"420paldv": {"420paldv", 2, 2},
	"420mpeg2": {"420mpeg2", 2, 2},
	"mono":     {"mono", 0, 0},
}

func (c chroma) planeSize(width, height int) (w, h int) {
	if c.subX == 0 {
		return 0, 0
	}
	return (width + c.subX - 1) / c.subX, (height + c.subY - 1) / c.subY
}

// Decodes uncompressed YUV4MPEG2 streams
type Y4MReader struct {
	file   *os.File
	r      *bufio.Reader
	header Header
	chroma chroma
	levels int
	nextID int
	buf    []byte
}

func OpenY4M(fileName string, levels int) (Source, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errs.Inputf("cannot open video %s: %w", fileName, err)
	}
	src, err := NewY4MReader(file, levels)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	src.file = file
	return src, nil
}

// Reads the stream header from r
func NewY4MReader(r io.Reader, levels int) (*Y4MReader, error) {
	if levels < 2 || levels > 65536 {
		return nil, errs.Configf("levels %d outside [2, 65536]", levels)
	}
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, errs.Inputf("reading stream header: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != y4mMagic {
		return nil, errs.Inputf("not a %s stream", y4mMagic)
	}
	src := &Y4MReader{
		r:      br,
		header: Header{FPSNum: 25, FPSDen: 1},
		chroma: chromaByTag["420jpeg"],
		levels: levels,
	}
	for _, field := range fields[1:] {
		tag, value := field[0], field[1:]
		switch tag {
		case 'W':
			src.header.Width, err = strconv.Atoi(value)
		case 'H':
			src.header.Height, err = strconv.Atoi(value)
		case 'F':
			src.header.FPSNum, src.header.FPSDen, err = parseRatio(value)
		case 'C':
			c, ok := chromaByTag[value]
			if !ok {
				return nil, errs.Inputf("unsupported chroma layout C%s", value)
			}
			src.chroma = c
		case 'I':
			if value != "p" && value != "?" {
				return nil, errs.Inputf("unsupported interlacing I%s", value)
			}
		}
		if err != nil {
			return nil, errs.Inputf("bad header field %s: %w", field, err)
		}
	}
	if src.header.Width <= 0 || src.header.Height <= 0 {
		return nil, errs.Inputf("invalid frame size %dx%d", src.header.Width, src.header.Height)
	}
	if src.header.FPSNum <= 0 || src.header.FPSDen <= 0 {
		return nil, errs.Inputf("invalid frame rate %d:%d", src.header.FPSNum, src.header.FPSDen)
	}
	cw, ch := src.chroma.planeSize(src.header.Width, src.header.Height)
	src.buf = make([]byte, src.header.Width*src.header.Height+2*cw*ch)
	return src, nil
}

func parseRatio(s string) (num, den int, err error) {
	n, d, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expecting num:den, got %s", s)
	}
	if num, err = strconv.Atoi(n); err != nil {
		return 0, 0, err
	}
	if den, err = strconv.Atoi(d); err != nil {
		return 0, 0, err
	}
	return num, den, nil
}

func (s *Y4MReader) Header() Header { return s.header }

func (s *Y4MReader) Read() (*frame.Frame, error) {
	line, err := s.r.ReadString('\n')
	if err == io.EOF && line == "" {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errs.Inputf("frame %d: reading frame header: %w", s.nextID, err)
	}
	if !strings.HasPrefix(line, y4mFrame) {
		return nil, errs.Inputf("frame %d: missing %s marker", s.nextID, y4mFrame)
	}
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, errs.Inputf("frame %d: %w", s.nextID, err)
	}

	w, h := s.header.Width, s.header.Height
	f, err := frame.New(w, h, s.levels)
	if err != nil {
		return nil, err
	}
	f.ID = s.nextID
	s.nextID++

	cw, chh := s.chroma.planeSize(w, h)
	yPlane := s.buf[:w*h]
	cbPlane := s.buf[w*h : w*h+cw*chh]
	crPlane := s.buf[w*h+cw*chh:]
	blue, green, red := f.Channel(frame.Blue), f.Channel(frame.Green), f.Channel(frame.Red)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			cb, cr := uint8(128), uint8(128)
			if cw > 0 {
				ci := (y/s.chroma.subY)*cw + x/s.chroma.subX
				cb, cr = cbPlane[ci], crPlane[ci]
			}
			r, g, b := color.YCbCrToRGB(yPlane[i], cb, cr)
			red[i] = frame.FromByte(r, s.levels)
			green[i] = frame.FromByte(g, s.levels)
			blue[i] = frame.FromByte(b, s.levels)
		}
	}
	return f, nil
}

func (s *Y4MReader) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Encodes frames as a YUV4MPEG2 stream with full resolution chroma
type Y4MWriter struct {
	file    *os.File
	w       *bufio.Writer
	header  Header
	started bool // stream header written
	buf     []byte
}

func CreateY4M(fileName string, h Header) (Sink, error) {
	file, err := os.Create(fileName)
	if err != nil {
		return nil, errs.IOf("cannot create video %s: %w", fileName, err)
	}
	dst := NewY4MWriter(file, h)
	dst.file = file
	return dst, nil
}

// Creates a writer for frames of the size and rate of h. A zero width or
// height is taken from the first frame written
func NewY4MWriter(w io.Writer, h Header) *Y4MWriter {
	if h.FPSNum <= 0 || h.FPSDen <= 0 {
		h.FPSNum, h.FPSDen = 25, 1
	}
	return &Y4MWriter{w: bufio.NewWriter(w), header: h}
}

func (s *Y4MWriter) writeHeader() error {
	if _, err := fmt.Fprintf(s.w, "%s W%d H%d F%d:%d Ip A1:1 C444\n", y4mMagic,
		s.header.Width, s.header.Height, s.header.FPSNum, s.header.FPSDen); err != nil {
		return errs.IOf("writing stream header: %w", err)
	}
	s.started = true
	return nil
}

func (s *Y4MWriter) Write(f *frame.Frame) error {
	if !s.started && (s.header.Width <= 0 || s.header.Height <= 0) {
		s.header.Width, s.header.Height = f.Width, f.Height
	}
	if f.Width != s.header.Width || f.Height != s.header.Height {
		return errs.IOf("%d: frame size %dx%d differs from stream size %dx%d", f.ID, f.Width, f.Height, s.header.Width, s.header.Height)
	}
	if !s.started {
		if err := s.writeHeader(); err != nil {
			return err
		}
		s.buf = make([]byte, 3*f.Pixels)
	}

	n := f.Pixels
	blue, green, red := f.Channel(frame.Blue), f.Channel(frame.Green), f.Channel(frame.Red)
	for i := 0; i < n; i++ {
		y, cb, cr := color.RGBToYCbCr(frame.ToByte(red[i], f.Levels), frame.ToByte(green[i], f.Levels), frame.ToByte(blue[i], f.Levels))
		s.buf[i], s.buf[n+i], s.buf[2*n+i] = y, cb, cr
	}
	if _, err := s.w.WriteString(y4mFrame + "\n"); err != nil {
		return errs.IOf("%d: %w", f.ID, err)
	}
	if _, err := s.w.Write(s.buf); err != nil {
		return errs.IOf("%d: %w", f.ID, err)
	}
	return nil
}

// Flushes buffered frames and closes the file. A stream without frames
// still receives its header if the size is known
func (s *Y4MWriter) Close() error {
	var err error
	if !s.started && s.header.Width > 0 && s.header.Height > 0 {
		err = s.writeHeader()
	}
	if flushErr := s.w.Flush(); err == nil {
		err = flushErr
	}
	if s.file != nil {
		if closeErr := s.file.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

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

package logging

import (
	"bufio"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Creates a logger writing plain text lines to out. Verbose enables debug output
func New(out io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// Tee target for a log file. Flushes the buffer before closing
type fileSink struct {
	w *bufio.Writer
	f *os.File
}

func (s *fileSink) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *fileSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// Enables logging to file in addition to the logger's current output.
// Close the returned closer to flush the file and restore the previous output
func AlsoToFile(l *logrus.Logger, fileName string) (io.Closer, error) {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	sink := &fileSink{w: bufio.NewWriter(f), f: f}
	prev := l.Out
	l.SetOutput(io.MultiWriter(prev, sink))
	return closerFunc(func() error {
		l.SetOutput(prev)
		return sink.Close()
	}), nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

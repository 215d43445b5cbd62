// Copyright (C) 2021 Markus L. Noga
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

// Package errs defines the error kinds surfaced by the enhancement pipeline.
// Callers test for a kind with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInput       = errors.New("input error")       // source cannot be opened or decoded
	ErrConfig      = errors.New("config error")      // missing or unrecognized parameter
	ErrComputation = errors.New("computation error") // internal invariant violated
	ErrIO          = errors.New("io error")          // destination cannot be written
)

func Inputf(format string, args ...interface{}) error {
	return wrap(ErrInput, format, args...)
}

func Configf(format string, args ...interface{}) error {
	return wrap(ErrConfig, format, args...)
}

func Computationf(format string, args ...interface{}) error {
	return wrap(ErrComputation, format, args...)
}

func IOf(format string, args ...interface{}) error {
	return wrap(ErrIO, format, args...)
}

// Builds "<kind>: <message>", keeping any %w argument in the chain as well
func wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}

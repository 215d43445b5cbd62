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

package frame

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/mlnoga/nightvision/internal/errs"
)

const jpegQuality = 95

// Writes the frame to an image file, creating missing directories.
// The format follows the file extension
func (f *Frame) WriteFile(fileName string) error {
	if _, err := imaging.FormatFromFilename(fileName); err != nil {
		return errs.IOf("%d: cannot write %s: %w", f.ID, fileName, err)
	}
	if err := EnsureDir(fileName); err != nil {
		return err
	}
	if err := imaging.Save(f.ToImage(), fileName, imaging.JPEGQuality(jpegQuality)); err != nil {
		return errs.IOf("%d: cannot write %s: %w", f.ID, fileName, err)
	}
	return nil
}

// Creates the parent directory of fileName if it does not exist
func EnsureDir(fileName string) error {
	dir := filepath.Dir(fileName)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.IOf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

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
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Reads an image file into a frame. The format is detected from the file contents
func ReadFile(fileName string, id int, levels int) (*Frame, error) {
	img, err := imaging.Open(fileName, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Inputf("%d: cannot read %s: %w", id, fileName, err)
	}
	f, err := FromImage(img, levels)
	if err != nil {
		return nil, err
	}
	f.ID, f.FileName = id, fileName
	return f, nil
}

// EXIF fields reported for camera inputs
var exifFields = []exif.FieldName{
	exif.Model,
	exif.ExposureTime,
	exif.FNumber,
	exif.ISOSpeedRatings,
	exif.DateTimeOriginal,
}

// Reads selected EXIF fields from a JPEG or TIFF file. Returns an empty map
// for other formats or files without EXIF data
func ReadEXIF(fileName string) (map[string]string, error) {
	res := map[string]string{}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".tif", ".tiff":
	default:
		return res, nil
	}
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errs.Inputf("cannot open %s: %w", fileName, err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return res, nil
	}
	for _, name := range exifFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		res[string(name)] = strings.Trim(tag.String(), "\"")
	}
	return res, nil
}

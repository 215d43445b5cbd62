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
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
)

// Default number of intensity levels for loaded frames
const DefaultLevels = 256

// Load a single frame from a single filename. Takes zero inputs, produces one output
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
	Levels   int    `json:"levels"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "", DefaultLevels) }

func NewOpLoad(id int, fileName string, levels int) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
		Levels:   levels,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpLoad) UnmarshalJSON(data []byte) error {
	type defaults OpLoad
	def := defaults(*NewOpLoadDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpLoad(def)
	return nil
}

// Load image from a file. Takes no inputs
func (op *OpLoad) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, errs.Configf("%s operator with non-zero input", op.Type)
	}
	if c.Sandboxed && !IsPathAllowed(op.FileName) {
		return nil, errs.Inputf("file name %s outside current directory tree, aborting", op.FileName)
	}
	out := func() (f *frame.Frame, err error) {
		return op.Apply(c)
	}
	return []Promise{out}, nil
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func IsPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

func (op *OpLoad) Apply(c *Context) (f *frame.Frame, err error) {
	f, err = frame.ReadFile(op.FileName, op.ID, op.Levels)
	if err != nil {
		return nil, err
	}
	c.Log.Infof("%d: Loaded %s pixel frame with %d levels from %s", f.ID, f.DimensionsToString(), f.Levels, f.FileName)

	if c.Log.IsLevelEnabled(logrus.DebugLevel) {
		if tags, err := frame.ReadEXIF(op.FileName); err == nil {
			for k, v := range tags {
				c.Log.Debugf("%d: EXIF %s=%s", f.ID, k, v)
			}
		}
	}
	return f, nil
}

// Load many frames from a slice of filename patterns with wildcards.
// Takes zero inputs, produces n outputs
type OpLoadMany struct {
	OpBase
	FilePatterns []string `json:"filePatterns"`
	Levels       int      `json:"levels"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadManyDefault() }) } // register the operator for JSON decoding

func NewOpLoadManyDefault() *OpLoadMany { return NewOpLoadMany(nil, DefaultLevels) }

func NewOpLoadMany(filePatterns []string, levels int) *OpLoadMany {
	return &OpLoadMany{
		OpBase:       OpBase{Type: "loadMany", Active: true},
		FilePatterns: filePatterns,
		Levels:       levels,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpLoadMany) UnmarshalJSON(data []byte) error {
	type defaults OpLoadMany
	def := defaults(*NewOpLoadManyDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpLoadMany(def)
	return nil
}

// Turn filename wildcards into list of file load operators
func (op *OpLoadMany) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, errs.Configf("%s operator with non-zero input", op.Type)
	}
	for _, pattern := range op.FilePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errs.Configf("bad file pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			if c.Sandboxed && !IsPathAllowed(match) {
				c.Log.Warnf("Pattern match %s outside current directory tree, skipping", match)
				continue
			}
			opLoad := NewOpLoad(len(outs), match, op.Levels)
			promises, err := opLoad.MakePromises(nil, c)
			if err != nil {
				return nil, err
			}
			outs = append(outs, promises...)
		}
	}
	if len(outs) == 0 {
		return nil, errs.Inputf("%s operator with no files to load from pattern %v", op.Type, op.FilePatterns)
	}
	c.Log.Infof("Found %d files.", len(outs))
	return outs, nil
}

// Saves given promise under a given filename pattern. Takes one input,
// produces one output (the materialized but unchanged input).
// A %d in the pattern expands to the frame ID, a pattern ending in a path
// separator names a directory that receives the input's base name
type OpSave struct {
	OpUnaryBase
	FilePattern string `json:"filePattern"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault() }) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(filePattern string) *OpSave {
	op := OpSave{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "save", Active: filePattern != ""}},
		FilePattern: filePattern,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSave) UnmarshalJSON(data []byte) error {
	type defaults OpSave
	def := defaults(*NewOpSaveDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpSave(def)
	op.Active = op.Active || op.FilePattern != ""
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Expands the file pattern for the given frame
func (op *OpSave) FileName(f *frame.Frame) string {
	return OutputFileName(op.FilePattern, f)
}

func OutputFileName(pattern string, f *frame.Frame) string {
	if strings.Contains(pattern, "%d") {
		return fmt.Sprintf(pattern, f.ID)
	}
	if strings.HasSuffix(pattern, "/") || strings.HasSuffix(pattern, string(os.PathSeparator)) {
		return filepath.Join(pattern, filepath.Base(f.FileName))
	}
	return pattern
}

func (op *OpSave) Apply(f *frame.Frame, c *Context) (result *frame.Frame, err error) {
	if !op.Active || op.FilePattern == "" {
		return f, nil
	}
	fileName := op.FileName(f)
	if c.Sandboxed && !IsPathAllowed(fileName) {
		return nil, errs.IOf("%d: file name %s outside current directory tree, aborting", f.ID, fileName)
	}
	c.Log.Infof("%d: Writing %s pixel frame to %s", f.ID, f.DimensionsToString(), fileName)
	if err := f.WriteFile(fileName); err != nil {
		return nil, err
	}
	return f, nil
}

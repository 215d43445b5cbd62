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

package enhance

import (
	"encoding/json"

	"github.com/mlnoga/nightvision/internal/errs"
	"github.com/mlnoga/nightvision/internal/frame"
	"github.com/mlnoga/nightvision/internal/ops"
)

// Enhances each input frame. Takes n inputs, produces n outputs
type OpEnhance struct {
	ops.OpUnaryBase
	Params   Params `json:"params"`
	enhancer *Enhancer
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpEnhanceDefault() }) } // register the operator for JSON decoding

func NewOpEnhanceDefault() *OpEnhance { return NewOpEnhance(DefaultParams()) }

func NewOpEnhance(p Params) *OpEnhance {
	op := OpEnhance{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "enhance", Active: true}},
		Params:      p,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpEnhance) UnmarshalJSON(data []byte) error {
	type defaults OpEnhance
	def := defaults(*NewOpEnhanceDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpEnhance(def)
	op.OpUnaryBase.Apply = op.Apply
	return nil
}

// Validates the parameters before any frame is loaded
func (op *OpEnhance) MakePromises(ins []ops.Promise, c *ops.Context) (outs []ops.Promise, err error) {
	if c.Sandboxed && op.Params.HistDir != "" && !ops.IsPathAllowed(op.Params.HistDir) {
		return nil, errs.IOf("histogram directory %s outside current directory tree, aborting", op.Params.HistDir)
	}
	if op.enhancer, err = NewEnhancer(op.Params); err != nil {
		return nil, err
	}
	return op.OpUnaryBase.MakePromises(ins, c)
}

func (op *OpEnhance) Apply(f *frame.Frame, c *ops.Context) (result *frame.Frame, err error) {
	e := op.enhancer
	if e == nil {
		if e, err = NewEnhancer(op.Params); err != nil {
			return nil, err
		}
	}
	c.Log.Infof("%d: Enhancing with %v", f.ID, e.Transform)
	return e.Enhance(f, c)
}

package chaindef

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclChainFile is the top-level structure of an HCL chain file:
//
//	num_loop = 1000
//
//	module "GenerateEvents" {
//	  id         = "gen"
//	  parameters = { energy = 60.0, seed = 42 }
//	}
type hclChainFile struct {
	NumLoop       *int64       `hcl:"num_loop,optional"`
	DisplayPeriod *int64       `hcl:"display_period,optional"`
	Modules       []*hclModule `hcl:"module,block"`
}

type hclModule struct {
	Type       string    `hcl:"type,label"`
	ID         *string   `hcl:"id,optional"`
	On         *bool     `hcl:"on,optional"`
	Aliases    []string  `hcl:"aliases,optional"`
	Parameters cty.Value `hcl:"parameters,optional"`
	Push       cty.Value `hcl:"push,optional"`
	Insert     cty.Value `hcl:"insert,optional"`
}

// ParseHCL decodes an HCL chain definition. HCL numbers have no int/float
// distinction; they decode as int64 when integral and float64 otherwise,
// and Apply converts integral values bound for real parameters.
func ParseHCL(src []byte, filename string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, hclLoadError(ErrCodeParseFailed, diags)
	}

	var parsed hclChainFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, hclLoadError(ErrCodeInvalid, diags)
	}

	tree := map[string]any{}
	if parsed.NumLoop != nil {
		tree["num_loop"] = *parsed.NumLoop
	}
	if parsed.DisplayPeriod != nil {
		tree["display_period"] = *parsed.DisplayPeriod
	}
	modules := make([]any, 0, len(parsed.Modules))
	for _, m := range parsed.Modules {
		fields, err := m.tree()
		if err != nil {
			return nil, err
		}
		modules = append(modules, fields)
	}
	tree["modules"] = modules

	def, err := decode(tree)
	if err != nil {
		return nil, err
	}
	def.untypedNumbers = true
	return def, nil
}

func (m *hclModule) tree() (map[string]any, error) {
	fields := map[string]any{"type": m.Type}
	if m.ID != nil {
		fields["id"] = *m.ID
	}
	if m.On != nil {
		fields["on"] = *m.On
	}
	if m.Aliases != nil {
		aliases := make([]any, len(m.Aliases))
		for i, a := range m.Aliases {
			aliases[i] = a
		}
		fields["aliases"] = aliases
	}
	for key, v := range map[string]cty.Value{"parameters": m.Parameters, "push": m.Push, "insert": m.Insert} {
		if v.IsNull() {
			continue
		}
		native, err := ctyToNative(v)
		if err != nil {
			return nil, invalid("module %s: %s: %v", m.Type, key, err)
		}
		fields[key] = native
	}
	return fields, nil
}

// ctyToNative recursively converts a cty.Value to the generic tree.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("null or unknown value")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == 0 {
				return n, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, e := it.Element()
			native, err := ctyToNative(e)
			if err != nil {
				return nil, err
			}
			list = append(list, native)
		}
		return list, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			k, e := it.Element()
			native, err := ctyToNative(e)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", k.AsString(), err)
			}
			m[k.AsString()] = native
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}

func hclLoadError(code string, diags hcl.Diagnostics) *LoadError {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		le := &LoadError{Code: code, Message: d.Summary}
		if d.Detail != "" {
			le.Message += ": " + d.Detail
		}
		if d.Subject != nil {
			le.Pos = Pos{Filename: d.Subject.Filename, Line: d.Subject.Start.Line, Column: d.Subject.Start.Column}
		}
		return le
	}
	return &LoadError{Code: code, Message: diags.Error()}
}

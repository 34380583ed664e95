package chaindef

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// ParseCUE compiles a CUE chain definition. The value must be concrete
// once evaluated; CUE definitions and constraints may be used freely to
// build it.
func ParseCUE(src []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeInvalid, err)
	}

	native, err := cueToNative(v)
	if err != nil {
		return nil, err
	}
	tree, ok := native.(map[string]any)
	if !ok {
		return nil, invalid("chain is %s, want a struct", describe(native))
	}
	return decode(tree)
}

// cueToNative converts a concrete CUE value to the generic tree. Integers
// stay int64 and floats float64.
func cueToNative(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, cueLoadError(ErrCodeInvalid, err)
		}
		list := []any{}
		for iter.Next() {
			e, err := cueToNative(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, e)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, cueLoadError(ErrCodeInvalid, err)
		}
		m := map[string]any{}
		for iter.Next() {
			e, err := cueToNative(iter.Value())
			if err != nil {
				return nil, err
			}
			m[iter.Label()] = e
		}
		return m, nil
	}
	return nil, &LoadError{
		Code:    ErrCodeInvalid,
		Message: fmt.Sprintf("unsupported CUE value of kind %s", v.Kind()),
		Pos:     cuePos(v.Pos().Filename(), v.Pos().Line(), v.Pos().Column()),
	}
}

// cueLoadError extracts the first CUE error and its position.
func cueLoadError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if ps := cueerrors.Positions(first); len(ps) > 0 {
		le.Pos = cuePos(ps[0].Filename(), ps[0].Line(), ps[0].Column())
	}
	return le
}

func cuePos(file string, line, col int) Pos {
	return Pos{Filename: file, Line: line, Column: col}
}

package irfile

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ferrylang/ferry/compiler/types"
)

// parseType resolves a type string:
//
//	i64 f64 bool string void
//	Name           a declared struct
//	[]T            array of T
//	*T             pointer to T
//	T?             nullable T
//	func(A, B) R   function, R optional
//
// The nullable suffix binds loosest, so []Vec2? is a nullable array.
func (d *decoder) parseType(s string) (types.Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty type")
	}

	if strings.HasSuffix(s, "?") {
		elem, err := d.parseType(s[:len(s)-1])
		if err != nil {
			return nil, err
		}
		return &types.Nullable{Elem: elem}, nil
	}
	if strings.HasPrefix(s, "[]") {
		elem, err := d.parseType(s[2:])
		if err != nil {
			return nil, err
		}
		return &types.Array{Elem: elem}, nil
	}
	if strings.HasPrefix(s, "*") {
		elem, err := d.parseType(s[1:])
		if err != nil {
			return nil, err
		}
		return &types.Pointer{Elem: elem}, nil
	}
	if strings.HasPrefix(s, "func(") {
		return d.parseFuncType(s)
	}

	switch s {
	case "i64":
		return types.I64, nil
	case "f64":
		return types.F64, nil
	case "bool":
		return types.Bool, nil
	case "string":
		return types.String, nil
	case "void":
		return types.Void, nil
	}
	if st, ok := d.structs[s]; ok {
		return st, nil
	}
	return nil, errors.Errorf("unknown type %q", s)
}

func (d *decoder) parseFuncType(s string) (types.Type, error) {
	depth, end := 0, -1
scan:
	for i := len("func"); i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
				break scan
			}
		}
	}
	if end < 0 {
		return nil, errors.Errorf("malformed func type %q", s)
	}

	ft := &types.Func{Ret: types.Void}
	for _, part := range splitTop(s[len("func("):end]) {
		p, err := d.parseType(part)
		if err != nil {
			return nil, err
		}
		ft.Params = append(ft.Params, p)
	}
	if ret := strings.TrimSpace(s[end+1:]); ret != "" {
		r, err := d.parseType(ret)
		if err != nil {
			return nil, err
		}
		ft.Ret = r
	}
	return ft, nil
}

// splitTop splits on commas outside any parenthesis nesting.
func splitTop(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

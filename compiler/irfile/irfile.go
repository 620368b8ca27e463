// Package irfile reads modules from their YAML serialization. A .fir
// document declares structs and functions; function bodies are trees of
// single-key mappings mirroring the ir package's node union, so the
// front-end and this loader agree on exactly one wire shape.
package irfile

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

type fileModule struct {
	Module  string       `yaml:"module"`
	Structs []fileStruct `yaml:"structs"`
	Funcs   []fileFunc   `yaml:"funcs"`
}

type fileStruct struct {
	Name   string      `yaml:"name"`
	Ref    bool        `yaml:"ref"`
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Immutable bool   `yaml:"immutable"`
}

type fileFunc struct {
	Name   string      `yaml:"name"`
	Params []fileVar   `yaml:"params"`
	Ret    string      `yaml:"ret"`
	Locals []fileVar   `yaml:"locals"`
	Body   []yaml.Node `yaml:"body"`
}

type fileVar struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	ByRef bool   `yaml:"byref"`
}

// Load reads and decodes the module at path.
func Load(path string) (*ir.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read module")
	}
	mod, err := Decode(src)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return mod, nil
}

// Decode parses a YAML-serialized module. Structs are resolved in two
// phases so fields and signatures may mention any declared struct,
// including their own.
func Decode(src []byte) (*ir.Module, error) {
	var file fileModule
	if err := yaml.Unmarshal(src, &file); err != nil {
		return nil, errors.Wrap(err, "yaml")
	}
	if file.Module == "" {
		return nil, errors.New("module name missing")
	}

	d := &decoder{
		structs: make(map[string]*types.Struct),
		sigs:    make(map[string]*types.Func),
	}
	mod := &ir.Module{Name: file.Module}

	for _, fs := range file.Structs {
		if _, dup := d.structs[fs.Name]; dup {
			return nil, errors.Errorf("struct %s declared twice", fs.Name)
		}
		st := &types.Struct{SourceName: fs.Name, Ref: fs.Ref}
		d.structs[fs.Name] = st
		mod.Structs = append(mod.Structs, st)
	}
	for i, fs := range file.Structs {
		st := mod.Structs[i]
		for _, ff := range fs.Fields {
			typ, err := d.parseType(ff.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "struct %s field %s", fs.Name, ff.Name)
			}
			st.Fields = append(st.Fields, &types.Field{
				Name:      ff.Name,
				Type:      typ,
				Immutable: ff.Immutable,
			})
		}
	}

	// Signatures before bodies: call sites need result types.
	shells := make([]*ir.FuncNode, len(file.Funcs))
	for i, ff := range file.Funcs {
		if ff.Name == "" {
			return nil, errors.Errorf("func #%d has no name", i)
		}
		if _, dup := d.sigs[ff.Name]; dup {
			return nil, errors.Errorf("func %s declared twice", ff.Name)
		}
		fn, err := d.funcShell(ff)
		if err != nil {
			return nil, err
		}
		shells[i] = fn
		d.sigs[ff.Name] = fn.Type()
	}
	for i, ff := range file.Funcs {
		if err := d.funcBody(shells[i], ff); err != nil {
			return nil, errors.Wrapf(err, "func %s", ff.Name)
		}
		mod.Funcs = append(mod.Funcs, shells[i])
	}
	return mod, nil
}

// decoder carries module-wide state. Scope numbers are handed out once
// per function instance, nested literals included, so variable identity
// never collides across bodies.
type decoder struct {
	structs map[string]*types.Struct
	sigs    map[string]*types.Func
	scopes  int
}

func (d *decoder) nextScope() int {
	d.scopes++
	return d.scopes
}

func (d *decoder) funcShell(ff fileFunc) (*ir.FuncNode, error) {
	fn := &ir.FuncNode{Name: ff.Name, Scope: d.nextScope()}

	ret := ff.Ret
	if ret == "" {
		ret = "void"
	}
	typ, err := d.parseType(ret)
	if err != nil {
		return nil, errors.Wrapf(err, "func %s result", ff.Name)
	}
	fn.Ret = typ

	local := 0
	for _, fv := range ff.Params {
		local++
		typ, err := d.parseType(fv.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "func %s param %s", ff.Name, fv.Name)
		}
		fn.Params = append(fn.Params, &ir.NameNode{
			ID:    ir.VarID{Scope: fn.Scope, Local: local},
			Name:  fv.Name,
			Typ:   typ,
			Param: true,
			ByRef: fv.ByRef,
		})
	}
	for _, fv := range ff.Locals {
		local++
		typ, err := d.parseType(fv.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "func %s local %s", ff.Name, fv.Name)
		}
		fn.Locals = append(fn.Locals, &ir.NameNode{
			ID:   ir.VarID{Scope: fn.Scope, Local: local},
			Name: fv.Name,
			Typ:  typ,
		})
	}
	return fn, nil
}

func (d *decoder) funcBody(fn *ir.FuncNode, ff fileFunc) error {
	fd := &funcDecoder{
		decoder: d,
		fn:      fn,
		vars:    make(map[string]*ir.NameNode),
	}
	for _, v := range fn.Params {
		if _, dup := fd.vars[v.Name]; dup {
			return errors.Errorf("variable %s declared twice", v.Name)
		}
		fd.vars[v.Name] = v
	}
	for _, v := range fn.Locals {
		if _, dup := fd.vars[v.Name]; dup {
			return errors.Errorf("variable %s declared twice", v.Name)
		}
		fd.vars[v.Name] = v
	}

	body, err := fd.stmts(ff.Body)
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}

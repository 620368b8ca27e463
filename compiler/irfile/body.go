package irfile

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ferrylang/ferry/compiler/ir"
	"github.com/ferrylang/ferry/compiler/types"
)

// funcDecoder decodes one function body. Each occurrence of a variable
// becomes its own node carrying the declared identity, the way the
// front-end emits them.
type funcDecoder struct {
	*decoder

	fn   *ir.FuncNode
	vars map[string]*ir.NameNode
	lits int
}

var binaryOps = map[string]ir.Operator{
	"+":  ir.OP_ADD,
	"-":  ir.OP_SUB,
	"*":  ir.OP_MUL,
	"/":  ir.OP_DIV,
	">":  ir.OP_GT,
	">=": ir.OP_GTEQ,
	"<":  ir.OP_LT,
	"<=": ir.OP_LTEQ,
	"==": ir.OP_EQ,
	"!=": ir.OP_NEQ,
}

var assignOps = map[string]ir.AssignOp{
	"=":  ir.ASSIGN,
	"+=": ir.ADD_ASSIGN,
	"-=": ir.SUB_ASSIGN,
}

func unionKey(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errors.Errorf("line %d: expected a single-key node", n.Line)
	}
	return n.Content[0].Value, n.Content[1], nil
}

func (fd *funcDecoder) stmts(nodes []yaml.Node) ([]ir.Node, error) {
	var out []ir.Node
	for i := range nodes {
		stmt, err := fd.stmt(&nodes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (fd *funcDecoder) stmt(n *yaml.Node) (ir.Node, error) {
	tag, payload, err := unionKey(n)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "assign":
		var dto struct {
			Op     string    `yaml:"op"`
			Target yaml.Node `yaml:"target"`
			Val    yaml.Node `yaml:"val"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: assign", payload.Line)
		}
		if dto.Op == "" {
			dto.Op = "="
		}
		op, ok := assignOps[dto.Op]
		if !ok {
			return nil, errors.Errorf("line %d: unknown assignment operator %q", payload.Line, dto.Op)
		}
		target, err := fd.expr(&dto.Target)
		if err != nil {
			return nil, err
		}
		val, err := fd.expr(&dto.Val)
		if err != nil {
			return nil, err
		}
		return &ir.AssignNode{Op: op, Target: target, Val: val}, nil

	case "call", "invoke":
		return fd.expr(n)

	case "return":
		var dto struct {
			Val *yaml.Node `yaml:"val"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: return", payload.Line)
		}
		if dto.Val == nil {
			return &ir.ReturnNode{}, nil
		}
		val, err := fd.expr(dto.Val)
		if err != nil {
			return nil, err
		}
		return &ir.ReturnNode{Val: val}, nil

	case "if":
		var dto struct {
			Cond yaml.Node   `yaml:"cond"`
			Then []yaml.Node `yaml:"then"`
			Else []yaml.Node `yaml:"else"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: if", payload.Line)
		}
		cond, err := fd.expr(&dto.Cond)
		if err != nil {
			return nil, err
		}
		then, err := fd.stmts(dto.Then)
		if err != nil {
			return nil, err
		}
		els, err := fd.stmts(dto.Else)
		if err != nil {
			return nil, err
		}
		return &ir.ConditionNode{Cond: cond, True: then, False: els}, nil

	case "for":
		var dto struct {
			Cond yaml.Node   `yaml:"cond"`
			Do   []yaml.Node `yaml:"do"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: for", payload.Line)
		}
		cond, err := fd.expr(&dto.Cond)
		if err != nil {
			return nil, err
		}
		block, err := fd.stmts(dto.Do)
		if err != nil {
			return nil, err
		}
		return &ir.ForNode{Condition: cond, Block: block}, nil
	}

	return nil, errors.Errorf("line %d: unknown statement %q", n.Line, tag)
}

func (fd *funcDecoder) exprs(nodes []yaml.Node) ([]ir.Node, error) {
	var out []ir.Node
	for i := range nodes {
		e, err := fd.expr(&nodes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (fd *funcDecoder) expr(n *yaml.Node) (ir.Node, error) {
	// Bare scalars are shorthand: a name resolves as a variable, the
	// primitive literals as constants.
	if n.Kind == yaml.ScalarNode {
		return fd.scalar(n)
	}

	tag, payload, err := unionKey(n)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "var":
		return fd.varRef(payload.Value, payload.Line)

	case "num":
		var v int64
		if err := payload.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d: num", payload.Line)
		}
		return &ir.ConstantNode{Type: ir.NUMBER, Value: v}, nil

	case "float":
		var v float64
		if err := payload.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d: float", payload.Line)
		}
		return &ir.ConstantNode{Type: ir.FLOAT, ValueFloat: v}, nil

	case "str":
		return &ir.ConstantNode{Type: ir.STRING, ValueStr: payload.Value}, nil

	case "bool":
		var v bool
		if err := payload.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d: bool", payload.Line)
		}
		c := &ir.ConstantNode{Type: ir.BOOL}
		if v {
			c.Value = 1
		}
		return c, nil

	case "null":
		return &ir.ConstantNode{Type: ir.NULL}, nil

	case "new":
		typ, err := fd.parseType(payload.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: new", payload.Line)
		}
		return &ir.NewNode{Typ: typ}, nil

	case "struct":
		return fd.structLit(payload)

	case "call":
		var dto struct {
			Func string      `yaml:"func"`
			Args []yaml.Node `yaml:"args"`
			Ret  string      `yaml:"ret"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: call", payload.Line)
		}
		args, err := fd.exprs(dto.Args)
		if err != nil {
			return nil, err
		}
		ret := types.Type(types.Void)
		if sig, ok := fd.sigs[dto.Func]; ok {
			ret = sig.Ret
		}
		if dto.Ret != "" {
			// External callees have no in-module signature; the file
			// states their result type at the call site.
			if ret, err = fd.parseType(dto.Ret); err != nil {
				return nil, errors.Wrapf(err, "line %d: call %s", payload.Line, dto.Func)
			}
		}
		return &ir.CallNode{Function: dto.Func, Arguments: args, Ret: ret}, nil

	case "invoke":
		var dto struct {
			Target yaml.Node   `yaml:"target"`
			Args   []yaml.Node `yaml:"args"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: invoke", payload.Line)
		}
		target, err := fd.expr(&dto.Target)
		if err != nil {
			return nil, err
		}
		args, err := fd.exprs(dto.Args)
		if err != nil {
			return nil, err
		}
		return &ir.IndirectCallNode{Target: target, Arguments: args}, nil

	case "member":
		var dto struct {
			Of   yaml.Node `yaml:"of"`
			Name string    `yaml:"name"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: member", payload.Line)
		}
		of, err := fd.expr(&dto.Of)
		if err != nil {
			return nil, err
		}
		return &ir.LoadMemberNode{Target: of, Member: dto.Name}, nil

	case "index":
		var dto struct {
			Of yaml.Node `yaml:"of"`
			At yaml.Node `yaml:"at"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: index", payload.Line)
		}
		of, err := fd.expr(&dto.Of)
		if err != nil {
			return nil, err
		}
		at, err := fd.expr(&dto.At)
		if err != nil {
			return nil, err
		}
		return &ir.LoadIndexNode{Target: of, Index: at}, nil

	case "op":
		var dto struct {
			Op    string    `yaml:"op"`
			Left  yaml.Node `yaml:"left"`
			Right yaml.Node `yaml:"right"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: op", payload.Line)
		}
		op, ok := binaryOps[dto.Op]
		if !ok {
			return nil, errors.Errorf("line %d: unknown operator %q", payload.Line, dto.Op)
		}
		left, err := fd.expr(&dto.Left)
		if err != nil {
			return nil, err
		}
		right, err := fd.expr(&dto.Right)
		if err != nil {
			return nil, err
		}
		return &ir.OperatorNode{Operator: op, Left: left, Right: right}, nil

	case "cast":
		var dto struct {
			To  string    `yaml:"to"`
			Val yaml.Node `yaml:"val"`
		}
		if err := payload.Decode(&dto); err != nil {
			return nil, errors.Wrapf(err, "line %d: cast", payload.Line)
		}
		typ, err := fd.parseType(dto.To)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: cast", payload.Line)
		}
		val, err := fd.expr(&dto.Val)
		if err != nil {
			return nil, err
		}
		return &ir.TypeCastNode{Val: val, Typ: typ}, nil

	case "ref":
		item, err := fd.expr(payload)
		if err != nil {
			return nil, err
		}
		return &ir.GetReferenceNode{Item: item}, nil

	case "deref":
		item, err := fd.expr(payload)
		if err != nil {
			return nil, err
		}
		return &ir.DereferenceNode{Item: item}, nil

	case "byref":
		item, err := fd.expr(payload)
		if err != nil {
			return nil, err
		}
		return &ir.PassByRefNode{Item: item}, nil

	case "copy":
		val, err := fd.expr(payload)
		if err != nil {
			return nil, err
		}
		return &ir.CopyNode{Val: val}, nil

	case "lit":
		return fd.funcLit(payload)
	}

	return nil, errors.Errorf("line %d: unknown expression %q", n.Line, tag)
}

func (fd *funcDecoder) scalar(n *yaml.Node) (ir.Node, error) {
	switch n.Tag {
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		return &ir.ConstantNode{Type: ir.NUMBER, Value: v}, nil
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		return &ir.ConstantNode{Type: ir.FLOAT, ValueFloat: v}, nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		c := &ir.ConstantNode{Type: ir.BOOL}
		if v {
			c.Value = 1
		}
		return c, nil
	case "!!null":
		return &ir.ConstantNode{Type: ir.NULL}, nil
	case "!!str":
		return fd.varRef(n.Value, n.Line)
	}
	return nil, errors.Errorf("line %d: unexpected scalar %q", n.Line, n.Value)
}

func (fd *funcDecoder) varRef(name string, line int) (*ir.NameNode, error) {
	tmpl, ok := fd.vars[name]
	if !ok {
		return nil, errors.Errorf("line %d: unknown variable %q", line, name)
	}
	occ := *tmpl
	return &occ, nil
}

func (fd *funcDecoder) structLit(payload *yaml.Node) (ir.Node, error) {
	var dto struct {
		Type   string `yaml:"type"`
		Fields []struct {
			Name string    `yaml:"name"`
			Val  yaml.Node `yaml:"val"`
		} `yaml:"fields"`
	}
	if err := payload.Decode(&dto); err != nil {
		return nil, errors.Wrapf(err, "line %d: struct", payload.Line)
	}
	typ, err := fd.parseType(dto.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "line %d: struct", payload.Line)
	}
	st, ok := typ.(*types.Struct)
	if !ok {
		return nil, errors.Errorf("line %d: %s is not a struct", payload.Line, dto.Type)
	}
	lit := &ir.InitializeStructNode{Typ: st}
	for _, f := range dto.Fields {
		if st.FieldByName(f.Name) == nil {
			return nil, errors.Errorf("line %d: struct %s has no field %s", payload.Line, st.SourceName, f.Name)
		}
		val, err := fd.expr(&f.Val)
		if err != nil {
			return nil, err
		}
		lit.Fields = append(lit.Fields, &ir.FieldInitNode{Name: f.Name, Value: val})
	}
	return lit, nil
}

// funcLit decodes a nested function literal. The literal is a function
// instance of its own: fresh scope, fresh counts, summarized and
// rewritten independently of the enclosing body.
func (fd *funcDecoder) funcLit(payload *yaml.Node) (ir.Node, error) {
	var ff fileFunc
	if err := payload.Decode(&ff); err != nil {
		return nil, errors.Wrapf(err, "line %d: lit", payload.Line)
	}
	fd.lits++
	ff.Name = fmt.Sprintf("%s.func%d", fd.fn.Name, fd.lits)

	fn, err := fd.decoder.funcShell(ff)
	if err != nil {
		return nil, err
	}
	if err := fd.decoder.funcBody(fn, ff); err != nil {
		return nil, errors.Wrapf(err, "func %s", ff.Name)
	}
	return &ir.FuncLitNode{Func: fn}, nil
}

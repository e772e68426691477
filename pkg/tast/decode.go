package tast

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arclang/arcc/pkg/types"
)

// DecodeProgram reads a JSON-encoded typed tree, the artifact an
// out-of-scope front end would otherwise hand the Core in memory
// (SPEC_FULL.md §3's "JSON wire format").
func DecodeProgram(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("tast: decode program: %w", err)
	}
	return &p, nil
}

// exprSlot, stmtSlot, and typeSlot give the otherwise bare Expr/Stmt/
// types.Type interface fields scattered through this package's node
// structs an address to hang UnmarshalJSON on: encoding/json can only
// dispatch polymorphic decode through a method, and a bare interface
// field has nowhere to attach one.
type exprSlot struct{ Expr }
type stmtSlot struct{ Stmt }
type typeSlot struct{ types.Type }

func (s *exprSlot) UnmarshalJSON(data []byte) error {
	e, err := decodeExpr(data)
	if err != nil {
		return err
	}
	s.Expr = e
	return nil
}

func (s *stmtSlot) UnmarshalJSON(data []byte) error {
	st, err := decodeStmt(data)
	if err != nil {
		return err
	}
	s.Stmt = st
	return nil
}

func (s *typeSlot) UnmarshalJSON(data []byte) error {
	t, err := types.Decode(data)
	if err != nil {
		return err
	}
	s.Type = t
	return nil
}

func exprSlice(s []exprSlot) []Expr {
	out := make([]Expr, len(s))
	for i, e := range s {
		out[i] = e.Expr
	}
	return out
}

func stmtSlice(s []stmtSlot) []Stmt {
	out := make([]Stmt, len(s))
	for i, st := range s {
		out[i] = st.Stmt
	}
	return out
}

func kindOf(data []byte) (string, error) {
	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return "", err
	}
	if tag.Kind == "" {
		return "", fmt.Errorf("tast: node missing \"kind\" field")
	}
	return tag.Kind, nil
}

func decodeExpr(data []byte) (Expr, error) {
	kind, err := kindOf(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "int":
		var aux struct {
			Value int64    `json:"value"`
			Ty    typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return IntLit{Value: aux.Value, Ty: aux.Ty.Type}, nil
	case "bool":
		var aux struct {
			Value bool     `json:"value"`
			Ty    typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return BoolLit{Value: aux.Value, Ty: aux.Ty.Type}, nil
	case "str":
		var aux struct {
			Value string   `json:"value"`
			Ty    typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return StrLit{Value: aux.Value, Ty: aux.Ty.Type}, nil
	case "ident":
		var aux struct {
			Name string   `json:"name"`
			Ty   typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return Ident{Name: aux.Name, Ty: aux.Ty.Type}, nil
	case "field_access":
		var aux struct {
			Object exprSlot `json:"object"`
			Field  string   `json:"field"`
			Ty     typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return FieldAccess{Object: aux.Object.Expr, Field: aux.Field, Ty: aux.Ty.Type}, nil
	case "build_struct":
		var aux struct {
			StructName string `json:"struct_name"`
			Fields     []struct {
				Name  string   `json:"name"`
				Value exprSlot `json:"value"`
			} `json:"fields"`
			Ty typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		fields := make([]StructFieldInit, len(aux.Fields))
		for i, f := range aux.Fields {
			fields[i] = StructFieldInit{Name: f.Name, Value: f.Value.Expr}
		}
		return BuildStruct{StructName: aux.StructName, Fields: fields, Ty: aux.Ty.Type}, nil
	case "assign":
		var aux struct {
			Left  exprSlot `json:"left"`
			Right exprSlot `json:"right"`
			Ty    typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return Assign{Left: aux.Left.Expr, Right: aux.Right.Expr, Ty: aux.Ty.Type}, nil
	case "function":
		var aux struct {
			Name          string          `json:"name,omitempty"`
			Params        []Param         `json:"params"`
			GenericParams []string        `json:"generic_params,omitempty"`
			Body          json.RawMessage `json:"body"`
			RetTy         typeSlot        `json:"ret_type"`
			Ty            typeSlot        `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		body, err := decodeBlockExpr(aux.Body)
		if err != nil {
			return nil, err
		}
		return Function{
			Name:          aux.Name,
			Params:        aux.Params,
			GenericParams: aux.GenericParams,
			Body:          body,
			RetTy:         aux.RetTy.Type,
			Ty:            aux.Ty.Type,
		}, nil
	case "call":
		var aux struct {
			Func   exprSlot   `json:"func"`
			Args   []exprSlot `json:"args"`
			FuncTy types.Func `json:"func_type"`
			Ty     typeSlot   `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return Call{Func: aux.Func.Expr, Args: exprSlice(aux.Args), FuncTy: aux.FuncTy, Ty: aux.Ty.Type}, nil
	case "if":
		var aux struct {
			Condition   exprSlot  `json:"condition"`
			Consequence exprSlot  `json:"consequence"`
			Else        *exprSlot `json:"else,omitempty"`
			Ty          typeSlot  `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		var elseExpr Expr
		if aux.Else != nil {
			elseExpr = aux.Else.Expr
		}
		return If{Condition: aux.Condition.Expr, Consequence: aux.Consequence.Expr, Else: elseExpr, Ty: aux.Ty.Type}, nil
	case "infix":
		var aux struct {
			Op    InfixOp  `json:"op"`
			Left  exprSlot `json:"left"`
			Right exprSlot `json:"right"`
			Ty    typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return Infix{Op: aux.Op, Left: aux.Left.Expr, Right: aux.Right.Expr, Ty: aux.Ty.Type}, nil
	case "block_expr":
		return decodeBlockExprAsExpr(data)
	default:
		return nil, fmt.Errorf("tast: unknown expression kind %q", kind)
	}
}

func decodeBlockExprAsExpr(data []byte) (Expr, error) {
	b, err := decodeBlockExpr(data)
	if err != nil {
		return nil, err
	}
	return *b, nil
}

func decodeBlockExpr(data []byte) (*BlockExpr, error) {
	var aux struct {
		Statements []stmtSlot `json:"statements"`
		Ty         typeSlot   `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, err
	}
	return &BlockExpr{Statements: stmtSlice(aux.Statements), Ty: aux.Ty.Type}, nil
}

func decodeStmt(data []byte) (Stmt, error) {
	kind, err := kindOf(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "expr_stmt":
		var aux struct {
			Expr exprSlot `json:"expr"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return ExprStmt{Expr: aux.Expr.Expr}, nil
	case "let":
		var aux struct {
			Name  string   `json:"name"`
			Value exprSlot `json:"value"`
			Ty    typeSlot `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return LetStmt{Name: aux.Name, Value: aux.Value.Expr, Ty: aux.Ty.Type}, nil
	case "block_stmt":
		return decodeBlockStmt(data)
	case "while":
		var aux struct {
			Condition exprSlot        `json:"condition"`
			Body      json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		body, err := decodeBlockStmt(aux.Body)
		if err != nil {
			return nil, err
		}
		return WhileStmt{Condition: aux.Condition.Expr, Body: body}, nil
	case "struct":
		var aux struct {
			Ty types.Struct `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return StructStmt{Ty: aux.Ty}, nil
	case "extern":
		var aux struct {
			ABI        string     `json:"abi"`
			ExternName string     `json:"extern_name"`
			Alias      string     `json:"alias"`
			Ty         types.Func `json:"type"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return ExternStmt{ABI: aux.ABI, ExternName: aux.ExternName, Alias: aux.Alias, Ty: aux.Ty}, nil
	case "return":
		var aux struct {
			Expr exprSlot `json:"expr"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return ReturnStmt{Expr: aux.Expr.Expr}, nil
	case "impl":
		var aux struct {
			Impl  string          `json:"impl"`
			For   string          `json:"for,omitempty"`
			Block json.RawMessage `json:"block"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		block, err := decodeBlockStmt(aux.Block)
		if err != nil {
			return nil, err
		}
		return ImplStmt{Impl: aux.Impl, For: aux.For, Block: block}, nil
	default:
		return nil, fmt.Errorf("tast: unknown statement kind %q", kind)
	}
}

func decodeBlockStmt(data []byte) (*BlockStmt, error) {
	var aux struct {
		Statements []stmtSlot `json:"statements"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, err
	}
	return &BlockStmt{Statements: stmtSlice(aux.Statements)}, nil
}

// UnmarshalJSON on Program decodes the flat top-level statement list.
func (p *Program) UnmarshalJSON(data []byte) error {
	var aux struct {
		Statements []stmtSlot `json:"statements"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Statements = stmtSlice(aux.Statements)
	return nil
}

// UnmarshalJSON on Param decodes its types.Type-interface field via the
// same slot-proxy pattern.
func (p *Param) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name string   `json:"name"`
		Ty   typeSlot `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Name = aux.Name
	p.Ty = aux.Ty.Type
	return nil
}

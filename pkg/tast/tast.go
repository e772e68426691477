// Package tast defines the typed abstract syntax tree the Core consumes:
// one struct per expression/statement variant, each carrying its already
// resolved types.Type. Lexing, parsing, and type checking produce this
// tree in a complete toolchain; here it arrives as JSON (see decode.go)
// since that front end is out of scope.
//
// Grounded on original_source/ant_cranelift_compiler-master's
// TypedExpression/TypedStatement enums (src/compiler/compiler_impl.rs's
// match arms enumerate the exact variant set ported below) and on
// _examples/raymyers-ralph-cc-go/pkg/clight's node-with-embedded-type,
// implExpr/implStmt marker-method idiom.
package tast

import "github.com/arclang/arcc/pkg/types"

// Node is the base interface every tree node implements.
type Node interface {
	implNode()
}

// Expr is a typed expression: it always carries the type it evaluates to.
type Expr interface {
	Node
	implExpr()
	Type() types.Type
}

// Stmt is a typed statement. Statements in this language are themselves
// expression-valued (a Block yields its last statement's value), so Stmt
// does not carry a Type of its own; lowering derives one per spec.md §4.4.
type Stmt interface {
	Node
	implStmt()
}

// Program is the root of a typed tree: a flat sequence of top-level
// statements, exactly as TypedNode::Program carries in the reference.
type Program struct {
	Statements []Stmt `json:"statements"`
}

// --- Expressions ---

// IntLit is an integer literal.
type IntLit struct {
	Value int64     `json:"value"`
	Ty    types.Type `json:"type"`
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool      `json:"value"`
	Ty    types.Type `json:"type"`
}

// StrLit is a string literal; lowering interns it into the module's
// string pool (spec.md §3's String pool / §5's monotonic counter).
type StrLit struct {
	Value string    `json:"value"`
	Ty    types.Type `json:"type"`
}

// Ident is a reference to a named variable, resolved against the symbol
// table at lowering time.
type Ident struct {
	Name string    `json:"name"`
	Ty   types.Type `json:"type"`
}

// FieldAccess reads a named field off a struct-typed expression.
type FieldAccess struct {
	Object Expr      `json:"object"`
	Field  string    `json:"field"`
	Ty     types.Type `json:"type"`
}

// StructFieldInit is one `field: value` pair inside a BuildStruct.
type StructFieldInit struct {
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}

// BuildStruct constructs a new struct instance: heap-allocate per its
// layout, then store each field in declaration order.
type BuildStruct struct {
	StructName string            `json:"struct_name"`
	Fields     []StructFieldInit `json:"fields"`
	Ty         types.Type        `json:"type"`
}

// Assign writes through an lvalue, either a plain Ident or a FieldAccess.
// Any other Left shape is an InvalidLValue error at lowering time.
type Assign struct {
	Left  Expr      `json:"left"`
	Right Expr      `json:"right"`
	Ty    types.Type `json:"type"`
}

// Param is one parameter of a Function, possibly still carrying a
// Generic type before monomorphization substitutes it away.
type Param struct {
	Name string    `json:"name"`
	Ty   types.Type `json:"type"`
}

// Function is a function literal: a name (empty for an anonymous
// closure-like value, though this language has no capture-by-closure
// beyond the free-variable promotion the symbol table performs),
// parameters, an optional list of generic parameter names (non-empty
// marks it a template the Monomorphizer must specialize before
// lowering ever sees a call site), and a body Block.
type Function struct {
	Name          string     `json:"name,omitempty"`
	Params        []Param    `json:"params"`
	GenericParams []string   `json:"generic_params,omitempty"`
	Body          *BlockExpr `json:"body"`
	RetTy         types.Type `json:"ret_type"`
	Ty            types.Type `json:"type"`
}

// Call invokes a function value, direct (FuncTy known statically) or
// indirect. FuncTy is the statically resolved signature used to decide
// variadic-argument retain/release skipping (spec.md §4.5).
type Call struct {
	Func   Expr       `json:"func"`
	Args   []Expr     `json:"args"`
	FuncTy types.Func `json:"func_type"`
	Ty     types.Type `json:"type"`
}

// If is an if-expression. Else may be nil; lowering's missing-else
// behavior is documented in SPEC_FULL.md §4 (zero default of Ty).
type If struct {
	Condition   Expr       `json:"condition"`
	Consequence Expr       `json:"consequence"`
	Else        Expr       `json:"else,omitempty"`
	Ty          types.Type `json:"type"`
}

// InfixOp enumerates the binary operators the lowering engine and its
// constant-folding table understand.
type InfixOp int

const (
	Add InfixOp = iota
	Sub
	Mul
	Eq
	NotEq
	Div
	Gt
	Lt
)

func (op InfixOp) String() string {
	names := [...]string{"+", "-", "*", "==", "!=", "/", ">", "<"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Infix is a binary operation on two expressions of the same type.
type Infix struct {
	Op    InfixOp   `json:"op"`
	Left  Expr      `json:"left"`
	Right Expr      `json:"right"`
	Ty    types.Type `json:"type"`
}

// BlockExpr is a block used in expression position (e.g. a function
// body, an if-arm). It shares identical release-on-exit semantics with
// BlockStmt; kept as a distinct node only because Go doesn't let one
// struct implement both Expr and Stmt without ambiguity in the JSON
// decode path.
type BlockExpr struct {
	Statements []Stmt    `json:"statements"`
	Ty         types.Type `json:"type"`
}

func (IntLit) implNode()      {}
func (BoolLit) implNode()     {}
func (StrLit) implNode()      {}
func (Ident) implNode()       {}
func (FieldAccess) implNode() {}
func (BuildStruct) implNode() {}
func (Assign) implNode()      {}
func (Function) implNode()    {}
func (Call) implNode()        {}
func (If) implNode()          {}
func (Infix) implNode()       {}
func (BlockExpr) implNode()   {}

func (IntLit) implExpr()      {}
func (BoolLit) implExpr()     {}
func (StrLit) implExpr()      {}
func (Ident) implExpr()       {}
func (FieldAccess) implExpr() {}
func (BuildStruct) implExpr() {}
func (Assign) implExpr()      {}
func (Function) implExpr()    {}
func (Call) implExpr()        {}
func (If) implExpr()          {}
func (Infix) implExpr()       {}
func (BlockExpr) implExpr()   {}

func (e IntLit) Type() types.Type      { return e.Ty }
func (e BoolLit) Type() types.Type     { return e.Ty }
func (e StrLit) Type() types.Type      { return e.Ty }
func (e Ident) Type() types.Type       { return e.Ty }
func (e FieldAccess) Type() types.Type { return e.Ty }
func (e BuildStruct) Type() types.Type { return e.Ty }
func (e Assign) Type() types.Type      { return e.Ty }
func (e Function) Type() types.Type    { return e.Ty }
func (e Call) Type() types.Type        { return e.Ty }
func (e If) Type() types.Type          { return e.Ty }
func (e Infix) Type() types.Type       { return e.Ty }
func (e BlockExpr) Type() types.Type   { return e.Ty }

// --- Statements ---

// ExprStmt wraps an expression used in statement position, exactly as
// TypedStatement::ExpressionStatement does.
type ExprStmt struct {
	Expr Expr `json:"expr"`
}

// LetStmt declares and initializes a new local binding.
type LetStmt struct {
	Name  string    `json:"name"`
	Value Expr      `json:"value"`
	Ty    types.Type `json:"type"`
}

// BlockStmt is a block used in statement position (e.g. a while body).
type BlockStmt struct {
	Statements []Stmt `json:"statements"`
}

// WhileStmt is a pre-test loop.
type WhileStmt struct {
	Condition Expr  `json:"condition"`
	Body      *BlockStmt `json:"body"`
}

// StructStmt declares a struct type; Ty must be a types.Struct.
type StructStmt struct {
	Ty types.Struct `json:"type"`
}

// ExternStmt declares an imported C-ABI function and binds it to Alias
// in the current scope, exactly as the reference's Extern variant does.
type ExternStmt struct {
	ABI       string     `json:"abi"`
	ExternName string    `json:"extern_name"`
	Alias     string     `json:"alias"`
	Ty        types.Func `json:"type"`
}

// ReturnStmt returns a value from the enclosing function.
type ReturnStmt struct {
	Expr Expr `json:"expr"`
}

// ImplStmt attaches a block of methods to a struct type, rewriting each
// contained Function's name to "{Struct}__{method}" at lowering time
// exactly as the reference's Impl handler does.
type ImplStmt struct {
	Impl  string     `json:"impl"`
	For   string     `json:"for,omitempty"`
	Block *BlockStmt `json:"block"`
}

func (ExprStmt) implNode()   {}
func (LetStmt) implNode()    {}
func (BlockStmt) implNode()  {}
func (WhileStmt) implNode()  {}
func (StructStmt) implNode() {}
func (ExternStmt) implNode() {}
func (ReturnStmt) implNode() {}
func (ImplStmt) implNode()   {}

func (ExprStmt) implStmt()   {}
func (LetStmt) implStmt()    {}
func (BlockStmt) implStmt()  {}
func (WhileStmt) implStmt()  {}
func (StructStmt) implStmt() {}
func (ExternStmt) implStmt() {}
func (ReturnStmt) implStmt() {}
func (ImplStmt) implStmt()   {}

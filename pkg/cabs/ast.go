// Package cabs defines the syntax tree for the supported C99 subset.
//
// Every production is a distinct Go type behind one of the sealed interfaces
// Expr, Stmt and Definition, so consumers switch on the concrete node type
// instead of inspecting rule names or child counts.
package cabs

// Node is the base interface for all AST nodes
type Node interface {
	implCabsNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implCabsExpr()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	implCabsStmt()
}

// Definition is the interface for top-level definitions
type Definition interface {
	Node
	implDefinition()
}

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd // &&
	OpOr  // ||
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl // <<
	OpShr // >>
	OpAssign
)

var binaryOpNames = []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "||", "&", "|", "^", "<<", ">>", "="}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// UnaryOp represents prefix unary operators
type UnaryOp int

const (
	OpPlus   UnaryOp = iota // +
	OpNeg                   // -
	OpBitNot                // ~
	OpNot                   // !
	OpAddrOf                // &
	OpDeref                 // *
)

func (op UnaryOp) String() string {
	names := []string{"+", "-", "~", "!", "&", "*"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IntConst is an integer constant as written, suffix included (0x1Fu, 25UL).
type IntConst struct {
	Text string
}

// FloatConst is a floating constant as written (1.5, .5f, 1e-2L).
type FloatConst struct {
	Text string
}

// CharConst is a character constant; Text is the raw text between the quotes.
type CharConst struct {
	Text string
}

// Ident represents an identifier expression
type Ident struct {
	Name string
}

// Paren represents a parenthesized expression
type Paren struct {
	Expr Expr
}

// Unary represents a prefix unary expression
type Unary struct {
	Op   UnaryOp
	Expr Expr
}

// Binary represents a binary expression
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Assign represents plain (Op == OpAssign) and compound assignment.
type Assign struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// IncDec represents ++ and -- in prefix or postfix form.
type IncDec struct {
	Inc  bool
	Post bool
	Expr Expr
}

// Cast represents (type-name) expr
type Cast struct {
	Type TypeName
	Expr Expr
}

// Call represents a function call
type Call struct {
	Func Expr
	Args []Expr
}

// Index represents array subscript access: arr[idx]
type Index struct {
	Array Expr
	Index Expr
}

// Member represents s.f or p->f
type Member struct {
	Expr  Expr
	Name  string
	Arrow bool
}

// Conditional represents the ternary operator: cond ? then : else
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Comma represents left, right
type Comma struct {
	Left  Expr
	Right Expr
}

// TypeSpec is the specifier part of a declaration. Words holds the raw
// specifier and qualifier lexemes in source order; Struct is set for
// struct specifiers.
type TypeSpec struct {
	Words  []string
	Struct *StructSpec
}

// StructSpec is struct [tag] [{ fields }].
type StructSpec struct {
	Tag     string
	Fields  []Declaration
	HasBody bool
}

// Declarator names an entity and adds pointer, array and function
// derivations to its specifier type. A nil entry in Dims is an open
// dimension ([]).
type Declarator struct {
	Name     string
	Pointers int
	Dims     []Expr
	IsFunc   bool
	Params   []Param
}

// Param is one function parameter; Decl.Name may be empty in prototypes.
type Param struct {
	Spec TypeSpec
	Decl Declarator
}

// InitDeclarator is a declarator with an optional initializer.
type InitDeclarator struct {
	Decl Declarator
	Init Expr
}

// Declaration is spec declarator [= init], ...; at file or block scope.
type Declaration struct {
	Spec  TypeSpec
	Decls []InitDeclarator
}

// TypeName is the abstract declarator used by casts.
type TypeName struct {
	Spec     TypeSpec
	Pointers int
}

// Computation is an expression statement; Expr is nil for an empty statement.
type Computation struct {
	Expr Expr
}

// DeclStmt is a declaration in statement position
type DeclStmt struct {
	Decl Declaration
}

// If represents if (cond) then [else els]
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else
}

// While represents while (cond) body
type While struct {
	Cond Expr
	Body Stmt
}

// DoWhile represents do body while (cond);
type DoWhile struct {
	Body Stmt
	Cond Expr
}

// For represents for (init; cond; step) body. At most one of InitDecl and
// Init is set.
type For struct {
	InitDecl *Declaration
	Init     Expr
	Cond     Expr // nil means always true
	Step     Expr
	Body     Stmt
}

// Break represents a break statement
type Break struct{}

// Continue represents a continue statement
type Continue struct{}

// Return represents a return statement
type Return struct {
	Expr Expr // nil for bare return
}

// Block represents a compound statement (block)
type Block struct {
	Items []Stmt
}

// FunDef represents a function definition
type FunDef struct {
	Spec TypeSpec
	Decl Declarator
	Body *Block
}

// Program represents a complete translation unit
type Program struct {
	Definitions []Definition
}

func (IntConst) implCabsNode()    {}
func (FloatConst) implCabsNode()  {}
func (CharConst) implCabsNode()   {}
func (Ident) implCabsNode()       {}
func (Paren) implCabsNode()       {}
func (Unary) implCabsNode()       {}
func (Binary) implCabsNode()      {}
func (Assign) implCabsNode()      {}
func (IncDec) implCabsNode()      {}
func (Cast) implCabsNode()        {}
func (Call) implCabsNode()        {}
func (Index) implCabsNode()       {}
func (Member) implCabsNode()      {}
func (Conditional) implCabsNode() {}
func (Comma) implCabsNode()       {}
func (Computation) implCabsNode() {}
func (DeclStmt) implCabsNode()    {}
func (If) implCabsNode()          {}
func (While) implCabsNode()       {}
func (DoWhile) implCabsNode()     {}
func (For) implCabsNode()         {}
func (Break) implCabsNode()       {}
func (Continue) implCabsNode()    {}
func (Return) implCabsNode()      {}
func (Block) implCabsNode()       {}
func (FunDef) implCabsNode()      {}
func (Declaration) implCabsNode() {}

func (IntConst) implCabsExpr()    {}
func (FloatConst) implCabsExpr()  {}
func (CharConst) implCabsExpr()   {}
func (Ident) implCabsExpr()       {}
func (Paren) implCabsExpr()       {}
func (Unary) implCabsExpr()       {}
func (Binary) implCabsExpr()      {}
func (Assign) implCabsExpr()      {}
func (IncDec) implCabsExpr()      {}
func (Cast) implCabsExpr()        {}
func (Call) implCabsExpr()        {}
func (Index) implCabsExpr()       {}
func (Member) implCabsExpr()      {}
func (Conditional) implCabsExpr() {}
func (Comma) implCabsExpr()       {}

func (Computation) implCabsStmt() {}
func (DeclStmt) implCabsStmt()    {}
func (If) implCabsStmt()          {}
func (While) implCabsStmt()       {}
func (DoWhile) implCabsStmt()     {}
func (For) implCabsStmt()         {}
func (Break) implCabsStmt()       {}
func (Continue) implCabsStmt()    {}
func (Return) implCabsStmt()      {}
func (Block) implCabsStmt()       {}

func (FunDef) implDefinition()      {}
func (Declaration) implDefinition() {}

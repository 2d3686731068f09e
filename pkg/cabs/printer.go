package cabs

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the AST as C-like source
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog *Program) {
	for _, def := range prog.Definitions {
		p.printDefinition(def)
		fmt.Fprintln(p.w)
	}
}

// PrintExpr prints a single expression
func (p *Printer) PrintExpr(e Expr) {
	p.printExpr(e)
}

// ExprString formats e as C source, for diagnostics.
func ExprString(e Expr) string {
	var b strings.Builder
	NewPrinter(&b).PrintExpr(e)
	return b.String()
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printDefinition(def Definition) {
	switch d := def.(type) {
	case FunDef:
		p.printSpec(d.Spec)
		fmt.Fprint(p.w, " ")
		p.printDeclarator(d.Decl)
		fmt.Fprintln(p.w)
		p.printBlock(d.Body)
	case Declaration:
		p.printDeclaration(d)
		fmt.Fprintln(p.w, ";")
	default:
		fmt.Fprintf(p.w, "/* unknown definition %T */\n", def)
	}
}

func (p *Printer) printSpec(s TypeSpec) {
	fmt.Fprint(p.w, strings.Join(s.Words, " "))
	if s.Struct == nil {
		return
	}
	if len(s.Words) > 0 {
		fmt.Fprint(p.w, " ")
	}
	fmt.Fprint(p.w, "struct")
	if s.Struct.Tag != "" {
		fmt.Fprintf(p.w, " %s", s.Struct.Tag)
	}
	if !s.Struct.HasBody {
		return
	}
	fmt.Fprintln(p.w, " {")
	p.indent++
	for _, field := range s.Struct.Fields {
		p.writeIndent()
		p.printDeclaration(field)
		fmt.Fprintln(p.w, ";")
	}
	p.indent--
	p.writeIndent()
	fmt.Fprint(p.w, "}")
}

func (p *Printer) printDeclarator(d Declarator) {
	fmt.Fprint(p.w, strings.Repeat("*", d.Pointers))
	fmt.Fprint(p.w, d.Name)
	if d.IsFunc {
		fmt.Fprint(p.w, "(")
		for i, param := range d.Params {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.printSpec(param.Spec)
			if param.Decl.Name != "" || param.Decl.Pointers > 0 || len(param.Decl.Dims) > 0 {
				fmt.Fprint(p.w, " ")
				p.printDeclarator(param.Decl)
			}
		}
		fmt.Fprint(p.w, ")")
	}
	for _, dim := range d.Dims {
		fmt.Fprint(p.w, "[")
		if dim != nil {
			p.printExpr(dim)
		}
		fmt.Fprint(p.w, "]")
	}
}

func (p *Printer) printDeclaration(d Declaration) {
	p.printSpec(d.Spec)
	for i, id := range d.Decls {
		if i > 0 {
			fmt.Fprint(p.w, ",")
		}
		fmt.Fprint(p.w, " ")
		p.printDeclarator(id.Decl)
		if id.Init != nil {
			fmt.Fprint(p.w, " = ")
			p.printExpr(id.Init)
		}
	}
}

func (p *Printer) printBlock(b *Block) {
	p.writeIndent()
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, stmt := range b.Items {
		p.printStmt(stmt)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprintln(p.w, "}")
}

// printBody prints a loop or branch body one level deeper, except blocks
// which carry their own braces.
func (p *Printer) printBody(s Stmt) {
	if b, ok := s.(Block); ok {
		p.printBlock(&b)
		return
	}
	p.indent++
	p.printStmt(s)
	p.indent--
}

func (p *Printer) printStmt(stmt Stmt) {
	if b, ok := stmt.(Block); ok {
		p.printBlock(&b)
		return
	}
	p.writeIndent()
	switch s := stmt.(type) {
	case Return:
		fmt.Fprint(p.w, "return")
		if s.Expr != nil {
			fmt.Fprint(p.w, " ")
			p.printExpr(s.Expr)
		}
		fmt.Fprintln(p.w, ";")
	case Computation:
		if s.Expr != nil {
			p.printExpr(s.Expr)
		}
		fmt.Fprintln(p.w, ";")
	case DeclStmt:
		p.printDeclaration(s.Decl)
		fmt.Fprintln(p.w, ";")
	case If:
		fmt.Fprint(p.w, "if (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Then)
		if s.Else != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "else")
			p.printBody(s.Else)
		}
	case While:
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Body)
	case DoWhile:
		fmt.Fprintln(p.w, "do")
		p.printBody(s.Body)
		p.writeIndent()
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ");")
	case For:
		fmt.Fprint(p.w, "for (")
		if s.InitDecl != nil {
			p.printDeclaration(*s.InitDecl)
		} else if s.Init != nil {
			p.printExpr(s.Init)
		}
		fmt.Fprint(p.w, "; ")
		if s.Cond != nil {
			p.printExpr(s.Cond)
		}
		fmt.Fprint(p.w, "; ")
		if s.Step != nil {
			p.printExpr(s.Step)
		}
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Body)
	case Break:
		fmt.Fprintln(p.w, "break;")
	case Continue:
		fmt.Fprintln(p.w, "continue;")
	default:
		fmt.Fprintf(p.w, "/* unknown stmt %T */;\n", stmt)
	}
}

func (p *Printer) printExpr(expr Expr) {
	switch e := expr.(type) {
	case IntConst:
		fmt.Fprint(p.w, e.Text)
	case FloatConst:
		fmt.Fprint(p.w, e.Text)
	case CharConst:
		fmt.Fprintf(p.w, "'%s'", e.Text)
	case Ident:
		fmt.Fprint(p.w, e.Name)
	case Paren:
		fmt.Fprint(p.w, "(")
		p.printExpr(e.Expr)
		fmt.Fprint(p.w, ")")
	case Unary:
		fmt.Fprint(p.w, e.Op.String())
		p.printExpr(e.Expr)
	case Binary:
		p.printExpr(e.Left)
		fmt.Fprintf(p.w, " %s ", e.Op)
		p.printExpr(e.Right)
	case Assign:
		p.printExpr(e.Left)
		if e.Op == OpAssign {
			fmt.Fprint(p.w, " = ")
		} else {
			fmt.Fprintf(p.w, " %s= ", e.Op)
		}
		p.printExpr(e.Right)
	case IncDec:
		op := "--"
		if e.Inc {
			op = "++"
		}
		if e.Post {
			p.printExpr(e.Expr)
			fmt.Fprint(p.w, op)
		} else {
			fmt.Fprint(p.w, op)
			p.printExpr(e.Expr)
		}
	case Cast:
		fmt.Fprint(p.w, "(")
		p.printSpec(e.Type.Spec)
		if e.Type.Pointers > 0 {
			fmt.Fprint(p.w, " ", strings.Repeat("*", e.Type.Pointers))
		}
		fmt.Fprint(p.w, ")")
		p.printExpr(e.Expr)
	case Call:
		p.printExpr(e.Func)
		fmt.Fprint(p.w, "(")
		for i, arg := range e.Args {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.printExpr(arg)
		}
		fmt.Fprint(p.w, ")")
	case Index:
		p.printExpr(e.Array)
		fmt.Fprint(p.w, "[")
		p.printExpr(e.Index)
		fmt.Fprint(p.w, "]")
	case Member:
		p.printExpr(e.Expr)
		if e.Arrow {
			fmt.Fprint(p.w, "->")
		} else {
			fmt.Fprint(p.w, ".")
		}
		fmt.Fprint(p.w, e.Name)
	case Conditional:
		p.printExpr(e.Cond)
		fmt.Fprint(p.w, " ? ")
		p.printExpr(e.Then)
		fmt.Fprint(p.w, " : ")
		p.printExpr(e.Else)
	case Comma:
		p.printExpr(e.Left)
		fmt.Fprint(p.w, ", ")
		p.printExpr(e.Right)
	default:
		fmt.Fprintf(p.w, "/* unknown expr %T */", expr)
	}
}

// Package parser implements a recursive descent parser for the C99 subset
package parser

import (
	"fmt"

	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/lexer"
)

// Parser parses C source code into a Cabs AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

// ParseProgram parses a complete translation unit
func (p *Parser) ParseProgram() *cabs.Program {
	prog := &cabs.Program{}
	for !p.curTokenIs(lexer.TokenEOF) {
		before := p.curToken
		def := p.ParseDefinition()
		if def != nil {
			prog.Definitions = append(prog.Definitions, def)
		}
		if len(p.errors) > 0 && p.curToken == before {
			p.nextToken()
		}
	}
	return prog
}

// ParseDefinition parses a top-level function definition or declaration
func (p *Parser) ParseDefinition() cabs.Definition {
	if !isTypeStart(p.curToken.Type) {
		p.addError(fmt.Sprintf("expected type specifier, got %s", p.curToken.Type))
		return nil
	}
	spec := p.parseSpec()

	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return cabs.Declaration{Spec: spec}
	}

	decl := p.parseDeclarator(false)
	if decl.IsFunc && p.curTokenIs(lexer.TokenLBrace) {
		body := p.parseBlock()
		return cabs.FunDef{Spec: spec, Decl: decl, Body: body}
	}

	d := p.finishDeclaration(spec, decl)
	return d
}

// isTypeStart reports whether a token can begin a declaration
func isTypeStart(t lexer.TokenType) bool {
	switch t {
	case lexer.TokenStruct, lexer.TokenStatic, lexer.TokenExtern:
		return true
	}
	return t.IsTypeSpecifier() || t.IsQualifier()
}

// parseSpec collects specifier and qualifier words and an optional struct
// specifier.
func (p *Parser) parseSpec() cabs.TypeSpec {
	var spec cabs.TypeSpec
	for isTypeStart(p.curToken.Type) {
		if p.curTokenIs(lexer.TokenStruct) {
			if spec.Struct != nil {
				p.addError("multiple struct specifiers")
			}
			spec.Struct = p.parseStructSpec()
			continue
		}
		spec.Words = append(spec.Words, p.curToken.Literal)
		p.nextToken()
	}
	return spec
}

func (p *Parser) parseStructSpec() *cabs.StructSpec {
	p.nextToken() // consume 'struct'
	s := &cabs.StructSpec{}
	if p.curTokenIs(lexer.TokenIdent) {
		s.Tag = p.curToken.Literal
		p.nextToken()
	}
	if !p.curTokenIs(lexer.TokenLBrace) {
		if s.Tag == "" {
			p.addError("expected struct tag or '{'")
		}
		return s
	}
	p.nextToken() // consume '{'
	s.HasBody = true
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		if !isTypeStart(p.curToken.Type) {
			p.addError(fmt.Sprintf("expected field declaration, got %s", p.curToken.Type))
			p.nextToken()
			continue
		}
		spec := p.parseSpec()
		field := cabs.Declaration{Spec: spec}
		for {
			field.Decls = append(field.Decls, cabs.InitDeclarator{Decl: p.parseDeclarator(false)})
			if !p.curTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(lexer.TokenSemicolon)
		s.Fields = append(s.Fields, field)
	}
	p.expect(lexer.TokenRBrace)
	return s
}

// parseDeclarator parses pointers, the name, a parameter list and array
// dimensions. Abstract declarators (no name) are accepted for parameters.
func (p *Parser) parseDeclarator(abstract bool) cabs.Declarator {
	var d cabs.Declarator
	for p.curTokenIs(lexer.TokenStar) {
		d.Pointers++
		p.nextToken()
		for p.curToken.Type.IsQualifier() {
			p.nextToken()
		}
	}
	if p.curTokenIs(lexer.TokenIdent) {
		d.Name = p.curToken.Literal
		p.nextToken()
	} else if !abstract {
		p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
		return d
	}
	if p.curTokenIs(lexer.TokenLParen) {
		d.IsFunc = true
		d.Params = p.parseParams()
	}
	for p.curTokenIs(lexer.TokenLBracket) {
		p.nextToken()
		var dim cabs.Expr
		if !p.curTokenIs(lexer.TokenRBracket) {
			dim = p.parseAssignment()
		}
		p.expect(lexer.TokenRBracket)
		d.Dims = append(d.Dims, dim)
	}
	return d
}

func (p *Parser) parseParams() []cabs.Param {
	p.nextToken() // consume '('
	var params []cabs.Param
	if p.curTokenIs(lexer.TokenVoid) && p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
	}
	for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
		if !isTypeStart(p.curToken.Type) {
			p.addError(fmt.Sprintf("expected parameter type, got %s", p.curToken.Type))
			break
		}
		spec := p.parseSpec()
		params = append(params, cabs.Param{Spec: spec, Decl: p.parseDeclarator(true)})
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	return params
}

// finishDeclaration parses the rest of an init-declarator list after its
// first declarator, through the terminating semicolon.
func (p *Parser) finishDeclaration(spec cabs.TypeSpec, first cabs.Declarator) cabs.Declaration {
	d := cabs.Declaration{Spec: spec}
	decl := first
	for {
		id := cabs.InitDeclarator{Decl: decl}
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			id.Init = p.parseAssignment()
		}
		d.Decls = append(d.Decls, id)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		decl = p.parseDeclarator(false)
	}
	p.expect(lexer.TokenSemicolon)
	return d
}

func (p *Parser) parseDeclaration() cabs.Declaration {
	spec := p.parseSpec()
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return cabs.Declaration{Spec: spec}
	}
	return p.finishDeclaration(spec, p.parseDeclarator(false))
}

func (p *Parser) parseBlock() *cabs.Block {
	block := &cabs.Block{Items: []cabs.Stmt{}}

	p.nextToken() // consume '{'

	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		before := p.curToken
		stmt := p.parseStatement()
		if stmt != nil {
			block.Items = append(block.Items, stmt)
		}
		if p.curToken == before {
			p.nextToken()
		}
	}

	p.expect(lexer.TokenRBrace)

	return block
}

func (p *Parser) parseStatement() cabs.Stmt {
	switch p.curToken.Type {
	case lexer.TokenLBrace:
		return *p.parseBlock()
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	case lexer.TokenIf:
		return p.parseIfStatement()
	case lexer.TokenWhile:
		return p.parseWhileStatement()
	case lexer.TokenDo:
		return p.parseDoWhileStatement()
	case lexer.TokenFor:
		return p.parseForStatement()
	case lexer.TokenBreak:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return cabs.Break{}
	case lexer.TokenContinue:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return cabs.Continue{}
	case lexer.TokenSemicolon:
		p.nextToken()
		return cabs.Computation{}
	case lexer.TokenSwitch, lexer.TokenGoto, lexer.TokenTypedef, lexer.TokenUnion, lexer.TokenEnum:
		p.addError(fmt.Sprintf("unsupported construct: %s", p.curToken.Literal))
		p.nextToken()
		return nil
	}
	if isTypeStart(p.curToken.Type) {
		return cabs.DeclStmt{Decl: p.parseDeclaration()}
	}
	expr := p.parseExpression()
	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return cabs.Computation{Expr: expr}
}

func (p *Parser) parseReturnStatement() cabs.Stmt {
	p.nextToken() // consume 'return'

	var expr cabs.Expr
	if !p.curTokenIs(lexer.TokenSemicolon) {
		expr = p.parseExpression()
	}

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}

	return cabs.Return{Expr: expr}
}

func (p *Parser) parseCondition() cabs.Expr {
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	p.expect(lexer.TokenRParen)
	return cond
}

func (p *Parser) parseIfStatement() cabs.Stmt {
	p.nextToken() // consume 'if'
	s := cabs.If{Cond: p.parseCondition()}
	s.Then = p.parseStatement()
	if p.curTokenIs(lexer.TokenElse) {
		p.nextToken()
		s.Else = p.parseStatement()
	}
	return s
}

func (p *Parser) parseWhileStatement() cabs.Stmt {
	p.nextToken() // consume 'while'
	cond := p.parseCondition()
	return cabs.While{Cond: cond, Body: p.parseStatement()}
}

func (p *Parser) parseDoWhileStatement() cabs.Stmt {
	p.nextToken() // consume 'do'
	body := p.parseStatement()
	if !p.expect(lexer.TokenWhile) {
		return nil
	}
	cond := p.parseCondition()
	p.expect(lexer.TokenSemicolon)
	return cabs.DoWhile{Body: body, Cond: cond}
}

func (p *Parser) parseForStatement() cabs.Stmt {
	p.nextToken() // consume 'for'
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	var s cabs.For
	switch {
	case isTypeStart(p.curToken.Type):
		decl := p.parseDeclaration()
		s.InitDecl = &decl
	case p.curTokenIs(lexer.TokenSemicolon):
		p.nextToken()
	default:
		s.Init = p.parseExpression()
		p.expect(lexer.TokenSemicolon)
	}
	if !p.curTokenIs(lexer.TokenSemicolon) {
		s.Cond = p.parseExpression()
	}
	p.expect(lexer.TokenSemicolon)
	if !p.curTokenIs(lexer.TokenRParen) {
		s.Step = p.parseExpression()
	}
	p.expect(lexer.TokenRParen)
	s.Body = p.parseStatement()
	return s
}

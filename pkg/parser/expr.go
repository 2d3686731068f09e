package parser

import (
	"fmt"

	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/lexer"
)

// Binary operator precedences, loosest first.
const (
	precLowest = iota
	precLogOr
	precLogAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
)

var binaryOps = map[lexer.TokenType]struct {
	op   cabs.BinaryOp
	prec int
}{
	lexer.TokenOr:        {cabs.OpOr, precLogOr},
	lexer.TokenAnd:       {cabs.OpAnd, precLogAnd},
	lexer.TokenPipe:      {cabs.OpBitOr, precBitOr},
	lexer.TokenCaret:     {cabs.OpBitXor, precBitXor},
	lexer.TokenAmpersand: {cabs.OpBitAnd, precBitAnd},
	lexer.TokenEq:        {cabs.OpEq, precEquality},
	lexer.TokenNe:        {cabs.OpNe, precEquality},
	lexer.TokenLt:        {cabs.OpLt, precRelational},
	lexer.TokenLe:        {cabs.OpLe, precRelational},
	lexer.TokenGt:        {cabs.OpGt, precRelational},
	lexer.TokenGe:        {cabs.OpGe, precRelational},
	lexer.TokenShl:       {cabs.OpShl, precShift},
	lexer.TokenShr:       {cabs.OpShr, precShift},
	lexer.TokenPlus:      {cabs.OpAdd, precAdditive},
	lexer.TokenMinus:     {cabs.OpSub, precAdditive},
	lexer.TokenStar:      {cabs.OpMul, precMultiplicative},
	lexer.TokenSlash:     {cabs.OpDiv, precMultiplicative},
	lexer.TokenPercent:   {cabs.OpMod, precMultiplicative},
}

var assignOps = map[lexer.TokenType]cabs.BinaryOp{
	lexer.TokenAssign:        cabs.OpAssign,
	lexer.TokenPlusAssign:    cabs.OpAdd,
	lexer.TokenMinusAssign:   cabs.OpSub,
	lexer.TokenStarAssign:    cabs.OpMul,
	lexer.TokenSlashAssign:   cabs.OpDiv,
	lexer.TokenPercentAssign: cabs.OpMod,
	lexer.TokenAndAssign:     cabs.OpBitAnd,
	lexer.TokenOrAssign:      cabs.OpBitOr,
	lexer.TokenXorAssign:     cabs.OpBitXor,
	lexer.TokenShlAssign:     cabs.OpShl,
	lexer.TokenShrAssign:     cabs.OpShr,
}

var unaryOps = map[lexer.TokenType]cabs.UnaryOp{
	lexer.TokenPlus:      cabs.OpPlus,
	lexer.TokenMinus:     cabs.OpNeg,
	lexer.TokenTilde:     cabs.OpBitNot,
	lexer.TokenNot:       cabs.OpNot,
	lexer.TokenAmpersand: cabs.OpAddrOf,
	lexer.TokenStar:      cabs.OpDeref,
}

// parseExpression parses a full expression including the comma operator
func (p *Parser) parseExpression() cabs.Expr {
	left := p.parseAssignment()
	for p.curTokenIs(lexer.TokenComma) {
		p.nextToken()
		left = cabs.Comma{Left: left, Right: p.parseAssignment()}
	}
	return left
}

// parseAssignment parses an assignment expression (right associative)
func (p *Parser) parseAssignment() cabs.Expr {
	left := p.parseConditional()
	if op, ok := assignOps[p.curToken.Type]; ok {
		p.nextToken()
		return cabs.Assign{Op: op, Left: left, Right: p.parseAssignment()}
	}
	return left
}

func (p *Parser) parseConditional() cabs.Expr {
	cond := p.parseBinary(precLogOr)
	if !p.curTokenIs(lexer.TokenQuestion) {
		return cond
	}
	p.nextToken()
	then := p.parseExpression()
	p.expect(lexer.TokenColon)
	return cabs.Conditional{Cond: cond, Then: then, Else: p.parseConditional()}
}

// parseBinary implements precedence climbing for left-associative operators
// binding at least as tightly as minPrec.
func (p *Parser) parseBinary(minPrec int) cabs.Expr {
	left := p.parseUnary()
	for {
		info, ok := binaryOps[p.curToken.Type]
		if !ok || info.prec < minPrec {
			return left
		}
		p.nextToken()
		right := p.parseBinary(info.prec + 1)
		left = cabs.Binary{Op: info.op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() cabs.Expr {
	switch p.curToken.Type {
	case lexer.TokenIncrement, lexer.TokenDecrement:
		inc := p.curTokenIs(lexer.TokenIncrement)
		p.nextToken()
		return cabs.IncDec{Inc: inc, Expr: p.parseUnary()}
	case lexer.TokenLParen:
		if isTypeStart(p.peekToken.Type) {
			return p.parseCast()
		}
	case lexer.TokenSizeof:
		p.addError("sizeof is not supported")
		p.nextToken()
		return nil
	}
	if op, ok := unaryOps[p.curToken.Type]; ok {
		p.nextToken()
		return cabs.Unary{Op: op, Expr: p.parseUnary()}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parseCast() cabs.Expr {
	p.nextToken() // consume '('
	tn := cabs.TypeName{Spec: p.parseSpec()}
	for p.curTokenIs(lexer.TokenStar) {
		tn.Pointers++
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	return cabs.Cast{Type: tn, Expr: p.parseUnary()}
}

func (p *Parser) parsePostfix(expr cabs.Expr) cabs.Expr {
	for {
		switch p.curToken.Type {
		case lexer.TokenLBracket:
			p.nextToken()
			idx := p.parseExpression()
			p.expect(lexer.TokenRBracket)
			expr = cabs.Index{Array: expr, Index: idx}
		case lexer.TokenLParen:
			expr = cabs.Call{Func: expr, Args: p.parseArgs()}
		case lexer.TokenDot, lexer.TokenArrow:
			arrow := p.curTokenIs(lexer.TokenArrow)
			p.nextToken()
			if !p.curTokenIs(lexer.TokenIdent) {
				p.addError(fmt.Sprintf("expected field name, got %s", p.curToken.Type))
				return expr
			}
			expr = cabs.Member{Expr: expr, Name: p.curToken.Literal, Arrow: arrow}
			p.nextToken()
		case lexer.TokenIncrement, lexer.TokenDecrement:
			inc := p.curTokenIs(lexer.TokenIncrement)
			p.nextToken()
			expr = cabs.IncDec{Inc: inc, Post: true, Expr: expr}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []cabs.Expr {
	p.nextToken() // consume '('
	var args []cabs.Expr
	for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
		args = append(args, p.parseAssignment())
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	return args
}

func (p *Parser) parsePrimary() cabs.Expr {
	tok := p.curToken
	switch tok.Type {
	case lexer.TokenIdent:
		p.nextToken()
		return cabs.Ident{Name: tok.Literal}
	case lexer.TokenInt:
		p.nextToken()
		return cabs.IntConst{Text: tok.Literal}
	case lexer.TokenFloatLit:
		p.nextToken()
		return cabs.FloatConst{Text: tok.Literal}
	case lexer.TokenCharLit:
		p.nextToken()
		return cabs.CharConst{Text: tok.Literal}
	case lexer.TokenLParen:
		p.nextToken()
		inner := p.parseExpression()
		p.expect(lexer.TokenRParen)
		return cabs.Paren{Expr: inner}
	}
	p.addError(fmt.Sprintf("expected expression, got %s", tok.Type))
	return nil
}

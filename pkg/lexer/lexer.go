package lexer

import (
	"unicode"
)

// Lexer tokenizes C source code
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekCharAt(n int) byte {
	if l.readPos+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	l.skipComments()
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		tok.Literal = ""
	case '+':
		tok = l.either(tok, '+', TokenIncrement, '=', TokenPlusAssign, TokenPlus)
	case '-':
		switch l.peekChar() {
		case '>':
			tok = l.twoChar(tok, TokenArrow)
		case '-':
			tok = l.twoChar(tok, TokenDecrement)
		case '=':
			tok = l.twoChar(tok, TokenMinusAssign)
		default:
			tok = l.newToken(TokenMinus, l.ch)
		}
	case '*':
		tok = l.withAssign(tok, TokenStarAssign, TokenStar)
	case '/':
		tok = l.withAssign(tok, TokenSlashAssign, TokenSlash)
	case '%':
		tok = l.withAssign(tok, TokenPercentAssign, TokenPercent)
	case '=':
		tok = l.withAssign(tok, TokenEq, TokenAssign)
	case '!':
		tok = l.withAssign(tok, TokenNe, TokenNot)
	case '<':
		if l.peekChar() == '<' {
			if l.peekCharAt(1) == '=' {
				tok = l.threeChar(tok, TokenShlAssign)
			} else {
				tok = l.twoChar(tok, TokenShl)
			}
		} else {
			tok = l.withAssign(tok, TokenLe, TokenLt)
		}
	case '>':
		if l.peekChar() == '>' {
			if l.peekCharAt(1) == '=' {
				tok = l.threeChar(tok, TokenShrAssign)
			} else {
				tok = l.twoChar(tok, TokenShr)
			}
		} else {
			tok = l.withAssign(tok, TokenGe, TokenGt)
		}
	case '&':
		tok = l.either(tok, '&', TokenAnd, '=', TokenAndAssign, TokenAmpersand)
	case '|':
		tok = l.either(tok, '|', TokenOr, '=', TokenOrAssign, TokenPipe)
	case '^':
		tok = l.withAssign(tok, TokenXorAssign, TokenCaret)
	case '~':
		tok = l.newToken(TokenTilde, l.ch)
	case '?':
		tok = l.newToken(TokenQuestion, l.ch)
	case ':':
		tok = l.newToken(TokenColon, l.ch)
	case '(':
		tok = l.newToken(TokenLParen, l.ch)
	case ')':
		tok = l.newToken(TokenRParen, l.ch)
	case '{':
		tok = l.newToken(TokenLBrace, l.ch)
	case '}':
		tok = l.newToken(TokenRBrace, l.ch)
	case '[':
		tok = l.newToken(TokenLBracket, l.ch)
	case ']':
		tok = l.newToken(TokenRBracket, l.ch)
	case ';':
		tok = l.newToken(TokenSemicolon, l.ch)
	case ',':
		tok = l.newToken(TokenComma, l.ch)
	case '.':
		if isDigit(l.peekChar()) {
			tok.Type, tok.Literal = l.readNumber()
			return tok
		}
		tok = l.newToken(TokenDot, l.ch)
	case '"':
		tok.Type = TokenString
		tok.Literal = l.readString()
		return tok
	case '\'':
		tok.Type = TokenCharLit
		tok.Literal = l.readCharLiteral()
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Type, tok.Literal = l.readNumber()
			return tok
		} else {
			tok = l.newToken(TokenIllegal, l.ch)
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType TokenType, ch byte) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

// twoChar consumes the current character and leaves the second one as the
// current character; NextToken's trailing readChar consumes it.
func (l *Lexer) twoChar(tok Token, t TokenType) Token {
	start := l.pos
	l.readChar()
	tok.Type = t
	tok.Literal = l.input[start : l.pos+1]
	return tok
}

func (l *Lexer) threeChar(tok Token, t TokenType) Token {
	start := l.pos
	l.readChar()
	l.readChar()
	tok.Type = t
	tok.Literal = l.input[start : l.pos+1]
	return tok
}

// withAssign lexes "op=" as assigned, otherwise a single-character plain token.
func (l *Lexer) withAssign(tok Token, assigned, plain TokenType) Token {
	if l.peekChar() == '=' {
		return l.twoChar(tok, assigned)
	}
	return l.newToken(plain, l.ch)
}

func (l *Lexer) either(tok Token, a byte, ta TokenType, b byte, tb TokenType, plain TokenType) Token {
	switch l.peekChar() {
	case a:
		return l.twoChar(tok, ta)
	case b:
		return l.twoChar(tok, tb)
	}
	return l.newToken(plain, l.ch)
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' {
		l.readChar()
	}
}

func (l *Lexer) skipComments() {
	for l.ch == '/' {
		if l.peekChar() == '/' {
			// Single-line comment
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			l.skipWhitespace()
		} else if l.peekChar() == '*' {
			// Multi-line comment
			l.readChar() // consume /
			l.readChar() // consume *
			for {
				if l.ch == 0 {
					break
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
			l.skipWhitespace()
		} else {
			break
		}
	}
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber reads an integer or floating constant including its suffix.
// Suffix validation is left to the consumer of the literal.
func (l *Lexer) readNumber() (TokenType, string) {
	pos := l.pos
	typ := TokenInt

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			typ = TokenFloatLit
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			typ = TokenFloatLit
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	for isLetter(l.ch) {
		l.readChar()
	}
	return typ, l.input[pos:l.pos]
}

func (l *Lexer) readString() string {
	l.readChar() // consume opening quote
	pos := l.pos
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar() // skip escape char
		}
		l.readChar()
	}
	str := l.input[pos:l.pos]
	l.readChar() // consume closing quote
	return str
}

// readCharLiteral returns the raw text between the quotes, escapes included.
func (l *Lexer) readCharLiteral() string {
	l.readChar() // consume opening quote
	pos := l.pos
	for l.ch != '\'' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	str := l.input[pos:l.pos]
	l.readChar() // consume closing quote
	return str
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

package lexer

import "testing"

type expectedToken struct {
	expectedType    TokenType
	expectedLiteral string
}

func checkTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken(t *testing.T) {
	input := `int add(int a, int b) { return a + b; }`

	checkTokens(t, input, []expectedToken{
		{TokenInt_, "int"},
		{TokenIdent, "add"},
		{TokenLParen, "("},
		{TokenInt_, "int"},
		{TokenIdent, "a"},
		{TokenComma, ","},
		{TokenInt_, "int"},
		{TokenIdent, "b"},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenReturn, "return"},
		{TokenIdent, "a"},
		{TokenPlus, "+"},
		{TokenIdent, "b"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	})
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! & | ^ ~ ? :`

	checkTokens(t, input, []expectedToken{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenNot, "!"},
		{TokenAmpersand, "&"},
		{TokenPipe, "|"},
		{TokenCaret, "^"},
		{TokenTilde, "~"},
		{TokenQuestion, "?"},
		{TokenColon, ":"},
		{TokenEOF, ""},
	})
}

func TestCompoundOperators(t *testing.T) {
	input := `+= -= *= /= %= &= |= ^= <<= >>= << >> ++ -- -> a.b`

	checkTokens(t, input, []expectedToken{
		{TokenPlusAssign, "+="},
		{TokenMinusAssign, "-="},
		{TokenStarAssign, "*="},
		{TokenSlashAssign, "/="},
		{TokenPercentAssign, "%="},
		{TokenAndAssign, "&="},
		{TokenOrAssign, "|="},
		{TokenXorAssign, "^="},
		{TokenShlAssign, "<<="},
		{TokenShrAssign, ">>="},
		{TokenShl, "<<"},
		{TokenShr, ">>"},
		{TokenIncrement, "++"},
		{TokenDecrement, "--"},
		{TokenArrow, "->"},
		{TokenIdent, "a"},
		{TokenDot, "."},
		{TokenIdent, "b"},
		{TokenEOF, ""},
	})
}

func TestNumbers(t *testing.T) {
	input := `25 25UL 0x1Fu 017 1.2 1.2f .1L 1. 1e2 1.2e-2F 'a' '\n'`

	checkTokens(t, input, []expectedToken{
		{TokenInt, "25"},
		{TokenInt, "25UL"},
		{TokenInt, "0x1Fu"},
		{TokenInt, "017"},
		{TokenFloatLit, "1.2"},
		{TokenFloatLit, "1.2f"},
		{TokenFloatLit, ".1L"},
		{TokenFloatLit, "1."},
		{TokenFloatLit, "1e2"},
		{TokenFloatLit, "1.2e-2F"},
		{TokenCharLit, "a"},
		{TokenCharLit, `\n`},
		{TokenEOF, ""},
	})
}

func TestTypeKeywords(t *testing.T) {
	input := `_Bool char short int long float double signed unsigned void struct const`

	checkTokens(t, input, []expectedToken{
		{TokenBool, "_Bool"},
		{TokenChar, "char"},
		{TokenShort, "short"},
		{TokenInt_, "int"},
		{TokenLong, "long"},
		{TokenFloat, "float"},
		{TokenDouble, "double"},
		{TokenSigned, "signed"},
		{TokenUnsigned, "unsigned"},
		{TokenVoid, "void"},
		{TokenStruct, "struct"},
		{TokenConst, "const"},
		{TokenEOF, ""},
	})

	if !TokenBool.IsTypeSpecifier() || TokenStruct.IsTypeSpecifier() {
		t.Error("IsTypeSpecifier misclassifies _Bool or struct")
	}
	if !TokenConst.IsQualifier() || TokenInt_.IsQualifier() {
		t.Error("IsQualifier misclassifies const or int")
	}
}

func TestComments(t *testing.T) {
	input := `int // comment
main /* block
comment */ ()`

	checkTokens(t, input, []expectedToken{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	})
}

func TestLineTracking(t *testing.T) {
	l := New("int\n  x;")
	l.NextToken()
	tok := l.NextToken()
	if tok.Line != 2 {
		t.Errorf("line = %d, want 2", tok.Line)
	}
	if tok.Literal != "x" {
		t.Errorf("literal = %q, want %q", tok.Literal, "x")
	}
}

package ctypes

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/raymyers/epycc/pkg/cabs"
)

// ParseIntConst parses an integer constant with optional u/l/ll suffix and
// picks its type by the C99 6.4.4.1 candidate lists.
func ParseIntConst(text string) (uint64, Type, error) {
	body := strings.TrimRight(text, "uUlL")
	suffix := strings.ToLower(text[len(body):])

	var unsigned bool
	longs := 0
	switch suffix {
	case "":
	case "u":
		unsigned = true
	case "l":
		longs = 1
	case "ll":
		longs = 2
	case "ul", "lu":
		unsigned, longs = true, 1
	case "ull", "llu":
		unsigned, longs = true, 2
	default:
		return 0, nil, fmt.Errorf("invalid integer suffix in %q", text)
	}
	if suffix == "ll" || suffix == "ull" || suffix == "llu" {
		// "lL" and "Ll" are not valid spellings of ll.
		raw := text[len(body):]
		if strings.Contains(raw, "lL") || strings.Contains(raw, "Ll") {
			return 0, nil, fmt.Errorf("invalid integer suffix in %q", text)
		}
	}

	v, err := strconv.ParseUint(body, 0, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid integer constant %q: %w", text, err)
	}
	decimal := !strings.HasPrefix(body, "0") || body == "0"

	var candidates []Kind
	switch {
	case !unsigned && longs == 0 && decimal:
		candidates = []Kind{Int, Long, LongLong}
	case !unsigned && longs == 0:
		candidates = []Kind{Int, UInt, Long, ULong, LongLong, ULongLong}
	case unsigned && longs == 0:
		candidates = []Kind{UInt, ULong, ULongLong}
	case !unsigned && longs == 1 && decimal:
		candidates = []Kind{Long, LongLong}
	case !unsigned && longs == 1:
		candidates = []Kind{Long, ULong, LongLong, ULongLong}
	case unsigned && longs == 1:
		candidates = []Kind{ULong, ULongLong}
	case !unsigned && longs == 2 && decimal:
		candidates = []Kind{LongLong}
	case !unsigned && longs == 2:
		candidates = []Kind{LongLong, ULongLong}
	default:
		candidates = []Kind{ULongLong}
	}
	for _, k := range candidates {
		if v <= maxValue(k) {
			return v, Scalar(k), nil
		}
	}
	return 0, nil, fmt.Errorf("integer constant %q is too large", text)
}

func maxValue(k Kind) uint64 {
	bits := k.Bits()
	if k.Sign() == Signed {
		return 1<<(bits-1) - 1
	}
	if bits == 64 {
		return math.MaxUint64
	}
	return 1<<bits - 1
}

// ParseFloatConst parses a floating constant; suffix f selects float, l
// selects long double, no suffix is double.
func ParseFloatConst(text string) (float64, Type, error) {
	k := Double
	body := text
	switch text[len(text)-1] {
	case 'f', 'F':
		k, body = Float, text[:len(text)-1]
	case 'l', 'L':
		k, body = LongDouble, text[:len(text)-1]
	}
	v, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid floating constant %q: %w", text, err)
	}
	if k == Float {
		v = float64(float32(v))
	}
	return v, Scalar(k), nil
}

var simpleEscapes = map[byte]int64{
	'n': '\n', 't': '\t', 'r': '\r', '0': 0, 'a': '\a', 'b': '\b',
	'f': '\f', 'v': '\v', '\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

// CharValue returns the int value of a character constant given the raw
// text between its quotes. Plain char is signed, so '\xff' is -1.
func CharValue(text string) (int64, error) {
	if text == "" {
		return 0, fmt.Errorf("empty character constant")
	}
	if text[0] != '\\' {
		if len(text) != 1 {
			return 0, fmt.Errorf("multi-character constant '%s'", text)
		}
		return int64(int8(text[0])), nil
	}
	rest := text[1:]
	if len(rest) == 1 {
		if v, ok := simpleEscapes[rest[0]]; ok {
			return v, nil
		}
	}
	var v uint64
	var err error
	switch {
	case strings.HasPrefix(rest, "x"):
		v, err = strconv.ParseUint(rest[1:], 16, 8)
	case len(rest) > 0 && rest[0] >= '0' && rest[0] <= '7':
		v, err = strconv.ParseUint(rest, 8, 8)
	default:
		err = fmt.Errorf("unknown escape")
	}
	if err != nil {
		return 0, fmt.Errorf("invalid character constant '%s': %w", text, err)
	}
	return int64(int8(v)), nil
}

// EvalConst folds an integer constant expression. It reports false when the
// expression depends on run-time values or is not an integer expression.
func EvalConst(e cabs.Expr) (int64, bool) {
	switch e := e.(type) {
	case cabs.IntConst:
		v, _, err := ParseIntConst(e.Text)
		return int64(v), err == nil
	case cabs.CharConst:
		v, err := CharValue(e.Text)
		return v, err == nil
	case cabs.Paren:
		return EvalConst(e.Expr)
	case cabs.Unary:
		v, ok := EvalConst(e.Expr)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case cabs.OpPlus:
			return v, true
		case cabs.OpNeg:
			return -v, true
		case cabs.OpBitNot:
			return ^v, true
		case cabs.OpNot:
			return boolInt(v == 0), true
		}
	case cabs.Binary:
		l, ok := EvalConst(e.Left)
		if !ok {
			return 0, false
		}
		r, ok := EvalConst(e.Right)
		if !ok {
			return 0, false
		}
		return foldBinary(e.Op, l, r)
	case cabs.Conditional:
		c, ok := EvalConst(e.Cond)
		if !ok {
			return 0, false
		}
		if c != 0 {
			return EvalConst(e.Then)
		}
		return EvalConst(e.Else)
	}
	return 0, false
}

func foldBinary(op cabs.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case cabs.OpAdd:
		return l + r, true
	case cabs.OpSub:
		return l - r, true
	case cabs.OpMul:
		return l * r, true
	case cabs.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case cabs.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case cabs.OpShl:
		return l << uint(r), r >= 0
	case cabs.OpShr:
		return l >> uint(r), r >= 0
	case cabs.OpBitAnd:
		return l & r, true
	case cabs.OpBitOr:
		return l | r, true
	case cabs.OpBitXor:
		return l ^ r, true
	case cabs.OpLt:
		return boolInt(l < r), true
	case cabs.OpLe:
		return boolInt(l <= r), true
	case cabs.OpGt:
		return boolInt(l > r), true
	case cabs.OpGe:
		return boolInt(l >= r), true
	case cabs.OpEq:
		return boolInt(l == r), true
	case cabs.OpNe:
		return boolInt(l != r), true
	case cabs.OpAnd:
		return boolInt(l != 0 && r != 0), true
	case cabs.OpOr:
		return boolInt(l != 0 || r != 0), true
	}
	return 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

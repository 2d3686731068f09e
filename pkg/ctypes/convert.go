package ctypes

import (
	"fmt"
	"strings"

	"github.com/raymyers/epycc/pkg/cabs"
)

// qualifiers carry no meaning for code generation and are dropped.
var qualifiers = map[string]bool{
	"const": true, "volatile": true, "restrict": true,
	"auto": true, "register": true, "static": true, "extern": true, "inline": true,
}

// Canonicalize folds a sequence of specifier words, in any order, into one
// type. Qualifiers and storage classes are ignored, so "int unsigned const"
// and "unsigned int" yield the same scalar.
func Canonicalize(words []string) (Type, error) {
	count := map[string]int{}
	n := 0
	for _, w := range words {
		if qualifiers[w] {
			continue
		}
		count[w]++
		n++
	}
	bad := func() (Type, error) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpecifiers, strings.Join(words, " "))
	}
	if n == 0 {
		return bad()
	}
	for w, c := range count {
		switch w {
		case "void", "_Bool", "char", "short", "int", "float", "double", "signed", "unsigned":
			if c > 1 {
				return bad()
			}
		case "long":
			if c > 2 {
				return bad()
			}
		default:
			return bad()
		}
	}
	if count["signed"] > 0 && count["unsigned"] > 0 {
		return bad()
	}
	unsigned := count["unsigned"] > 0
	signed := count["signed"] > 0
	sized := signed || unsigned
	only := func(allowed ...string) bool {
		m := 0
		for _, a := range allowed {
			m += count[a]
		}
		return m == n
	}

	pick := func(s, u Kind) (Type, error) {
		if unsigned {
			return Scalar(u), nil
		}
		return Scalar(s), nil
	}

	switch {
	case count["void"] > 0:
		if n != 1 {
			return bad()
		}
		return Void(), nil
	case count["_Bool"] > 0:
		if n != 1 {
			return bad()
		}
		return Scalar(Bool), nil
	case count["float"] > 0:
		if n != 1 {
			return bad()
		}
		return Scalar(Float), nil
	case count["double"] > 0:
		switch {
		case n == 1:
			return Scalar(Double), nil
		case n == 2 && count["long"] == 1:
			return Scalar(LongDouble), nil
		}
		return bad()
	case count["char"] > 0:
		if !only("char", "signed", "unsigned") {
			return bad()
		}
		switch {
		case unsigned:
			return Scalar(UChar), nil
		case signed:
			return Scalar(SChar), nil
		}
		return Scalar(Char), nil
	case count["short"] > 0:
		if !only("short", "int", "signed", "unsigned") {
			return bad()
		}
		return pick(Short, UShort)
	case count["long"] == 2:
		if !only("long", "int", "signed", "unsigned") {
			return bad()
		}
		return pick(LongLong, ULongLong)
	case count["long"] == 1:
		if !only("long", "int", "signed", "unsigned") {
			return bad()
		}
		return pick(Long, ULong)
	case count["int"] > 0 || sized:
		if !only("int", "signed", "unsigned") {
			return bad()
		}
		return pick(Int, UInt)
	}
	return bad()
}

// MustCanonicalize is Canonicalize for spellings known to be valid.
func MustCanonicalize(spelling string) Type {
	t, err := Canonicalize(strings.Fields(spelling))
	if err != nil {
		panic(err)
	}
	return t
}

// IsIntegerOnly reports whether op is only defined for integer operands.
func IsIntegerOnly(op cabs.BinaryOp) bool {
	switch op {
	case cabs.OpMod, cabs.OpShl, cabs.OpShr, cabs.OpBitAnd, cabs.OpBitOr, cabs.OpBitXor:
		return true
	}
	return false
}

// Promote applies the integer promotions: integer kinds narrower than int
// become int. Floating kinds are unchanged.
func Promote(k Kind) Kind {
	if !k.IsFloating() && kinds[k].size < kinds[Int].size {
		return Int
	}
	return k
}

// UnsignedOf returns the unsigned counterpart of an integer kind.
func UnsignedOf(k Kind) Kind {
	switch k {
	case Char, SChar:
		return UChar
	case Short:
		return UShort
	case Int:
		return UInt
	case Long:
		return ULong
	case LongLong:
		return ULongLong
	}
	return k
}

// UsualArithmeticKind implements C99 6.3.1.8 over scalar kinds. It is total
// and symmetric.
func UsualArithmeticKind(a, b Kind) Kind {
	for _, f := range []Kind{LongDouble, Double, Float} {
		if a == f || b == f {
			return f
		}
	}
	pa, pb := Promote(a), Promote(b)
	if pa == pb {
		return pa
	}
	hi, lo := pa, pb
	if lo.Rank() > hi.Rank() {
		hi, lo = lo, hi
	}
	switch {
	case pa.Sign() == pb.Sign():
		return hi
	case hi.Sign() == Unsigned:
		return hi
	case kinds[hi].size > kinds[lo].size:
		return hi
	}
	return UnsignedOf(hi)
}

// UsualArithmeticConversion returns the common type both operands of op
// are converted to. Operands must be scalars; integer-only operators reject
// floating operands.
func UsualArithmeticConversion(op cabs.BinaryOp, a, b Type) (Type, error) {
	sa, ok := a.(Tscalar)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScalar, a)
	}
	sb, ok := b.(Tscalar)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScalar, b)
	}
	k := UsualArithmeticKind(sa.Kind, sb.Kind)
	if IsIntegerOnly(op) && k.IsFloating() {
		return nil, fmt.Errorf("%w: %s on %s", ErrIntegerOnly, op, k)
	}
	return Scalar(k), nil
}

func scalarKind(t Type) (Kind, bool) {
	s, ok := t.(Tscalar)
	return s.Kind, ok
}

// IsInteger reports whether t is _Bool, a character or an integer type.
func IsInteger(t Type) bool {
	k, ok := scalarKind(t)
	return ok && !k.IsFloating()
}

// IsSignedInteger reports whether t is a signed integer type.
func IsSignedInteger(t Type) bool {
	k, ok := scalarKind(t)
	return ok && k.Sign() == Signed
}

// IsUnsignedInteger reports whether t is an unsigned integer type, _Bool
// included.
func IsUnsignedInteger(t Type) bool {
	k, ok := scalarKind(t)
	return ok && k.Sign() == Unsigned
}

// IsFloating reports whether t is a floating type.
func IsFloating(t Type) bool {
	k, ok := scalarKind(t)
	return ok && k.IsFloating()
}

// IsScalar reports whether t is an arithmetic type.
func IsScalar(t Type) bool {
	_, ok := t.(Tscalar)
	return ok
}

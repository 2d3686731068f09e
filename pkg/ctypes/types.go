// Package ctypes defines the C type system: canonical scalar kinds, derived
// pointer, array, struct and function types, and the size and conversion
// rules the code generator relies on.
package ctypes

import (
	"errors"
	"strconv"
	"strings"

	"github.com/raymyers/epycc/pkg/cabs"
)

var (
	// ErrInvalidSpecifiers reports a specifier word list that names no type.
	ErrInvalidSpecifiers = errors.New("invalid type specifiers")
	// ErrNotScalar reports an arithmetic rule applied to a non-scalar type.
	ErrNotScalar = errors.New("not an arithmetic type")
	// ErrIntegerOnly reports an integer-only operator on floating operands.
	ErrIntegerOnly = errors.New("operator requires integer operands")
)

// Type is the interface for all C types
type Type interface {
	implType()
	String() string
}

// Signedness represents signed/unsigned for scalar types
type Signedness int

const (
	Unspecified Signedness = iota
	Signed
	Unsigned
)

func (s Signedness) String() string {
	switch s {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	}
	return "unspecified"
}

// Kind enumerates the scalar types. Each kind has exactly one canonical
// spelling.
type Kind int

const (
	Bool Kind = iota
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
)

type kindInfo struct {
	spelling string
	rank     int
	sign     Signedness
	size     int64
	bits     int
}

// Data model is LP64 with signed plain char; long double is x87 extended
// precision stored in 16 bytes.
var kinds = [...]kindInfo{
	Bool:       {"_Bool", 0, Unsigned, 1, 1},
	Char:       {"char", 1, Signed, 1, 8},
	SChar:      {"signed char", 1, Signed, 1, 8},
	UChar:      {"unsigned char", 1, Unsigned, 1, 8},
	Short:      {"short", 2, Signed, 2, 16},
	UShort:     {"unsigned short", 2, Unsigned, 2, 16},
	Int:        {"int", 3, Signed, 4, 32},
	UInt:       {"unsigned int", 3, Unsigned, 4, 32},
	Long:       {"long", 4, Signed, 8, 64},
	ULong:      {"unsigned long", 4, Unsigned, 8, 64},
	LongLong:   {"long long", 5, Signed, 8, 64},
	ULongLong:  {"unsigned long long", 5, Unsigned, 8, 64},
	Float:      {"float", 6, Unspecified, 4, 32},
	Double:     {"double", 7, Unspecified, 8, 64},
	LongDouble: {"long double", 8, Unspecified, 16, 80},
}

// Kinds lists every scalar kind in rank order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i := range kinds {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string { return kinds[k].spelling }

// Rank is the C99 conversion rank; floating kinds outrank every integer kind.
func (k Kind) Rank() int { return kinds[k].rank }

// Sign is Unspecified for floating kinds.
func (k Kind) Sign() Signedness { return kinds[k].sign }

// Bits is the width of the value representation.
func (k Kind) Bits() int { return kinds[k].bits }

// IsFloating reports whether the kind is float, double or long double.
func (k Kind) IsFloating() bool { return k >= Float }

// Tvoid represents the void type
type Tvoid struct{}

// Tscalar represents the boolean, integer and floating types
type Tscalar struct {
	Kind Kind
}

// Tpointer represents pointer types
type Tpointer struct {
	Elem Type
}

// Dim is an array dimension. Expr is nil when the size is a compile-time
// constant; otherwise Size is unused and Expr is evaluated at run time.
type Dim struct {
	Size int64
	Expr cabs.Expr
}

// IsConst reports whether the dimension is known at compile time.
func (d Dim) IsConst() bool { return d.Expr == nil }

// Tarray represents array types. A 2-D array is an array of arrays.
type Tarray struct {
	Elem Type
	Dim  Dim
}

// Tstruct represents struct types. Field order defines memory layout.
type Tstruct struct {
	Tag    string
	Fields []Field
}

// Field represents a struct field
type Field struct {
	Name string
	Type Type
}

// Tfunction represents function types
type Tfunction struct {
	Params []Type
	Return Type
}

// Marker methods for Type interface
func (Tvoid) implType()     {}
func (Tscalar) implType()   {}
func (Tpointer) implType()  {}
func (Tarray) implType()    {}
func (Tstruct) implType()   {}
func (Tfunction) implType() {}

// String methods for types
func (Tvoid) String() string { return "void" }

func (t Tscalar) String() string { return t.Kind.String() }

func (t Tpointer) String() string {
	return t.Elem.String() + " *"
}

func (t Tarray) String() string {
	var b strings.Builder
	var elem Type = t
	for {
		a, ok := elem.(Tarray)
		if !ok {
			break
		}
		if a.Dim.IsConst() {
			b.WriteString("[" + strconv.FormatInt(a.Dim.Size, 10) + "]")
		} else {
			b.WriteString("[*]")
		}
		elem = a.Elem
	}
	return elem.String() + b.String()
}

func (t Tstruct) String() string {
	if t.Tag != "" {
		return "struct " + t.Tag
	}
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Type.String() + " " + f.Name
	}
	return "struct { " + strings.Join(names, "; ") + "; }"
}

func (t Tfunction) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return t.Return.String() + " (" + strings.Join(params, ", ") + ")"
}

// FieldIndex returns the ordinal and type of the named field.
func (t Tstruct) FieldIndex(name string) (int, Type, bool) {
	for i, f := range t.Fields {
		if f.Name == name {
			return i, f.Type, true
		}
	}
	return -1, nil, false
}

// Common type constructors

// Scalar returns the scalar type of the given kind
func Scalar(k Kind) Type {
	return Tscalar{Kind: k}
}

// Void returns the void type
func Void() Type {
	return Tvoid{}
}

// Pointer returns a pointer to the given type
func Pointer(elem Type) Type {
	return Tpointer{Elem: elem}
}

// Array returns a compile-time sized array type
func Array(elem Type, size int64) Type {
	return Tarray{Elem: elem, Dim: Dim{Size: size}}
}

// Equal checks if two types are structurally equal. Runtime-sized
// dimensions compare equal to each other.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ta := a.(type) {
	case Tvoid:
		_, ok := b.(Tvoid)
		return ok
	case Tscalar:
		tb, ok := b.(Tscalar)
		return ok && ta.Kind == tb.Kind
	case Tpointer:
		tb, ok := b.(Tpointer)
		return ok && Equal(ta.Elem, tb.Elem)
	case Tarray:
		tb, ok := b.(Tarray)
		if !ok || ta.Dim.IsConst() != tb.Dim.IsConst() {
			return false
		}
		if ta.Dim.IsConst() && ta.Dim.Size != tb.Dim.Size {
			return false
		}
		return Equal(ta.Elem, tb.Elem)
	case Tstruct:
		tb, ok := b.(Tstruct)
		if !ok || len(ta.Fields) != len(tb.Fields) {
			return false
		}
		for i, f := range ta.Fields {
			if f.Name != tb.Fields[i].Name || !Equal(f.Type, tb.Fields[i].Type) {
				return false
			}
		}
		return true
	case Tfunction:
		tb, ok := b.(Tfunction)
		if !ok || len(ta.Params) != len(tb.Params) {
			return false
		}
		if !Equal(ta.Return, tb.Return) {
			return false
		}
		for i, p := range ta.Params {
			if !Equal(p, tb.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

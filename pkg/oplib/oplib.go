// Package oplib names the operation library: one external function per
// (operator, type) and per (destination, source) conversion pair. Generated
// code never performs arithmetic itself; it calls these functions by name.
package oplib

import (
	"strings"
	"sync"

	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/ctypes"
)

// Separator joins the tag and the type spellings of an operation name.
const Separator = "__"

// ConvTag is the tag of conversion functions.
const ConvTag = "cnv"

// Name builds tag__result__arg1__arg2... with spaces in type spellings
// replaced by underscores, e.g. add__unsigned_int__unsigned_int__unsigned_int.
func Name(tag string, types ...ctypes.Type) string {
	parts := make([]string, 0, len(types)+1)
	parts = append(parts, tag)
	for _, t := range types {
		parts = append(parts, strings.ReplaceAll(t.String(), " ", "_"))
	}
	return strings.Join(parts, Separator)
}

type opInfo struct {
	tag, sign string
}

var binaryOps = map[cabs.BinaryOp]opInfo{
	cabs.OpAdd:    {"add", "+"},
	cabs.OpSub:    {"sub", "-"},
	cabs.OpMul:    {"mul", "*"},
	cabs.OpDiv:    {"div", "/"},
	cabs.OpMod:    {"mod", "%"},
	cabs.OpShl:    {"lshift", "<<"},
	cabs.OpShr:    {"rshift", ">>"},
	cabs.OpLt:     {"lt", "<"},
	cabs.OpLe:     {"lte", "<="},
	cabs.OpGt:     {"gt", ">"},
	cabs.OpGe:     {"gte", ">="},
	cabs.OpEq:     {"eq", "=="},
	cabs.OpNe:     {"neq", "!="},
	cabs.OpBitAnd: {"bitand", "&"},
	cabs.OpBitOr:  {"bitor", "|"},
	cabs.OpBitXor: {"bitxor", "^"},
	cabs.OpAnd:    {"and", "&&"},
	cabs.OpOr:     {"or", "||"},
}

// binaryOrder fixes the catalog and C source order.
var binaryOrder = []cabs.BinaryOp{
	cabs.OpAdd, cabs.OpSub, cabs.OpMul, cabs.OpDiv, cabs.OpMod,
	cabs.OpShl, cabs.OpShr,
	cabs.OpLt, cabs.OpLe, cabs.OpGt, cabs.OpGe, cabs.OpEq, cabs.OpNe,
	cabs.OpBitAnd, cabs.OpBitOr, cabs.OpBitXor,
	cabs.OpAnd, cabs.OpOr,
}

var unaryOps = map[cabs.UnaryOp]opInfo{
	cabs.OpPlus:   {"add", "+"},
	cabs.OpNeg:    {"sub", "-"},
	cabs.OpBitNot: {"bitnot", "~"},
	cabs.OpNot:    {"not", "!"},
}

var unaryOrder = []cabs.UnaryOp{cabs.OpPlus, cabs.OpNeg, cabs.OpBitNot, cabs.OpNot}

// BinaryTag returns the library tag of a binary operator.
func BinaryTag(op cabs.BinaryOp) (string, bool) {
	b, ok := binaryOps[op]
	return b.tag, ok
}

// UnaryTag returns the library tag of an arithmetic unary operator.
func UnaryTag(op cabs.UnaryOp) (string, bool) {
	u, ok := unaryOps[op]
	return u.tag, ok
}

// UnaryIntegerOnly reports whether a unary operator is only defined for
// integer operands.
func UnaryIntegerOnly(op cabs.UnaryOp) bool {
	return op == cabs.OpBitNot || op == cabs.OpNot
}

// BinaryName is the function computing op on two t operands with result t.
func BinaryName(op cabs.BinaryOp, t ctypes.Type) string {
	tag, _ := BinaryTag(op)
	return Name(tag, t, t, t)
}

// UnaryName is the function computing op on a t operand with result t.
func UnaryName(op cabs.UnaryOp, t ctypes.Type) string {
	tag, _ := UnaryTag(op)
	return Name(tag, t, t)
}

// ConvName is the function converting a src value to dst.
func ConvName(dst, src ctypes.Type) string {
	return Name(ConvTag, dst, src)
}

// Signature describes one library function.
type Signature struct {
	Name   string
	Result ctypes.Kind
	Params []ctypes.Kind
	// Body is the C expression the function returns, in terms of a and b.
	Body string
}

// Catalog is the read-only set of functions the operation library provides.
type Catalog struct {
	sigs   []Signature
	byName map[string]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog of every unary, binary and conversion
// function over the scalar kinds. It is built once and never mutated.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = build()
	})
	return defaultCatalog
}

func build() *Catalog {
	c := &Catalog{byName: make(map[string]int)}
	kinds := ctypes.Kinds()

	for _, op := range unaryOrder {
		u := unaryOps[op]
		for _, k := range kinds {
			if UnaryIntegerOnly(op) && k.IsFloating() {
				continue
			}
			t := ctypes.Scalar(k)
			c.add(Signature{
				Name:   Name(u.tag, t, t),
				Result: k,
				Params: []ctypes.Kind{k},
				Body:   "(" + k.String() + ") (" + u.sign + "a)",
			})
		}
	}
	for _, op := range binaryOrder {
		b := binaryOps[op]
		for _, k := range kinds {
			if ctypes.IsIntegerOnly(op) && k.IsFloating() {
				continue
			}
			t := ctypes.Scalar(k)
			c.add(Signature{
				Name:   Name(b.tag, t, t, t),
				Result: k,
				Params: []ctypes.Kind{k, k},
				Body:   "(" + k.String() + ") (a " + b.sign + " b)",
			})
		}
	}
	for _, dst := range kinds {
		for _, src := range kinds {
			if dst == src {
				continue
			}
			c.add(Signature{
				Name:   Name(ConvTag, ctypes.Scalar(dst), ctypes.Scalar(src)),
				Result: dst,
				Params: []ctypes.Kind{src},
				Body:   "(" + dst.String() + ") a",
			})
		}
	}
	return c
}

func (c *Catalog) add(sig Signature) {
	c.byName[sig.Name] = len(c.sigs)
	c.sigs = append(c.sigs, sig)
}

// Lookup returns the signature of the named function.
func (c *Catalog) Lookup(name string) (Signature, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Signature{}, false
	}
	return c.sigs[i], true
}

// Len is the number of functions in the catalog.
func (c *Catalog) Len() int {
	return len(c.sigs)
}

// Signatures returns the catalog in generation order.
func (c *Catalog) Signatures() []Signature {
	return append([]Signature(nil), c.sigs...)
}

// Package symtab implements the scope stack used during code generation.
//
// A Table holds one or more proper scopes plus a trailing overflow scope.
// Function parameters are staged in the overflow scope while only the global
// scope is active; pushing the function body's scope turns the overflow into
// that scope, so parameters and top-level locals share one scope.
package symtab

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
	"github.com/raymyers/epycc/pkg/ctypes"
)

var (
	// ErrRedefined reports a name declared twice in the same proper scope.
	ErrRedefined = errors.New("redefinition")
	// ErrOverflowScope reports overflow access while nested scopes are active.
	ErrOverflowScope = errors.New("overflow scope accessed outside global scope")
	// ErrScopeUnderflow reports popping the global scope.
	ErrScopeUnderflow = errors.New("cannot pop global scope")
)

// Kind classifies symbols
type Kind int

const (
	Variable Kind = iota
	Parameter
	Function
	StructTag
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Parameter:
		return "parameter"
	case Function:
		return "function"
	case StructTag:
		return "struct tag"
	}
	return "?"
}

// Storage is where a symbol's value lives: Unbound until first use, then
// Bound to an address.
type Storage interface {
	implStorage()
}

// Unbound is the storage of a symbol that has not been used yet.
type Unbound struct{}

// Bound is resolved storage. Dims holds the evaluated size of each array
// dimension, outermost first, for runtime-sized arrays.
type Bound struct {
	Addr value.Value
	Dims []value.Value
}

func (Unbound) implStorage() {}
func (Bound) implStorage()   {}

// Symbol is a named entity
type Symbol struct {
	Kind    Kind
	Name    string
	Type    ctypes.Type
	Storage Storage

	// Incoming is a parameter's argument value, stored into its slot when
	// the slot is bound.
	Incoming value.Value

	// Functions only.
	Params  []*Symbol
	Func    *ir.Func
	Defined bool
}

// NewSymbol returns an unbound symbol.
func NewSymbol(kind Kind, name string, typ ctypes.Type) *Symbol {
	return &Symbol{Kind: kind, Name: name, Type: typ, Storage: Unbound{}}
}

// Bind records the symbol's storage. Binding happens once.
func (s *Symbol) Bind(addr value.Value, dims ...value.Value) {
	s.Storage = Bound{Addr: addr, Dims: dims}
}

// Bound returns the symbol's storage if it has been bound.
func (s *Symbol) Bound() (Bound, bool) {
	b, ok := s.Storage.(Bound)
	return b, ok
}

type scope struct {
	order   []*Symbol
	symbols map[string]*Symbol
}

func newScope() *scope {
	return &scope{symbols: make(map[string]*Symbol)}
}

func (s *scope) insert(sym *Symbol) error {
	if _, ok := s.symbols[sym.Name]; ok {
		return fmt.Errorf("%w of %s %q", ErrRedefined, sym.Kind, sym.Name)
	}
	s.symbols[sym.Name] = sym
	s.order = append(s.order, sym)
	return nil
}

// Table is a stack of proper scopes followed by the overflow scope.
type Table struct {
	scopes []*scope
}

// New returns a table holding only the global scope and an empty overflow.
func New() *Table {
	return &Table{scopes: []*scope{newScope(), newScope()}}
}

// Depth is the number of proper scopes; 1 means only the global scope.
func (t *Table) Depth() int {
	return len(t.scopes) - 1
}

func (t *Table) current() *scope {
	return t.scopes[len(t.scopes)-2]
}

func (t *Table) overflow() *scope {
	return t.scopes[len(t.scopes)-1]
}

// Lookup searches proper scopes innermost first; the overflow scope is never
// searched. It returns nil if the name is not visible.
func (t *Table) Lookup(name string) *Symbol {
	for i := len(t.scopes) - 2; i >= 0; i-- {
		if sym, ok := t.scopes[i].symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupCurrent searches only the innermost proper scope.
func (t *Table) LookupCurrent(name string) *Symbol {
	return t.current().symbols[name]
}

// Insert declares sym in the innermost proper scope.
func (t *Table) Insert(sym *Symbol) error {
	return t.current().insert(sym)
}

// Symbols returns the innermost proper scope's symbols in declaration order.
func (t *Table) Symbols() []*Symbol {
	return append([]*Symbol(nil), t.current().order...)
}

// SetOverflow stages sym in the overflow scope. Only valid at global scope.
func (t *Table) SetOverflow(sym *Symbol) error {
	if t.Depth() != 1 {
		return fmt.Errorf("%w: depth %d", ErrOverflowScope, t.Depth())
	}
	return t.overflow().insert(sym)
}

// GetOverflow returns a staged symbol, or nil. Only valid at global scope.
func (t *Table) GetOverflow(name string) (*Symbol, error) {
	if t.Depth() != 1 {
		return nil, fmt.Errorf("%w: depth %d", ErrOverflowScope, t.Depth())
	}
	return t.overflow().symbols[name], nil
}

// PushScope promotes the overflow scope to the innermost proper scope and
// starts a fresh overflow.
func (t *Table) PushScope() {
	t.scopes = append(t.scopes, newScope())
}

// PopScope discards the innermost proper scope; the overflow is reset to
// empty.
func (t *Table) PopScope() error {
	if t.Depth() == 1 {
		return ErrScopeUnderflow
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
	t.scopes[len(t.scopes)-1] = newScope()
	return nil
}

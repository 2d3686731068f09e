package irgen

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	ErrType       = errors.New("type error")
	ErrScope      = errors.New("scope error")
	ErrStructural = errors.New("unsupported construct")
	ErrInternal   = errors.New("internal error")
)

// ErrorKind classifies generation failures.
type ErrorKind int

const (
	TypeError ErrorKind = iota
	ScopeError
	StructuralError
	InternalError
)

func (k ErrorKind) sentinel() error {
	switch k {
	case TypeError:
		return ErrType
	case ScopeError:
		return ErrScope
	case StructuralError:
		return ErrStructural
	}
	return ErrInternal
}

func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

// Error is a fatal generation error. Construct names the offending source
// construct, e.g. "function add" or "a + b".
type Error struct {
	Kind      ErrorKind
	Construct string
	Msg       string
	Err       error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Construct == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s in %s: %s", e.Kind, e.Construct, e.Msg)
}

// Unwrap exposes the kind sentinel and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// bailout aborts generation. Only Generate recovers it.
type bailout struct {
	err *Error
}

// errorf returns the panic value that aborts generation with an error of
// the given kind at the current construct. Callers panic with it.
func (g *Generator) errorf(kind ErrorKind, format string, args ...any) bailout {
	return g.wrapf(kind, nil, format, args...)
}

func (g *Generator) wrapf(kind ErrorKind, cause error, format string, args ...any) bailout {
	return bailout{&Error{
		Kind:      kind,
		Construct: g.construct,
		Msg:       fmt.Sprintf(format, args...),
		Err:       cause,
	}}
}

// recoverError turns a bailout, or an error panicked by the builder, into
// *err. Runtime faults are not errors of the input and keep panicking.
func (g *Generator) recoverError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch r := r.(type) {
	case bailout:
		*err = r.err
	case runtime.Error:
		panic(r)
	case error:
		*err = &Error{Kind: InternalError, Construct: g.construct, Msg: r.Error(), Err: r}
	default:
		panic(r)
	}
}

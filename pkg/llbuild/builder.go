// Package llbuild is the IR builder used by the code generator. It wraps an
// llir module and tracks the function and basic block under construction.
//
// Stack slots for fixed-size locals are placed at the top of the entry block
// so they dominate every block of the function. Runtime-sized allocations
// are emitted at the current position.
package llbuild

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// ErrTerminated reports an instruction added to a block that already ends
// in a terminator.
var ErrTerminated = errors.New("instruction after terminator")

// bytePtr is the token type of the stack save/restore intrinsics.
var bytePtr = types.NewPointer(types.I8)

// Builder emits functions into one module.
type Builder struct {
	module *ir.Module
	funcs  map[string]*ir.Func

	stackSave    *ir.Func
	stackRestore *ir.Func

	// Per-function state, reset by BeginFunction.
	fn      *ir.Func
	entry   *ir.Block
	cur     *ir.Block
	slots   int // allocas at the top of the entry block
	succs   map[*ir.Block][]*ir.Block
	blockNo map[string]int
}

// New returns a builder for an empty module.
func New() *Builder {
	return &Builder{
		module: ir.NewModule(),
		funcs:  make(map[string]*ir.Func),
	}
}

// Module returns the module under construction.
func (b *Builder) Module() *ir.Module {
	return b.module
}

// Function returns the named function, or nil if it was never declared.
func (b *Builder) Function(name string) *ir.Func {
	return b.funcs[name]
}

// DeclareFunction adds a function declaration to the module. Declaring an
// existing name returns the existing function unchanged.
func (b *Builder) DeclareFunction(name string, ret types.Type, params ...*ir.Param) *ir.Func {
	if f, ok := b.funcs[name]; ok {
		return f
	}
	f := b.module.NewFunc(name, ret, params...)
	b.funcs[name] = f
	return f
}

// BeginFunction starts the body of f with an empty entry block.
func (b *Builder) BeginFunction(f *ir.Func) {
	b.fn = f
	b.entry = f.NewBlock("entry")
	b.cur = b.entry
	b.slots = 0
	b.succs = make(map[*ir.Block][]*ir.Block)
	b.blockNo = map[string]int{"entry": 1}
}

// CreateBlock appends a new block to the current function. Names are made
// unique by a numeric suffix.
func (b *Builder) CreateBlock(name string) *ir.Block {
	n := b.blockNo[name]
	b.blockNo[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s.%d", name, n)
	}
	return b.fn.NewBlock(name)
}

// SetInsertBlock directs subsequent instructions to blk.
func (b *Builder) SetInsertBlock(blk *ir.Block) {
	b.cur = blk
}

// InsertBlock returns the block instructions are currently added to.
func (b *Builder) InsertBlock() *ir.Block {
	return b.cur
}

// Terminated reports whether the insert block already has a terminator.
func (b *Builder) Terminated() bool {
	return b.cur.Term != nil
}

func (b *Builder) check() {
	if b.cur.Term != nil {
		panic(fmt.Errorf("%w: block %%%s of @%s", ErrTerminated, b.cur.Name(), b.fn.Name()))
	}
}

// AllocateStackSlot reserves a slot of type t in the entry block and
// returns its address.
func (b *Builder) AllocateStackSlot(t types.Type) value.Value {
	a := b.entry.NewAlloca(t)
	insts := b.entry.Insts
	copy(insts[b.slots+1:], insts[b.slots:len(insts)-1])
	insts[b.slots] = a
	b.slots++
	return a
}

// AllocateDynamic allocates n elements of type t at the current position.
func (b *Builder) AllocateDynamic(t types.Type, n value.Value) value.Value {
	b.check()
	a := b.cur.NewAlloca(t)
	a.NElems = n
	return a
}

// Load reads a value of type t from addr.
func (b *Builder) Load(t types.Type, addr value.Value) value.Value {
	b.check()
	return b.cur.NewLoad(t, addr)
}

// Store writes v to addr.
func (b *Builder) Store(v, addr value.Value) {
	b.check()
	b.cur.NewStore(v, addr)
}

// Call calls the named function, declaring it as an external function
// taking the argument types and returning ret on first use. Declared i1
// parameters are zero-extended, as a C compiler passes _Bool.
func (b *Builder) Call(name string, ret types.Type, args ...value.Value) value.Value {
	f, ok := b.funcs[name]
	if !ok {
		params := make([]*ir.Param, len(args))
		for i, a := range args {
			params[i] = ir.NewParam("", a.Type())
			if a.Type().Equal(types.I1) {
				params[i].Attrs = append(params[i].Attrs, enum.ParamAttrZeroExt)
			}
		}
		f = b.DeclareFunction(name, ret, params...)
	}
	return b.CallFunc(f, args...)
}

// CallFunc calls f with args.
func (b *Builder) CallFunc(f *ir.Func, args ...value.Value) value.Value {
	b.check()
	return b.cur.NewCall(f, args...)
}

// ElementAddress computes the address of an element of base, whose
// pointee has type elem, with getelementptr semantics.
func (b *Builder) ElementAddress(elem types.Type, base value.Value, indices ...value.Value) value.Value {
	b.check()
	return b.cur.NewGetElementPtr(elem, base, indices...)
}

// Branch ends the insert block with an unconditional branch.
func (b *Builder) Branch(target *ir.Block) {
	b.check()
	b.cur.NewBr(target)
	b.succs[b.cur] = []*ir.Block{target}
}

// CondBranch ends the insert block with a branch on the i1 value cond.
func (b *Builder) CondBranch(cond value.Value, then, els *ir.Block) {
	b.check()
	b.cur.NewCondBr(cond, then, els)
	b.succs[b.cur] = []*ir.Block{then, els}
}

// Return ends the insert block with a return; v is nil for void.
func (b *Builder) Return(v value.Value) {
	b.check()
	b.cur.NewRet(v)
}

// Unreachable ends the insert block with an unreachable terminator.
func (b *Builder) Unreachable() {
	b.check()
	b.cur.NewUnreachable()
}

// SaveStackPointer calls llvm.stacksave and returns the token.
func (b *Builder) SaveStackPointer() value.Value {
	if b.stackSave == nil {
		b.stackSave = b.DeclareFunction("llvm.stacksave", bytePtr)
	}
	return b.CallFunc(b.stackSave)
}

// RestoreStackPointer calls llvm.stackrestore with a token returned by
// SaveStackPointer.
func (b *Builder) RestoreStackPointer(tok value.Value) {
	if b.stackRestore == nil {
		b.stackRestore = b.DeclareFunction("llvm.stackrestore", types.Void, ir.NewParam("", bytePtr))
	}
	b.CallFunc(b.stackRestore, tok)
}

// FinishFunction completes the current function. Blocks that cannot be
// reached from the entry block are removed. Reachable blocks without a
// terminator fall off the end of the function: they return for a void
// function and are marked unreachable otherwise.
func (b *Builder) FinishFunction() error {
	if b.fn == nil {
		return errors.New("no function in progress")
	}
	reach := map[*ir.Block]bool{}
	work := []*ir.Block{b.entry}
	for len(work) > 0 {
		blk := work[len(work)-1]
		work = work[:len(work)-1]
		if reach[blk] {
			continue
		}
		reach[blk] = true
		work = append(work, b.succs[blk]...)
	}

	kept := b.fn.Blocks[:0]
	for _, blk := range b.fn.Blocks {
		if !reach[blk] {
			continue
		}
		if blk.Term == nil {
			if b.fn.Sig.RetType.Equal(types.Void) {
				blk.NewRet(nil)
			} else {
				blk.NewUnreachable()
			}
		}
		kept = append(kept, blk)
	}
	b.fn.Blocks = kept
	b.fn, b.entry, b.cur, b.succs = nil, nil, nil, nil
	return nil
}

// String returns the module as LLVM assembly.
func (b *Builder) String() string {
	return b.module.String()
}

// Package ffi implements the worker-side argument marshalling and
// dispatch described in spec §4.3: given a decoded request's ordered
// arg slots and a function pointer, reconstruct a platform C ABI call
// and return its unsigned 64-bit result word.
//
// The dynamic loader and the underlying FFI mechanism are treated as
// primitive capabilities per spec §1 ("out of scope ... the
// dynamic-loader and libffi integrations themselves"); this package
// wraps github.com/ebitengine/purego, the pure-Go equivalent of
// dlopen+libffi, rather than reimplementing either.
package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/wire"
)

// Loader resolves library and symbol handles. It exists as an
// interface so worker command handlers can be tested without a real
// shared library on disk.
type Loader interface {
	Open(path string) (uintptr, error)
	Symbol(handle uintptr, name string) (uintptr, error)
	Close(handle uintptr) error
}

// PuregoLoader is the production Loader, backed by purego's dlopen
// wrapper.
type PuregoLoader struct{}

func (PuregoLoader) Open(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func (PuregoLoader) Symbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

// Close is a tracked no-op: purego does not expose dlclose uniformly
// across platforms. UNLOAD_LIBRARY still reports success on the wire
// (spec §4.5: "result = loader return"); see DESIGN.md.
func (PuregoLoader) Close(handle uintptr) error {
	return nil
}

// Result is the outcome of dispatching one call: the unsigned 64-bit
// return word, plus the filled copy_out descriptors for any OUT/INOUT
// StackArgs (spec §4.3 step 5).
type Result struct {
	Value   uint64
	CopyOut []wire.CopyDescriptor
}

// Dispatch marshals args according to the ten scalar kinds plus
// StackArg and invokes fn via the platform C ABI, returning its result
// as an unsigned 64-bit word (spec §4.3's "return-type convention").
func Dispatch(fn uintptr, args []wire.ArgSlot, copyIn []wire.CopyDescriptor) (Result, error) {
	callArgs := make([]uintptr, 0, len(args))
	stackBufs := make(map[int][]byte)

	copyInIdx := 0
	for i, slot := range args {
		switch slot.Type {
		case constants.ArgStack:
			buf := make([]byte, slot.Stack.Len)
			if wire.IsStackDirIn(slot.Stack.Inout) {
				if copyInIdx >= len(copyIn) {
					return Result{}, fmt.Errorf("ffi: missing copy_in entry for stack arg %d", i)
				}
				desc := copyIn[copyInIdx]
				copyInIdx++
				if uint64(len(desc.Data)) != slot.Stack.Len {
					return Result{}, fmt.Errorf("ffi: copy_in length %d does not match stack arg %d length %d", len(desc.Data), i, slot.Stack.Len)
				}
				copy(buf, desc.Data)
			}
			stackBufs[i] = buf
			callArgs = append(callArgs, bufferAddr(buf))
		default:
			v, err := scalarToUintptr(slot)
			if err != nil {
				return Result{}, err
			}
			callArgs = append(callArgs, v)
		}
	}

	// purego.SyscallN's errno is whatever the C library last set it to;
	// arbitrary worker-resident functions have no errno contract (spec
	// §4.3's return-type convention is just the raw result word), so it
	// is not a failure signal here and must not be checked.
	r1, _, _ := purego.SyscallN(fn, callArgs...)

	var copyOut []wire.CopyDescriptor
	for i, slot := range args {
		if slot.Type != constants.ArgStack || !wire.IsStackDirOut(slot.Stack.Inout) {
			continue
		}
		buf := stackBufs[i]
		out := make([]byte, len(buf))
		copy(out, buf)
		copyOut = append(copyOut, wire.CopyDescriptor{
			HostAddr: slot.Stack.Buff,
			Len:      slot.Stack.Len,
			Data:     out,
		})
	}

	return Result{Value: uint64(r1), CopyOut: copyOut}, nil
}

// scalarToUintptr reinterprets a scalar slot's bit pattern as the
// uintptr register value purego.SyscallN expects. Integers pass
// accurately (the SysV ABI's integer-register convention). Floats and
// doubles pass through their bit pattern in the same integer slot -- a
// documented simplification; see DESIGN.md.
func scalarToUintptr(slot wire.ArgSlot) (uintptr, error) {
	switch slot.Type {
	case constants.ArgI64, constants.ArgU64:
		return uintptr(slot.Scalar), nil
	case constants.ArgI32, constants.ArgU32:
		return uintptr(uint32(slot.Scalar)), nil
	case constants.ArgI16, constants.ArgU16:
		return uintptr(uint16(slot.Scalar)), nil
	case constants.ArgI8, constants.ArgU8:
		return uintptr(uint8(slot.Scalar)), nil
	case constants.ArgDouble:
		return uintptr(slot.Scalar), nil
	case constants.ArgFloat:
		return uintptr(uint32(slot.Scalar)), nil
	default:
		return 0, fmt.Errorf("ffi: unknown scalar arg type %d", slot.Type)
	}
}

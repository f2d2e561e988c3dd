package veostub

import (
	"unsafe"

	"github.com/sx-aurora/veostub/internal/constants"
	"github.com/sx-aurora/veostub/internal/wire"
)

// ArgList is the ordered sequence of typed argument slots built by a
// caller before a CallAsync/CallAsyncByName/CallSync (spec §3's
// ArgList entity, §9's "tagged scalar argument" design note).
type ArgList struct {
	slots []wire.ArgSlot
}

// ArgsAlloc creates an empty ArgList.
func ArgsAlloc() *ArgList {
	return &ArgList{}
}

// Free releases the ArgList's storage. Safe to call on a nil receiver.
func (a *ArgList) Free() {
	if a == nil {
		return
	}
	a.slots = nil
}

// Clear empties the ArgList while retaining its backing storage.
func (a *ArgList) Clear() {
	a.slots = a.slots[:0]
}

func (a *ArgList) set(idx int, slot wire.ArgSlot) {
	for len(a.slots) <= idx {
		a.slots = append(a.slots, wire.ArgSlot{})
	}
	a.slots[idx] = slot
}

func (a *ArgList) SetI64(idx int, v int64)   { a.set(idx, wire.ArgSlot{Type: constants.ArgI64, Scalar: uint64(v)}) }
func (a *ArgList) SetU64(idx int, v uint64)  { a.set(idx, wire.ArgSlot{Type: constants.ArgU64, Scalar: v}) }
func (a *ArgList) SetI32(idx int, v int32)   { a.set(idx, wire.ArgSlot{Type: constants.ArgI32, Scalar: uint64(uint32(v))}) }
func (a *ArgList) SetU32(idx int, v uint32)  { a.set(idx, wire.ArgSlot{Type: constants.ArgU32, Scalar: uint64(v)}) }
func (a *ArgList) SetI16(idx int, v int16)   { a.set(idx, wire.ArgSlot{Type: constants.ArgI16, Scalar: uint64(uint16(v))}) }
func (a *ArgList) SetU16(idx int, v uint16)  { a.set(idx, wire.ArgSlot{Type: constants.ArgU16, Scalar: uint64(v)}) }
func (a *ArgList) SetI8(idx int, v int8)     { a.set(idx, wire.ArgSlot{Type: constants.ArgI8, Scalar: uint64(uint8(v))}) }
func (a *ArgList) SetU8(idx int, v uint8)    { a.set(idx, wire.ArgSlot{Type: constants.ArgU8, Scalar: uint64(v)}) }

func (a *ArgList) SetDouble(idx int, v float64) {
	a.set(idx, wire.ArgSlot{Type: constants.ArgDouble, Scalar: *(*uint64)(unsafe.Pointer(&v))})
}

func (a *ArgList) SetFloat(idx int, v float32) {
	a.set(idx, wire.ArgSlot{Type: constants.ArgFloat, Scalar: uint64(*(*uint32)(unsafe.Pointer(&v)))})
}

// SetStack sets an indirect StackArg at idx: buf is host memory that
// will be shuttled to/from the worker around the call according to
// dir (spec §3's StackArg entity, §4.3's copy-in/copy-out contract).
// buf must remain live and unmoved until the call's result has been
// observed.
func (a *ArgList) SetStack(idx int, dir constants.StackDir, buf []byte) {
	var addr uint64
	if len(buf) > 0 {
		addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	a.set(idx, wire.ArgSlot{
		Type: constants.ArgStack,
		Stack: wire.StackArg{
			Inout: dir,
			Buff:  addr,
			Len:   uint64(len(buf)),
		},
	})
}

func (a *ArgList) slotsCopy() []wire.ArgSlot {
	out := make([]wire.ArgSlot, len(a.slots))
	copy(out, a.slots)
	return out
}

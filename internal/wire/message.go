// Package wire implements the length-prefixed msgpack frame protocol
// described in spec §4.1: a request/response pair per in-flight call,
// a tagged scalar-or-stack argument slot, and the copy descriptors that
// shuttle StackArg and memcpy payloads across the process boundary.
package wire

import "github.com/sx-aurora/veostub/internal/constants"

// Request is a command sent from the client to the worker over one
// context's connection. Only the fields relevant to Cmd are populated;
// the rest are left at their zero value and omitted on the wire.
type Request struct {
	Cmd     constants.Cmd `msgpack:"cmd"`
	ReqID   uint64        `msgpack:"reqid"`
	LibName string        `msgpack:"libname,omitempty"`
	LibHdl  uint64        `msgpack:"libhdl,omitempty"`
	SymName string        `msgpack:"symname,omitempty"`
	Addr    uint64        `msgpack:"addr,omitempty"`
	Size    uint64        `msgpack:"size,omitempty"`
	Src     uint64        `msgpack:"src,omitempty"`
	Dst     uint64        `msgpack:"dst,omitempty"`
	Data    []byte        `msgpack:"data,omitempty"`
	Args    []ArgSlot     `msgpack:"args,omitempty"`
	CopyIn  []CopyDescriptor `msgpack:"copy_in,omitempty"`
	CopyOut []CopyDescriptor `msgpack:"copy_out,omitempty"`
}

// Response is the worker's reply to a Request, or nil for the commands
// that spec §4.2 defines as not awaiting one (CLOSE_CONTEXT, QUIT).
type Response struct {
	ReqID   uint64           `msgpack:"reqid"`
	Result  uint64           `msgpack:"result"`
	Data    []byte           `msgpack:"data,omitempty"`
	CopyOut []CopyDescriptor `msgpack:"copy_out,omitempty"`
}

// ArgSlot is one positional call argument: either one of the ten
// scalar kinds or a StackArg, discriminated by Type using the dense
// small-integer tags in internal/constants (spec §9 Design Notes:
// "tagged variant ... with a dense small-integer discriminator shared
// with the wire tag").
type ArgSlot struct {
	Type constants.ArgType `msgpack:"type"`

	// Scalar holds the bit pattern for any of the ten scalar kinds,
	// reinterpreted according to Type. Using a single uint64 field
	// instead of a Go union keeps the msgpack encoding to one
	// {type, val} pair regardless of kind, matching the wire contract
	// of spec §4.1.
	Scalar uint64 `msgpack:"-"`

	// Stack is populated only when Type == constants.ArgStack.
	Stack StackArg `msgpack:"-"`
}

// StackArg describes an indirect argument: a host buffer of Len bytes
// that must be shuttled to the worker (IN/INOUT) before the call and
// back (OUT/INOUT) afterward. Buff is the host address, carried as an
// opaque identifier for pairing with CopyDescriptors -- never
// dereferenced by the worker.
type StackArg struct {
	Inout constants.StackDir `msgpack:"inout"`
	Buff  uint64             `msgpack:"buff"`
	Len   uint64             `msgpack:"len"`
}

// CopyDescriptor is the on-wire record of one host<->worker memory
// shuttle: a worker-side address, a host-side address (both opaque),
// a length, and the payload bytes.
type CopyDescriptor struct {
	WorkerAddr uint64 `msgpack:"worker_addr"`
	HostAddr   uint64 `msgpack:"host_addr"`
	Len        uint64 `msgpack:"len"`
	Data       []byte `msgpack:"data,omitempty"`
}

// IsStackDirIn reports whether a StackArg with this direction must be
// populated from copy_in before the call.
func IsStackDirIn(d constants.StackDir) bool {
	return d == constants.StackIn || d == constants.StackInOut
}

// IsStackDirOut reports whether a StackArg with this direction must be
// captured into copy_out after the call.
func IsStackDirOut(d constants.StackDir) bool {
	return d == constants.StackOut || d == constants.StackInOut
}

package wire

import (
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sx-aurora/veostub/internal/constants"
)

// EncodeMsgpack implements msgpack.CustomEncoder, producing the
// {"type": <tag>, "val": <value>} wire shape from spec §4.1.
func (s ArgSlot) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := enc.EncodeString("type"); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(s.Type)); err != nil {
		return err
	}
	if err := enc.EncodeString("val"); err != nil {
		return err
	}

	switch s.Type {
	case constants.ArgStack:
		return enc.Encode(s.Stack)
	case constants.ArgDouble:
		return enc.EncodeFloat64(math.Float64frombits(s.Scalar))
	case constants.ArgFloat:
		return enc.EncodeFloat32(math.Float32frombits(uint32(s.Scalar)))
	case constants.ArgI64:
		return enc.EncodeInt64(int64(s.Scalar))
	case constants.ArgI32:
		return enc.EncodeInt64(int64(int32(s.Scalar)))
	case constants.ArgI16:
		return enc.EncodeInt64(int64(int16(s.Scalar)))
	case constants.ArgI8:
		return enc.EncodeInt64(int64(int8(s.Scalar)))
	case constants.ArgU64, constants.ArgU32, constants.ArgU16, constants.ArgU8:
		return enc.EncodeUint64(s.Scalar)
	default:
		return fmt.Errorf("wire: unknown arg type tag %d", s.Type)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder. It assumes the field
// order this package's own encoder produces ("type" before "val"),
// which is safe because the wire numbering is a private contract
// between this client and its worker (spec §6).
func (s *ArgSlot) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("wire: arg slot map has %d entries, want 2", n)
	}

	if _, err := dec.DecodeString(); err != nil { // "type"
		return err
	}
	tag, err := dec.DecodeInt32()
	if err != nil {
		return err
	}
	s.Type = constants.ArgType(tag)

	if _, err := dec.DecodeString(); err != nil { // "val"
		return err
	}

	switch s.Type {
	case constants.ArgStack:
		return dec.Decode(&s.Stack)
	case constants.ArgDouble:
		v, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		s.Scalar = math.Float64bits(v)
		return nil
	case constants.ArgFloat:
		v, err := dec.DecodeFloat32()
		if err != nil {
			return err
		}
		s.Scalar = uint64(math.Float32bits(v))
		return nil
	case constants.ArgI64, constants.ArgI32, constants.ArgI16, constants.ArgI8:
		v, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		switch s.Type {
		case constants.ArgI32:
			s.Scalar = uint64(uint32(v))
		case constants.ArgI16:
			s.Scalar = uint64(uint16(v))
		case constants.ArgI8:
			s.Scalar = uint64(uint8(v))
		default:
			s.Scalar = uint64(v)
		}
		return nil
	case constants.ArgU64, constants.ArgU32, constants.ArgU16, constants.ArgU8:
		v, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		s.Scalar = v
		return nil
	default:
		return fmt.Errorf("wire: unknown arg type tag %d", s.Type)
	}
}

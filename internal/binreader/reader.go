// Package binreader supplies the bounds-checked little-endian primitives
// shared by every structured reader (MDL, VVD, VTX, PHY, ANI). Every method
// returns an error instead of panicking; callers that hit a required field
// turn that into a malformed-input decode failure, callers walking optional
// or speculative data silently give up on the current record instead.
package binreader

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrOutOfRange is wrapped into every bounds-check failure.
var ErrOutOfRange = errors.New("binreader: offset out of range")

// View is a read-only, non-owning window over a byte buffer. All accessors
// take an absolute offset so callers can compose "struct_offset +
// field_offset" the way the binary formats describe their own layout,
// without ever allocating a parsed copy of the struct.
type View struct {
	Data []byte
}

func (v View) check(off, n int) bool {
	return off >= 0 && n >= 0 && off+n <= len(v.Data)
}

// Len reports the size of the underlying buffer.
func (v View) Len() int { return len(v.Data) }

func (v View) I8(off int) (int8, error) {
	if !v.check(off, 1) {
		return 0, ErrOutOfRange
	}
	return int8(v.Data[off]), nil
}

func (v View) U8(off int) (uint8, error) {
	if !v.check(off, 1) {
		return 0, ErrOutOfRange
	}
	return v.Data[off], nil
}

func (v View) I16(off int) (int16, error) {
	if !v.check(off, 2) {
		return 0, ErrOutOfRange
	}
	return int16(binary.LittleEndian.Uint16(v.Data[off:])), nil
}

func (v View) U16(off int) (uint16, error) {
	if !v.check(off, 2) {
		return 0, ErrOutOfRange
	}
	return binary.LittleEndian.Uint16(v.Data[off:]), nil
}

func (v View) I32(off int) (int32, error) {
	if !v.check(off, 4) {
		return 0, ErrOutOfRange
	}
	return int32(binary.LittleEndian.Uint32(v.Data[off:])), nil
}

func (v View) U32(off int) (uint32, error) {
	if !v.check(off, 4) {
		return 0, ErrOutOfRange
	}
	return binary.LittleEndian.Uint32(v.Data[off:]), nil
}

func (v View) U64(off int) (uint64, error) {
	if !v.check(off, 8) {
		return 0, ErrOutOfRange
	}
	return binary.LittleEndian.Uint64(v.Data[off:]), nil
}

func (v View) F32(off int) (float32, error) {
	bits, err := v.U32(off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// Vec3 reads three consecutive float32 starting at off.
func (v View) Vec3(off int) ([3]float32, error) {
	var out [3]float32
	for i := 0; i < 3; i++ {
		f, err := v.F32(off + i*4)
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}

// Bytes returns a sub-slice [off, off+n) without copying.
func (v View) Bytes(off, n int) ([]byte, error) {
	if !v.check(off, n) {
		return nil, ErrOutOfRange
	}
	return v.Data[off : off+n], nil
}

// StrZ reads a null-terminated (or buffer-end-terminated) ASCII string
// starting at off, never reading past maxLen bytes from off.
func (v View) StrZ(off, maxLen int) (string, error) {
	if off < 0 || off > len(v.Data) {
		return "", ErrOutOfRange
	}
	end := off + maxLen
	if end > len(v.Data) || maxLen < 0 {
		end = len(v.Data)
	}
	for i := off; i < end; i++ {
		if v.Data[i] == 0 {
			return string(v.Data[off:i]), nil
		}
	}
	return string(v.Data[off:end]), nil
}

// StrZUnbounded reads a null-terminated ASCII string with no length cap
// other than the buffer end, used for relative-pointer string tables.
func (v View) StrZUnbounded(off int) (string, error) {
	return v.StrZ(off, -1)
}

// Sub returns a View whose offset 0 corresponds to absolute offset `off`
// in the parent, used when descending into a nested table whose own
// fields are themselves struct_offset + field_offset relative.
func (v View) Sub(off int) View {
	if off < 0 || off > len(v.Data) {
		return View{}
	}
	return View{Data: v.Data[off:]}
}

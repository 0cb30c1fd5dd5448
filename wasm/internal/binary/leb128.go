package binary

import (
	"errors"
	"io"
)

// ErrOverflow is returned when a LEB128 value runs past its maximum width.
var ErrOverflow = errors.New("leb128: overflow")

// maxShift is the shift at which an encoding of a bits-wide value has used
// all of its ceil(bits/7) bytes.
func maxShift(bits uint) uint {
	return (bits + 6) / 7 * 7
}

// ReadUnsigned decodes an unsigned LEB128 value of at most bits bits.
func ReadUnsigned(r io.ByteReader, bits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= maxShift(bits) {
			return 0, ErrOverflow
		}
	}
}

// ReadSigned decodes a signed LEB128 value of at most bits bits. Callers
// narrowing to a smaller integer keep the low bits.
func ReadSigned(r io.ByteReader, bits uint) (int64, error) {
	var result int64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= ^int64(0) << shift
			}
			return result, nil
		}
		if shift >= maxShift(bits) {
			return 0, ErrOverflow
		}
	}
}

// AppendUnsigned appends the unsigned LEB128 encoding of v.
func AppendUnsigned(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// AppendSigned appends the signed LEB128 encoding of v.
func AppendSigned(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

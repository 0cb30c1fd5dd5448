package wasm

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	ibin "github.com/poccariswet/wasm-bindgen-sub000/wasm/internal/binary"
)

// ErrOverflow is returned when a LEB128 value runs past its maximum width.
var ErrOverflow = ibin.ErrOverflow

// ReadLEB128u reads an unsigned 32-bit LEB128 value.
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	v, err := ibin.ReadUnsigned(r, 32)
	return uint32(v), err
}

// WriteLEB128u writes an unsigned 32-bit LEB128 value.
func WriteLEB128u(w *bytes.Buffer, v uint32) {
	w.Write(ibin.AppendUnsigned(nil, uint64(v)))
}

func readLEB128u64(r io.ByteReader) (uint64, error) {
	return ibin.ReadUnsigned(r, 64)
}

func readLEB128s(r io.ByteReader) (int32, error) {
	v, err := ibin.ReadSigned(r, 32)
	return int32(v), err
}

func readLEB128s64(r io.ByteReader) (int64, error) {
	return ibin.ReadSigned(r, 64)
}

func writeLEB128u64(w *bytes.Buffer, v uint64) {
	w.Write(ibin.AppendUnsigned(nil, v))
}

func writeLEB128s(w *bytes.Buffer, v int32) {
	w.Write(ibin.AppendSigned(nil, int64(v)))
}

func writeLEB128s64(w *bytes.Buffer, v int64) {
	w.Write(ibin.AppendSigned(nil, v))
}

func readFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

func readFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeFloat32(w *bytes.Buffer, v float32) {
	w.Write(binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)))
}

func writeFloat64(w *bytes.Buffer, v float64) {
	w.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)))
}

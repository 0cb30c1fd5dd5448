package binary

import "encoding/binary"

// Writer accumulates an encoded section or module.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = AppendUnsigned(w.buf, uint64(v))
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = AppendUnsigned(w.buf, v)
}

func (w *Writer) WriteS64(v int64) {
	w.buf = AppendSigned(w.buf, v)
}

// WriteName writes a length-prefixed name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestSigned(t *testing.T) {
	tests := []struct {
		name string
		enc  []byte
		bits uint
		want int64
	}{
		{"empty block type", []byte{0x40}, 32, -64},
		{"externref block type", []byte{0x6f}, 32, -17},
		{"minus one", []byte{0x7f}, 64, -1},
		{"positive two bytes", []byte{0x80, 0x01}, 32, 128},
		{"int32 min", []byte{0x80, 0x80, 0x80, 0x80, 0x78}, 32, -1 << 31},
		{"s33 type index", []byte{0x85, 0x01}, 64, 133},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSigned(bytes.NewReader(tt.enc), tt.bits)
			if err != nil {
				t.Fatalf("ReadSigned: %v", err)
			}
			if tt.bits == 32 {
				got = int64(int32(got))
			}
			if got != tt.want {
				t.Errorf("ReadSigned = %d, want %d", got, tt.want)
			}
			if enc := AppendSigned(nil, tt.want); !bytes.Equal(enc, tt.enc) {
				t.Errorf("AppendSigned(%d) = % x, want % x", tt.want, enc, tt.enc)
			}
		})
	}
}

func TestUnsignedLimits(t *testing.T) {
	if _, err := ReadUnsigned(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}), 32); err != nil {
		t.Errorf("max uint32: %v", err)
	}
	if _, err := ReadUnsigned(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}), 32); !errors.Is(err, ErrOverflow) {
		t.Errorf("six byte u32 error = %v, want ErrOverflow", err)
	}
	if _, err := ReadUnsigned(bytes.NewReader([]byte{0x80}), 64); !errors.Is(err, io.EOF) {
		t.Errorf("truncated error = %v, want EOF", err)
	}
}

func TestReader_PositionInErrors(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x02, 0xff, 'x'}))
	if _, err := r.ReadName(); err != nil {
		t.Fatalf("ReadName: %v", err)
	}
	_, err := r.ReadName()
	if err == nil {
		t.Fatal("expected error for truncated name")
	}
	var pe *ParseError
	if werr := r.WrapError("import section", err); !errors.As(werr, &pe) || pe.Position != r.Position() {
		t.Errorf("wrapped = %v", werr)
	}
}

func TestWriter(t *testing.T) {
	w := NewWriter()
	w.WriteName("env")
	w.WriteU32(624485)
	w.WriteS64(-17)
	w.WriteU32LE(1)
	want := []byte{0x03, 'e', 'n', 'v', 0xe5, 0x8e, 0x26, 0x6f, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("bytes = % x, want % x", w.Bytes(), want)
	}
}

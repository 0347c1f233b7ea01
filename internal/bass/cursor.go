package bass

import "encoding/binary"

// Reader is a bounds-checked cursor over an immutable byte slice.
//
// The first short read is recorded and every later read returns zero values,
// so a parse function can read a whole layout and check Err once.
type Reader struct {
	buf []byte
	off int
	err *ParseError
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(field string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.buf)-r.off {
		r.err = &ParseError{
			Kind:   Truncated,
			Field:  field,
			Offset: r.off,
			Need:   n,
			Have:   len(r.buf) - r.off,
		}
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8(field string) uint8 {
	b := r.take(field, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

// LE16 reads a little-endian uint16.
func (r *Reader) LE16(field string) uint16 {
	b := r.take(field, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// LE24 reads a little-endian 24-bit value.
func (r *Reader) LE24(field string) uint32 {
	b := r.take(field, 3)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// LE32 reads a little-endian uint32.
func (r *Reader) LE32(field string) uint32 {
	b := r.take(field, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Bytes returns a copy of the next n bytes, nil when n is zero.
func (r *Reader) Bytes(field string, n int) []byte {
	b := r.take(field, n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset reports the cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Err returns the first short read, if any.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Done returns Err, or a TrailingBytes error when the buffer was not fully consumed.
func (r *Reader) Done() error {
	if err := r.Err(); err != nil {
		return err
	}
	if r.Remaining() > 0 {
		return &ParseError{Kind: TrailingBytes, Offset: r.off, Have: r.Remaining()}
	}
	return nil
}

// Writer appends little-endian fields to a buffer sized up front.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with room for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) PutU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PutLE16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) PutLE24(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16))
}

func (w *Writer) PutLE32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

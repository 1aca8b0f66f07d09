// Package codec implements the canonical, bijective binary encoding used
// to hash entities, deltas, and actions. Every encoder method appends a
// fixed-width or length-prefixed field in a single deterministic order,
// so two semantically equal values always produce byte-identical output
// regardless of platform or map iteration order — a requirement for
// content-addressed hashing to converge across replicas.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrTrailingBytes is returned by a Decoder's Done check when the input
// contains bytes past the last field read.
var ErrTrailingBytes = errors.New("codec: trailing bytes after decode")

// ErrShortBuffer is returned when a Decoder runs out of input mid-field.
var ErrShortBuffer = errors.New("codec: buffer too short")

// Encoder appends canonically-ordered fields to a growing byte buffer.
// Once any Put call fails, Err is set and further calls become no-ops, so
// callers can chain a sequence of Put calls and check Err once at the end.
type Encoder struct {
	buf []byte
	Err error
}

// NewEncoder returns an Encoder with an initial capacity hint.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated encoding, or the first error seen.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.buf, nil
}

// PutByte appends a single byte.
func (e *Encoder) PutByte(b byte) {
	if e.Err != nil {
		return
	}
	e.buf = append(e.buf, b)
}

// PutBool appends a one-byte boolean.
func (e *Encoder) PutBool(b bool) {
	if b {
		e.PutByte(1)
	} else {
		e.PutByte(0)
	}
}

// PutUint32 appends a 4-byte big-endian uint32.
func (e *Encoder) PutUint32(v uint32) {
	if e.Err != nil {
		return
	}
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// PutUint64 appends an 8-byte big-endian uint64.
func (e *Encoder) PutUint64(v uint64) {
	if e.Err != nil {
		return
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// PutFloat64 appends the IEEE-754 bit pattern of v, big-endian.
func (e *Encoder) PutFloat64(v float64) {
	e.PutUint64(math.Float64bits(v))
}

// PutFixed appends b unchanged, with no length prefix. Use only for
// already fixed-width fields (32-byte ids, signatures) where a prefix
// would be redundant.
func (e *Encoder) PutFixed(b []byte) {
	if e.Err != nil {
		return
	}
	e.buf = append(e.buf, b...)
}

// PutBytes appends a 4-byte big-endian length prefix followed by b.
func (e *Encoder) PutBytes(b []byte) {
	if e.Err != nil {
		return
	}
	e.PutUint32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// PutString appends s as length-prefixed UTF-8 bytes.
func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

// Decoder reads fields back out of a canonical encoding in the same
// order they were written. Like Encoder, the first error sticks.
type Decoder struct {
	buf []byte
	off int
	Err error
}

// NewDecoder wraps buf for sequential field reads.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) fail(err error) {
	if d.Err == nil {
		d.Err = err
	}
}

func (d *Decoder) take(n int) []byte {
	if d.Err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.fail(ErrShortBuffer)
		return nil
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out
}

// Byte reads a single byte.
func (d *Decoder) Byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a one-byte boolean.
func (d *Decoder) Bool() bool { return d.Byte() != 0 }

// Uint32 reads a 4-byte big-endian uint32.
func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Uint64 reads an 8-byte big-endian uint64.
func (d *Decoder) Uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Float64 reads an IEEE-754 float64.
func (d *Decoder) Float64() float64 {
	return math.Float64frombits(d.Uint64())
}

// Fixed reads exactly n raw bytes.
func (d *Decoder) Fixed(n int) []byte {
	b := d.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Bytes reads a length-prefixed byte slice.
func (d *Decoder) Bytes() []byte {
	n := d.Uint32()
	if d.Err != nil {
		return nil
	}
	return d.Fixed(int(n))
}

// String reads a length-prefixed UTF-8 string.
func (d *Decoder) String() string {
	return string(d.Bytes())
}

// Done reports an error if unread bytes remain, otherwise nil. Call
// after reading every expected field to catch a malformed/truncated
// encoding.
func (d *Decoder) Done() error {
	if d.Err != nil {
		return d.Err
	}
	if d.off != len(d.buf) {
		return ErrTrailingBytes
	}
	return nil
}

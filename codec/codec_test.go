package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder(0)
	enc.PutByte(7)
	enc.PutBool(true)
	enc.PutUint32(42)
	enc.PutUint64(1 << 40)
	enc.PutFloat64(3.5)
	enc.PutFixed([]byte{1, 2, 3, 4})
	enc.PutBytes([]byte("hello"))
	enc.PutString("world")
	buf, err := enc.Bytes()
	require.NoError(t, err)

	dec := NewDecoder(buf)
	require.Equal(t, byte(7), dec.Byte())
	require.True(t, dec.Bool())
	require.Equal(t, uint32(42), dec.Uint32())
	require.Equal(t, uint64(1<<40), dec.Uint64())
	require.InDelta(t, 3.5, dec.Float64(), 0)
	require.Equal(t, []byte{1, 2, 3, 4}, dec.Fixed(4))
	require.Equal(t, []byte("hello"), dec.Bytes())
	require.Equal(t, "world", dec.String())
	require.NoError(t, dec.Done())
}

func TestDecodeShortBuffer(t *testing.T) {
	dec := NewDecoder([]byte{1, 2})
	dec.Uint64()
	require.ErrorIs(t, dec.Err, ErrShortBuffer)
}

func TestDecodeTrailingBytes(t *testing.T) {
	dec := NewDecoder([]byte{1, 2, 3})
	dec.Byte()
	require.ErrorIs(t, dec.Done(), ErrTrailingBytes)
}

func TestDecodeErrShortCircuits(t *testing.T) {
	dec := NewDecoder([]byte{})
	dec.Uint32() // sets Err
	before := dec.Err
	dec.Byte()
	require.Same(t, before, dec.Err)
}

func TestCanonicalOrderingIsDeterministic(t *testing.T) {
	build := func() []byte {
		enc := NewEncoder(0)
		enc.PutString("key")
		enc.PutUint64(99)
		b, err := enc.Bytes()
		require.NoError(t, err)
		return b
	}
	require.Equal(t, build(), build())
}

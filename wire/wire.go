// Package wire implements the per-peer stream framing: length-prefixed
// StreamMessage records, each carrying a 12-byte nonce for replay
// protection. Frames are encoded with protobuf's low-level wire
// primitives directly (no .proto-generated types), since the message
// set is small and fixed and a full descriptor-driven generation step
// buys nothing here.
package wire

import (
	"encoding/binary"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/calimero-network/core/errs"
)

// Kind tags which StreamMessage variant a frame carries.
type Kind uint8

const (
	KindInit Kind = iota
	KindMessage
	KindOpaqueError
)

// field numbers for the hand-rolled protobuf wire encoding below.
const (
	fieldKind       = 1
	fieldNonce      = 2
	fieldInitBytes  = 3
	fieldSeqID      = 4
	fieldPayload    = 5
	fieldNextNonce  = 6
	fieldErrorBytes = 7
)

const nonceSize = 12

// StreamMessage is one frame on a per-peer stream.
type StreamMessage struct {
	Kind Kind
	// Nonce is this frame's own replay-protection nonce.
	Nonce [nonceSize]byte

	// Init holds the serialized sync.Init handshake when Kind == KindInit.
	Init []byte

	// Message fields, meaningful when Kind == KindMessage.
	SequenceID uint64
	Payload    []byte
	NextNonce  uint64

	// Error holds an opaque error payload when Kind == KindOpaqueError.
	// Opaque: the wire layer never interprets error contents, only
	// transports them, so a peer cannot use error detail as an oracle.
	Error []byte
}

// Marshal encodes m using length-delimited protobuf wire primitives.
func (m StreamMessage) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Kind))

	b = protowire.AppendTag(b, fieldNonce, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Nonce[:])

	switch m.Kind {
	case KindInit:
		b = protowire.AppendTag(b, fieldInitBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Init)
	case KindMessage:
		b = protowire.AppendTag(b, fieldSeqID, protowire.VarintType)
		b = protowire.AppendVarint(b, m.SequenceID)
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Payload)
		b = protowire.AppendTag(b, fieldNextNonce, protowire.VarintType)
		b = protowire.AppendVarint(b, m.NextNonce)
	case KindOpaqueError:
		b = protowire.AppendTag(b, fieldErrorBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Error)
	}
	return b
}

// Unmarshal decodes a frame previously produced by Marshal.
func Unmarshal(b []byte) (StreamMessage, error) {
	var m StreamMessage
	haveNonce := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed tag"}
		}
		b = b[n:]

		switch num {
		case fieldKind:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed kind"}
			}
			m.Kind = Kind(v)
			b = b[n:]
		case fieldNonce:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || len(v) != nonceSize {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed nonce"}
			}
			copy(m.Nonce[:], v)
			haveNonce = true
			b = b[n:]
		case fieldInitBytes:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed init payload"}
			}
			m.Init = append([]byte{}, v...)
			b = b[n:]
		case fieldSeqID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed sequence id"}
			}
			m.SequenceID = v
			b = b[n:]
		case fieldPayload:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed message payload"}
			}
			m.Payload = append([]byte{}, v...)
			b = b[n:]
		case fieldNextNonce:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed next nonce"}
			}
			m.NextNonce = v
			b = b[n:]
		case fieldErrorBytes:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: malformed error payload"}
			}
			m.Error = append([]byte{}, v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return StreamMessage{}, &errs.InvalidData{Reason: "wire: unknown field"}
			}
			b = b[n:]
		}
	}

	if !haveNonce {
		return StreamMessage{}, &errs.InvalidData{Reason: "wire: frame missing nonce"}
	}
	return m, nil
}

// WriteFrame writes m to w as a 4-byte big-endian length prefix
// followed by its marshaled bytes, the stream framing spec.md
// prescribes.
func WriteFrame(w io.Writer, m StreamMessage) error {
	body := m.Marshal()
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// MaxFrameSize bounds a single frame body, refusing to allocate an
// unbounded buffer for a corrupt or hostile length prefix.
const MaxFrameSize = 64 << 20

// ReadFrame reads one length-prefixed frame from r and decodes it.
func ReadFrame(r io.Reader) (StreamMessage, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return StreamMessage{}, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > MaxFrameSize {
		return StreamMessage{}, &errs.InvalidData{Reason: "wire: frame exceeds max size"}
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return StreamMessage{}, err
	}
	return Unmarshal(body)
}

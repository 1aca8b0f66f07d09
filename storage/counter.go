package storage

import (
	"sort"

	"github.com/calimero-network/core/codec"
	"github.com/calimero-network/core/crdt"
)

// EncodeCounter canonically serializes a Counter's positive and negative
// GCounters so two replicas that merge the same logical state always
// produce byte-identical entity data.
func EncodeCounter(c *crdt.Counter) ([]byte, error) {
	enc := codec.NewEncoder(64)
	encodeGCounter(enc, c.Pos)
	encodeGCounter(enc, c.Neg)
	return enc.Bytes()
}

func encodeGCounter(enc *codec.Encoder, g *crdt.GCounter) {
	nodes := make([]string, 0, len(g.Counts))
	for n := range g.Counts {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	enc.PutUint32(uint32(len(nodes)))
	for _, n := range nodes {
		enc.PutString(n)
		enc.PutUint64(g.Counts[n])
	}
}

// DecodeCounter parses bytes produced by EncodeCounter.
func DecodeCounter(b []byte) (*crdt.Counter, error) {
	dec := codec.NewDecoder(b)
	pos := decodeGCounter(dec)
	neg := decodeGCounter(dec)
	if err := dec.Done(); err != nil {
		return nil, err
	}
	return &crdt.Counter{Pos: pos, Neg: neg}, nil
}

func decodeGCounter(dec *codec.Decoder) *crdt.GCounter {
	g := crdt.NewGCounter()
	n := dec.Uint32()
	for i := uint32(0); i < n; i++ {
		node := dec.String()
		total := dec.Uint64()
		g.Counts[node] = total
	}
	return g
}

// mergeCounterBytes decodes both sides as Counters, merges them via the
// CRDT library, and re-encodes — the one built-in crdt_type whose
// merge must inspect the decoded value rather than the container's
// bookkeeping bytes alone, since a counter carries no child entities.
func mergeCounterBytes(local, remote []byte) ([]byte, bool, error) {
	if len(local) == 0 {
		return remote, true, nil
	}
	if len(remote) == 0 {
		return local, true, nil
	}
	l, err := DecodeCounter(local)
	if err != nil {
		return nil, false, err
	}
	r, err := DecodeCounter(remote)
	if err != nil {
		return nil, false, err
	}
	merged, err := l.Merge(r)
	if err != nil {
		return nil, false, err
	}
	out, err := EncodeCounter(merged)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

package sync

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// Bloom is the filter a BloomFilterRequest trades: built over one
// side's known entity-id set, sent to the peer, which then returns the
// entities it has that the filter reports absent.
type Bloom struct {
	bits   *bitset.BitSet
	k      uint8
	nbits  uint64
}

// NewBloom sizes a filter for n elements at the given target false
// positive rate, picking bit count and hash rounds by the standard
// formulas (m = -n*ln(p)/ln(2)^2, k = m/n*ln(2)).
func NewBloom(n int, falsePositiveRate float64) *Bloom {
	if n < 1 {
		n = 1
	}
	m := optimalBits(n, falsePositiveRate)
	k := optimalHashCount(m, n)
	return &Bloom{bits: bitset.New(uint(m)), k: k, nbits: m}
}

func optimalBits(n int, p float64) uint64 {
	if p <= 0 {
		p = 1e-6
	}
	// ln(2)^2 ~= 0.4805
	m := -float64(n) * math.Log(p) / 0.4804530139182014
	if m < 8 {
		m = 8
	}
	return uint64(m)
}

func optimalHashCount(m uint64, n int) uint8 {
	if n < 1 {
		n = 1
	}
	k := float64(m) / float64(n) * 0.6931471805599453 // ln(2)
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return uint8(k)
}

// Add inserts id's bytes into the filter.
func (b *Bloom) Add(id []byte) {
	for i := uint8(0); i < b.k; i++ {
		b.bits.Set(uint(b.hash(id, i) % b.nbits))
	}
}

// MayContain reports whether id could be a member (false means
// definitely absent; true may be a false positive).
func (b *Bloom) MayContain(id []byte) bool {
	for i := uint8(0); i < b.k; i++ {
		if !b.bits.Test(uint(b.hash(id, i) % b.nbits)) {
			return false
		}
	}
	return true
}

// hash derives the i-th hash round by double hashing (h1 + i*h2), where
// h1 is the xxhash of id and h2 the xxhash of id with 0xff appended.
// Both digests are recomputed on every call, so k rounds cost 2k xxhash
// calls.
func (b *Bloom) hash(id []byte, round uint8) uint64 {
	h1 := xxhash.Sum64(id)
	h2 := xxhash.Sum64(append(append([]byte{}, id...), 0xff))
	return h1 + uint64(round)*h2
}

// Diff returns the ids from candidates this filter reports as absent,
// the peer-side half of a BloomFilterRequest/Response round trip.
func (b *Bloom) Diff(candidates [][]byte) [][]byte {
	var missing [][]byte
	for _, c := range candidates {
		if !b.MayContain(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

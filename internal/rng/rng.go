package rng

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// Source is a deterministic, splittable pseudo-random source backed by a
// ChaCha20 keystream. The zero value is not usable; construct with
// NewSource or Derive.
//
// Source is not safe for concurrent use; the search algorithms in package
// algorithm are single-threaded per spec.md §5, so no locking is applied.
type Source struct {
	cipher *chacha20.Cipher
	buf    [8]byte // scratch for the next 8-byte draw
}

// NewSource returns a Source whose keystream is uniquely determined by
// seed. Equal seeds on any platform produce bit-identical draw sequences.
//
// Complexity: O(1).
func NewSource(seed uint64) *Source {
	var key [chacha20.KeySize]byte
	binary.LittleEndian.PutUint64(key[0:8], seed)
	// Remaining key bytes stay zero: the seed is the sole entropy input,
	// matching the "no hidden OS/time entropy" requirement in spec.md §5.
	nonce := make([]byte, chacha20.NonceSize)

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		// key/nonce lengths are fixed-size arrays above; this can only
		// fail if the x/crypto contract itself changes.
		panic("rng: chacha20 cipher construction failed: " + err.Error())
	}

	return &Source{cipher: c}
}

// Uint64 returns the next 8 bytes of keystream as a little-endian uint64.
//
// Complexity: O(1).
func (s *Source) Uint64() uint64 {
	var zero [8]byte
	s.cipher.XORKeyStream(s.buf[:], zero[:])

	return binary.LittleEndian.Uint64(s.buf[:])
}

// Intn returns a pseudo-random integer in [0, n). Panics if n <= 0.
//
// Complexity: O(1) amortized (one rejection-sampling retry loop to avoid
// modulo bias).
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	if n == 1 {
		return 0
	}

	un := uint64(n)
	// Rejection sampling against the largest multiple of un that fits in
	// 64 bits, to avoid modulo bias.
	limit := (^uint64(0) / un) * un
	for {
		v := s.Uint64()
		if v < limit {
			return int(v % un)
		}
	}
}

// Shuffle performs an in-place Fisher-Yates shuffle of indices [0, n) order
// using swap(i, j).
//
// Complexity: O(n).
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		swap(i, j)
	}
}

// SampleDistinct draws k distinct indices from [0, n) without replacement,
// uniformly over all size-k subsets, via partial Fisher-Yates. It is used
// by the GRASP construction phase (spec.md §4.6.2) to pick the randomized
// restricted-candidate subset.
//
// Panics if k > n or k < 0.
//
// Complexity: O(n) time, O(n) space.
func (s *Source) SampleDistinct(k, n int) []int {
	if k < 0 || k > n {
		panic("rng: SampleDistinct requires 0 <= k <= n")
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:k]
}

// Derive returns an independent child Source for the given stream id. The
// child's keystream is seeded from a SplitMix64 mix of one draw from the
// parent and streamID, so that distinct stream ids never collide and
// reusing a parent across derivations does not correlate the children.
//
// This is the ChaCha20 generalization of the teacher's tsp/rng.go
// deriveRNG/deriveSeed pattern (mirrors the SplitMix64 constants exactly;
// see Vigna 2014).
//
// Complexity: O(1).
func (s *Source) Derive(streamID uint64) *Source {
	parent := s.Uint64()

	x := parent ^ (streamID + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return NewSource(x)
}

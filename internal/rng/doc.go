// Package rng provides the deterministic, splittable pseudo-random source
// used by the search algorithms in package algorithm.
//
// Design goals:
//   - Determinism: same seed => identical draw sequence on every platform,
//     regardless of machine word size (spec.md §5, §9).
//   - Splittability: independent substreams can be derived from a parent
//     source without consuming the parent's own sequence in a
//     caller-visible way beyond one mixing draw (tsp/rng.go's deriveRNG
//     pattern, generalized).
//   - No hidden time- or OS-entropy source; the only input is the caller's
//     seed.
//
// The source is a ChaCha20 keystream read as an infinite byte stream
// (golang.org/x/crypto/chacha20), which is what spec.md §4.6.2 calls a
// "ChaCha20 stream cipher as a deterministic PRNG" and §9 generalizes to
// "any deterministic, splittable, stream-cipher-grade PRNG". A keystream
// is a pure function of (key, nonce, counter), which is exactly what
// reproducibility across runs and platforms requires.
package rng

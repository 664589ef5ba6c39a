package fluxruntime

import (
	"crypto/rand"
	"encoding/binary"
)

// seedModulus bounds seeds to the 32-bit range the model's RNG accepts.
const seedModulus = int64(1) << 32

// DeriveSeed computes the seed for the sub-invocation at the given ordinal.
// A base seed yields the deterministic sequence base, base+1, base+2, ...
// folded into the valid 32-bit range. A nil base returns nil, leaving seed
// selection to the backend.
// This is a pure function with no side effects.
func DeriveSeed(base *int64, ordinal int) *int64 {
	if base == nil {
		return nil
	}

	seed := *base + int64(ordinal)
	if seed < 0 {
		seed = -seed
	}
	// -MinInt64 == MinInt64, still negative after negation
	if seed < 0 {
		seed = 0
	}
	seed %= seedModulus

	return &seed
}

// RandomSeed generates a cryptographically secure random seed.
// Returns a value in the valid 32-bit seed range.
func RandomSeed() int64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// Fallback to a fixed seed if crypto/rand fails (extremely rare).
		// This is better than panicking in production.
		return 42
	}

	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	if seed < 0 {
		seed = -seed
	}
	if seed < 0 {
		seed = 0
	}
	return seed % seedModulus
}

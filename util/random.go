// Package util provides small cryptographically-random helpers shared by the
// acceptance and merge pipelines, which both need unlinkable nonces and
// uniform random selection without falling back to math/rand.
package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomBytes returns a cryptographically random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// Random32 returns a cryptographically random 32-byte array, used as the
// unlinkability nonce embedded in acceptance branch names.
func Random32() [32]byte {
	var out [32]byte
	copy(out[:], RandomBytes(32))
	return out
}

// RandomHex returns a random hex string encoding n random bytes.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// RandomInt returns a cryptographically random integer in [min, max).
func RandomInt(min, max int) int {
	if max <= min {
		panic("util: RandomInt requires max > min")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		panic(err)
	}
	return int(n.Int64()) + min
}

// RandomDigestHex returns a random 32-byte digest encoded as hex, the same
// shape as a sha256 content digest. The merge controller uses this to
// overwrite a merged contest blob's digest so its ciphertext can no longer be
// linked back to the pre-merge branch that produced it.
func RandomDigestHex() string {
	return RandomHex(32)
}

// ShuffleIndices returns a permutation of [0, n) chosen uniformly at random
// via a Fisher-Yates shuffle driven by crypto/rand, used by the merge
// controller to select cast branches without replacement.
func ShuffleIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := RandomInt(0, i+1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// TrimHex trims a leading "0x"/"0X" prefix from a hex string, if present.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

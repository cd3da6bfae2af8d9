// Package token generates cryptographically strong secrets and
// human-readable codes. All functions are pure and stateless; they draw from
// crypto/rand and nothing else.
//
// Exhaustion of the system randomness source is a fatal environment error,
// not something a caller can recover from, so these functions panic instead
// of returning an error.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SetupCodeAlphabet is the character set for human-readable setup codes.
// Visually ambiguous characters (O, I, 0, 1) are excluded so codes survive
// being read aloud or retyped from paper.
const SetupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// setupCodePrefix brands setup codes so support staff can recognize them.
const setupCodePrefix = "ONW"

// RandomBytes returns n bytes from the secure randomness source.
func RandomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("token: randomness source failed: %v", err))
	}
	return buf
}

// RandomHex returns a hex string of 2n characters from n random bytes.
func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}

// RandomURLSafe returns a base64url string from n random bytes, suitable for
// opaque secrets such as magic-link tokens and API keys.
func RandomURLSafe(n int) string {
	return base64.RawURLEncoding.EncodeToString(RandomBytes(n))
}

// RandomCode draws length characters uniformly from alphabet.
//
// Uniformity uses rejection sampling: random bytes at or above the largest
// multiple of len(alphabet) below 256 are discarded, so alphabets whose size
// does not evenly divide 256 introduce no modulo bias.
func RandomCode(length int, alphabet string) string {
	if length <= 0 {
		return ""
	}
	if len(alphabet) == 0 || len(alphabet) > 256 {
		panic(fmt.Sprintf("token: invalid alphabet size %d", len(alphabet)))
	}

	// Largest multiple of len(alphabet) representable in a byte.
	limit := 256 - (256 % len(alphabet))

	out := make([]byte, 0, length)
	for len(out) < length {
		batch := RandomBytes(length - len(out))
		for _, b := range batch {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}

// FormattedSetupCode returns a PREFIX-XXX-XXXX shaped code, e.g.
// "ONW-7FK-Q2MH". The groups come from SetupCodeAlphabet so no character is
// visually ambiguous.
func FormattedSetupCode() string {
	return setupCodePrefix + "-" + RandomCode(3, SetupCodeAlphabet) + "-" + RandomCode(4, SetupCodeAlphabet)
}

package token

import (
	"encoding/hex"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytes(t *testing.T) {
	a := RandomBytes(32)
	b := RandomBytes(32)
	require.Len(t, a, 32)
	require.Len(t, b, 32)
	assert.NotEqual(t, a, b, "two draws should differ")
}

func TestRandomHex(t *testing.T) {
	s := RandomHex(16)
	require.Len(t, s, 32)
	_, err := hex.DecodeString(s)
	require.NoError(t, err)
}

func TestRandomCode(t *testing.T) {
	t.Run("draws only from the alphabet", func(t *testing.T) {
		const alphabet = "abc"
		code := RandomCode(256, alphabet)
		require.Len(t, code, 256)
		for _, r := range code {
			assert.Contains(t, alphabet, string(r))
		}
	})

	t.Run("zero length yields empty string", func(t *testing.T) {
		assert.Equal(t, "", RandomCode(0, "abc"))
	})

	t.Run("covers the whole alphabet over many draws", func(t *testing.T) {
		// With 2048 draws from a 32-character alphabet, a missing character
		// would indicate the sampler is skipping part of the range.
		seen := map[rune]bool{}
		for _, r := range RandomCode(2048, SetupCodeAlphabet) {
			seen[r] = true
		}
		assert.Len(t, seen, len(SetupCodeAlphabet))
	})
}

func TestFormattedSetupCode(t *testing.T) {
	shape := regexp.MustCompile(`^ONW-[A-Z2-9]{3}-[A-Z2-9]{4}$`)

	for i := 0; i < 100; i++ {
		code := FormattedSetupCode()
		require.Regexp(t, shape, code)

		// No visually ambiguous characters, ever.
		for _, forbidden := range []string{"O", "I", "0", "1"} {
			body := strings.TrimPrefix(code, "ONW-")
			assert.NotContains(t, body, forbidden, "code %q", code)
		}
	}
}

func TestFormattedSetupCode_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := FormattedSetupCode()
		assert.False(t, seen[code], "duplicate code %q after %d draws", code, i)
		seen[code] = true
	}
}

package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "onward/pkg/domain-errors"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 43) // 32 bytes base64url without padding
	assert.NotContains(t, a, "=")
}

func TestHashAndVerify(t *testing.T) {
	secret, err := Generate()
	require.NoError(t, err)

	hash, err := Hash(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, hash)

	assert.NoError(t, Verify(secret, hash))

	err = Verify("wrong", hash)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestHashRejectsBadInput(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	// bcrypt caps input at 72 bytes
	_, err = Hash(strings.Repeat("x", 100))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

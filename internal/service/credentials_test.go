package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashTokenIsDeterministicHex(t *testing.T) {
	first := hashToken("some-token")
	second := hashToken("some-token")
	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.NotEqual(t, first, hashToken("other-token"))
}

func TestNewResetTokenShape(t *testing.T) {
	token, err := newResetToken()
	require.NoError(t, err)
	require.Len(t, token, 40)

	other, err := newResetToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestNewOneTimeCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newOneTimeCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestTokenHashEquals(t *testing.T) {
	hash := hashToken("value")
	require.True(t, tokenHashEquals(hash, hashToken("value")))
	require.False(t, tokenHashEquals(hash, hashToken("different")))
}

package code

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	plaintext, hash, err := Generate()
	require.NoError(t, err)

	t.Run("code uses the unambiguous alphabet", func(t *testing.T) {
		assert.Len(t, plaintext, Length)
		for _, c := range plaintext {
			assert.Contains(t, Alphabet, string(c))
		}
		for _, forbidden := range "0O1IL" {
			assert.NotContains(t, plaintext, string(forbidden))
		}
	})

	t.Run("hash never contains the plaintext", func(t *testing.T) {
		assert.NotContains(t, string(hash), plaintext)
	})

	t.Run("codes are unique across draws", func(t *testing.T) {
		seen := map[string]bool{plaintext: true}
		for i := 0; i < 20; i++ {
			p, _, err := Generate()
			require.NoError(t, err)
			assert.False(t, seen[p], "duplicate code %s", p)
			seen[p] = true
		}
	})
}

func TestVerify(t *testing.T) {
	plaintext, hash, err := Generate()
	require.NoError(t, err)

	t.Run("correct code matches", func(t *testing.T) {
		assert.True(t, Verify(hash, plaintext))
	})

	t.Run("matching is case and whitespace tolerant", func(t *testing.T) {
		assert.True(t, Verify(hash, "  "+strings.ToLower(plaintext)+" "))
	})

	t.Run("wrong code fails", func(t *testing.T) {
		assert.False(t, Verify(hash, "AAAAAA"))
	})

	t.Run("consumed code never matches", func(t *testing.T) {
		assert.False(t, Verify(nil, plaintext))
		assert.False(t, Verify([]byte{}, plaintext))
	})
}

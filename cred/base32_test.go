package cred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase32PaddingLengths(t *testing.T) {
	for n := 0; n <= 10; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*37 + n)
		}
		enc := EncodeUnpadded(data)
		assert.NotContains(t, enc, "=")
		dec, err := DecodePadded(enc)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, data, dec)
	}
}

func TestDecodePaddedRejectsImpossibleLengths(t *testing.T) {
	for _, s := range []string{"A", "AAA", "AAAAAA", "AAAAAAAAA"} {
		_, err := DecodePadded(s)
		require.Error(t, err, s)
		assert.True(t, IsKind(err, KindDecode))
		assert.Equal(t, "CRED-B32-001", RuleID(err))
	}
	_, err := DecodePadded("11")
	require.Error(t, err)
	assert.Equal(t, "CRED-B32-002", RuleID(err))
}

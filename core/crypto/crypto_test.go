package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRef(t *testing.T) {
	ref, err := GenerateRef(16)
	require.NoError(t, err)
	assert.Len(t, ref, 22) // 16 bytes in unpadded base64

	other, err := GenerateRef(16)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)
}

func TestGenerateRefRejectsNonPositiveLength(t *testing.T) {
	_, err := GenerateRef(0)
	require.Error(t, err)

	_, err = GenerateRef(-4)
	require.Error(t, err)
}

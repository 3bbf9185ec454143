package storage

import (
	"testing"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePixels(t *testing.T) {
	in := typedef.PixelData{
		"1": {{X: 0, Y: 0}, {X: 1723, Y: 1290}},
		"2": {},
	}
	gz, err := EncodePixels(in)
	require.NoError(t, err)

	out, err := DecodePixels(gz)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodePixelsRejectsPlainJSON(t *testing.T) {
	_, err := DecodePixels([]byte(`{"1": [[0,0]]}`))
	assert.Error(t, err)
}

func TestDataDirOverride(t *testing.T) {
	t.Setenv("ASGARIA_DATA_DIR", "/tmp/asgaria-test")
	assert.Equal(t, "/tmp/asgaria-test", resolveDataDir())
}

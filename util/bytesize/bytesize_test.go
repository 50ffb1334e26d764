package bytesize

import (
	"testing"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected ByteSize
	}{
		{"512", 512},
		{"4KB", 4 * KB},
		{"4k", 4 * KB},
		{"4MB", 4 * MB},
		{" 1.5 mb ", ByteSize(1.5 * float64(MB))},
		{"2G", 2 * GB},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			size, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, size)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "MB", "4XB", "1.2.3K"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
		})
	}
}

func TestParseOrDefault(t *testing.T) {
	assert.Equal(t, 4*MB, ParseOrDefault("4MB", KB))
	assert.Equal(t, KB, ParseOrDefault("nope", KB))
	assert.Equal(t, KB, ParseOrDefault("0", KB))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512 B", ByteSize(512).String())
	assert.Equal(t, "4.00 MB", (4 * MB).String())
	assert.Equal(t, "1.50 KB", ByteSize(1536).String())
}

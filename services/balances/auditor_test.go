package balances

import (
	"math"
	"testing"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLostValue(t *testing.T) {
	tests := []struct {
		name     string
		subsidy  uint64
		spent    uint64
		created  uint64
		expected int64
	}{
		{"balanced coinbase", 5_000_000_000, 0, 5_000_000_000, 0},
		{"fees not claimed", 5_000_000_000, 5_000_000_000, 4_999_990_000, 5_000_010_000},
		{"created exceeds inputs", 0, 10, 25, -15},
		{"nothing", 0, 0, 0, 0},
		{"max range", math.MaxInt64 / 2, math.MaxInt64 / 2, 0, math.MaxInt64 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lost, err := LostValue(tt.subsidy, tt.spent, tt.created)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, lost)
		})
	}
}

func TestLostValue_OutOfRange(t *testing.T) {
	_, err := LostValue(math.MaxUint64, 0, 0)
	assert.True(t, errors.Is(err, errors.ErrProcessing))

	_, err = LostValue(0, 0, math.MaxInt64+1)
	assert.True(t, errors.Is(err, errors.ErrProcessing))

	_, err = LostValue(math.MaxInt64, 1, 0)
	assert.True(t, errors.Is(err, errors.ErrProcessing))
}

package model

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesisCoinbaseHex = "01000000010000000000000000000000000000000000000000000000000000000000000000ffffffff4d04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73ffffffff0100f2052a01000000434104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac00000000"

func TestNewBlockFromBytes(t *testing.T) {
	blockBytes, err := hex.DecodeString(block1)
	require.NoError(t, err)

	block, err := NewBlockFromBytes(blockBytes)
	require.NoError(t, err)

	assert.Equal(t, "4c74e0128fef1a01469380c05b215afaf4cfe51183461f4a7996a84295b6925a", block.Hash().String())
	assert.Equal(t, "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206", block.Header.HashPrevBlock.String())
	assert.Equal(t, uint64(len(blockBytes)), block.Size)
	require.Equal(t, 1, block.TransactionCount())

	coinbase := block.Transactions[0]
	assert.True(t, coinbase.IsCoinbase())
	assert.Equal(t, block.Header.HashMerkleRoot.String(), coinbase.TxID())
	require.Len(t, coinbase.Outputs, 1)
	assert.Equal(t, uint64(5_000_000_000), coinbase.Outputs[0].Satoshis)

	serialized, err := block.Bytes()
	require.NoError(t, err)
	assert.Equal(t, blockBytes, serialized)
}

func TestNewBlockFromReader_GenesisBlock(t *testing.T) {
	header, err := NewBlockHeaderFromString(genesisHeaderHex)
	require.NoError(t, err)

	coinbase, err := bt.NewTxFromString(genesisCoinbaseHex)
	require.NoError(t, err)

	block := NewBlock(header, []*bt.Tx{coinbase})

	b, err := block.Bytes()
	require.NoError(t, err)
	assert.Len(t, b, 285)

	parsed, err := NewBlockFromReader(bytes.NewReader(b))
	require.NoError(t, err)

	assert.Equal(t, genesisHash, parsed.String())
	require.Len(t, parsed.Transactions, 1)
	assert.Equal(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b", parsed.Transactions[0].TxID())
}

func TestNewBlockFromBytes_Truncated(t *testing.T) {
	blockBytes, err := hex.DecodeString(block1)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", blockBytes[:80]},
		{"partial transaction", blockBytes[:len(blockBytes)-10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBlockFromBytes(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
		})
	}
}

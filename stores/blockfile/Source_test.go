package blockfile

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/stores/blockindex"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBlockFile stores blocks in blk<fileNum>.dat the way bitcoind does and returns their index.
func writeBlockFile(t *testing.T, dir string, fileNum int, net wire.BitcoinNet, blocks []*model.Block, firstHeight int) []*blockindex.BlockIndex {
	t.Helper()

	var (
		content []byte
		indexes []*blockindex.BlockIndex
	)

	for i, block := range blocks {
		data, err := block.Bytes()
		require.NoError(t, err)

		content = binary.LittleEndian.AppendUint32(content, uint32(net))
		content = binary.LittleEndian.AppendUint32(content, uint32(len(data)))

		indexes = append(indexes, &blockindex.BlockIndex{
			Hash:        block.Hash(),
			Height:      uint32(firstHeight + i),
			Status:      blockindex.BlockValidScripts | blockindex.BlockHaveData,
			TxCount:     uint64(block.TransactionCount()),
			File:        fileNum,
			DataPos:     uint64(len(content)),
			BlockHeader: block.Header,
		})

		content = append(content, data...)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, blkName(fileNum)), content, 0600))

	return indexes
}

func blkName(fileNum int) string {
	return fmt.Sprintf("blk%05d.dat", fileNum)
}

func testBlocks(t *testing.T, count int) []*model.Block {
	t.Helper()

	blocks := make([]*model.Block, 0, count)

	var prev *chainhash.Hash

	for i := 0; i < count; i++ {
		cb, err := model.NewTestCoinbaseTx(uint32(i), model.TestOutput{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Satoshis: 5_000_000_000})
		require.NoError(t, err)

		block := model.NewTestBlock(prev, cb)
		blocks = append(blocks, block)
		prev = block.Hash()
	}

	return blocks
}

func TestSource_ReadsBlocksAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	blocks := testBlocks(t, 5)

	chain := writeBlockFile(t, dir, 0, wire.MainNet, blocks[:3], 0)
	chain = append(chain, writeBlockFile(t, dir, 1, wire.MainNet, blocks[3:], 3)...)

	source := NewSourceFromChain(ulogger.TestLogger{}, dir, wire.MainNet, chain)

	defer func() {
		require.NoError(t, source.Close())
	}()

	assert.Equal(t, uint64(4), source.BestHeight())

	// out of order reads switch between files
	for _, height := range []uint64{0, 1, 2, 3, 4, 0, 4} {
		block, err := source.BlockAtHeight(context.Background(), height)
		require.NoError(t, err)
		assert.Equal(t, blocks[height].Hash().String(), block.Hash().String())
		assert.Equal(t, 1, block.TransactionCount())
	}

	_, err := source.BlockAtHeight(context.Background(), 5)
	assert.True(t, errors.Is(err, errors.ErrBlockNotFound))
}

func TestSource_WrongNetwork(t *testing.T) {
	dir := t.TempDir()
	chain := writeBlockFile(t, dir, 0, wire.TestNet, testBlocks(t, 1), 0)

	source := NewSourceFromChain(ulogger.TestLogger{}, dir, wire.MainNet, chain)

	_, err := source.BlockAtHeight(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
}

func TestSource_HashMismatch(t *testing.T) {
	dir := t.TempDir()
	blocks := testBlocks(t, 2)
	chain := writeBlockFile(t, dir, 0, wire.MainNet, blocks, 0)

	chain[1].Hash = blocks[0].Hash()

	source := NewSourceFromChain(ulogger.TestLogger{}, dir, wire.MainNet, chain)

	_, err := source.BlockAtHeight(context.Background(), 1)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
}

func TestSource_MissingFile(t *testing.T) {
	dir := t.TempDir()
	chain := writeBlockFile(t, dir, 0, wire.MainNet, testBlocks(t, 1), 0)
	chain[0].File = 7

	source := NewSourceFromChain(ulogger.TestLogger{}, dir, wire.MainNet, chain)

	_, err := source.BlockAtHeight(context.Background(), 0)
	assert.True(t, errors.Is(err, errors.ErrStorageError))
}

func TestSource_SizeBeyondFile(t *testing.T) {
	dir := t.TempDir()
	chain := writeBlockFile(t, dir, 0, wire.MainNet, testBlocks(t, 1), 0)

	path := filepath.Join(dir, blkName(0))
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	binary.LittleEndian.PutUint32(content[4:8], uint32(len(content)))
	require.NoError(t, os.WriteFile(path, content, 0600))

	source := NewSourceFromChain(ulogger.TestLogger{}, dir, wire.MainNet, chain)

	_, err = source.BlockAtHeight(context.Background(), 0)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
}

func TestSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewSourceFromChain(ulogger.TestLogger{}, t.TempDir(), wire.MainNet, nil)

	_, err := source.BlockAtHeight(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := ExpandPath("~/.bitcoin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".bitcoin"), path)

	path, err = ExpandPath("/data/bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "/data/bitcoin", path)
}

package simplestats

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cb0, err := model.NewTestCoinbaseTx(5, model.TestOutput{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Satoshis: 5_000_000_000})
	require.NoError(t, err)

	cb1, err := model.NewTestCoinbaseTx(6, model.TestOutput{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Satoshis: 5_000_000_000})
	require.NoError(t, err)

	tx, err := model.NewTestTx(
		[]model.TestOutpoint{{TxID: cb0.TxIDChainHash(), Vout: 0}},
		model.TestOutput{Address: "1HLoD9E4SDFFPDiYfNYnkBLQ85Y51J3Zb1", Satoshis: 2_000_000_000},
		model.TestOutput{Address: "12cbQLTFMXRnSzktFkuoG3eHoMeFtpTu3S", Satoshis: 2_999_000_000},
		model.TestOutput{Satoshis: 0},
	)
	require.NoError(t, err)

	block0 := model.NewTestBlock(nil, cb0)
	block1 := model.NewTestBlock(block0.Hash(), cb1, tx)

	collector := New(ulogger.TestLogger{}, dir)
	assert.Equal(t, "simplestats", collector.Name())

	require.NoError(t, collector.Start(ctx, 5))
	require.NoError(t, collector.ProcessBlock(ctx, block0, 5))
	assert.True(t, errors.Is(collector.ProcessBlock(ctx, block1, 7), errors.ErrInvalidArgument))
	require.NoError(t, collector.ProcessBlock(ctx, block1, 6))
	assert.True(t, errors.Is(collector.Complete(ctx, 4), errors.ErrInvalidArgument))
	assert.True(t, errors.Is(collector.Complete(ctx, 7), errors.ErrInvalidArgument))
	require.NoError(t, collector.Complete(ctx, 6))

	data, err := os.ReadFile(filepath.Join(dir, "simplestats-5-6.json"))
	require.NoError(t, err)

	var report Report
	require.NoError(t, jsoniter.Unmarshal(data, &report))

	assert.Equal(t, uint64(5), report.StartHeight)
	assert.Equal(t, uint64(6), report.EndHeight)
	assert.Equal(t, uint64(2), report.Blocks)
	assert.Equal(t, uint64(3), report.Transactions)
	assert.Equal(t, uint64(2), report.CoinbaseTransactions)
	assert.Equal(t, uint64(1), report.Inputs)
	assert.Equal(t, uint64(5), report.Outputs)
	assert.Equal(t, uint64(14_999_000_000), report.OutputValue)

	require.NotNil(t, report.LargestBlock)
	assert.Equal(t, uint64(6), report.LargestBlock.Height)
	assert.Equal(t, block1.String(), report.LargestBlock.Hash)

	require.NotNil(t, report.MostOutputsTx)
	assert.Equal(t, tx.TxID(), report.MostOutputsTx.TxID)
	assert.Equal(t, 3, report.MostOutputsTx.Outputs)
}

func TestCollector_Errors(t *testing.T) {
	ctx := context.Background()

	collector := New(ulogger.TestLogger{}, filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(collector.Start(ctx, 0), errors.ErrStorageError))
	assert.True(t, errors.Is(collector.Complete(ctx, 0), errors.ErrProcessing))

	dir := t.TempDir()
	collector = New(ulogger.TestLogger{}, dir)
	require.NoError(t, collector.Start(ctx, 0))
	assert.True(t, errors.Is(collector.ProcessBlock(ctx, nil, 0), errors.ErrInvalidArgument))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "simplestats-0-0.json"), 0755))
	assert.True(t, errors.Is(collector.Complete(ctx, 0), errors.ErrFatal))
}

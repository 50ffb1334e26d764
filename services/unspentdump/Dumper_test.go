package unspentdump

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() *settings.Settings {
	return &settings.Settings{
		ChainCfgParams: &chaincfg.MainNetParams,
		Balances: settings.BalancesSettings{
			UnspentCapacity:  64,
			WriterBufferSize: "1KB",
		},
	}
}

func TestDumper_WritesLiveOutputs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cb, err := model.NewTestCoinbaseTx(0,
		model.TestOutput{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Satoshis: 4_000_000_000},
		model.TestOutput{Address: "12cbQLTFMXRnSzktFkuoG3eHoMeFtpTu3S", Satoshis: 1_000_000_000},
	)
	require.NoError(t, err)

	block0 := model.NewTestBlock(nil, cb)

	tx, err := model.NewTestTx(
		[]model.TestOutpoint{{TxID: cb.TxIDChainHash(), Vout: 0}},
		model.TestOutput{Address: "1HLoD9E4SDFFPDiYfNYnkBLQ85Y51J3Zb1", Satoshis: 3_999_000_000},
	)
	require.NoError(t, err)

	dumper, err := New(ulogger.TestLogger{}, testSettings(), dir)
	require.NoError(t, err)
	assert.Equal(t, "unspentcsvdump", dumper.Name())

	require.NoError(t, dumper.Start(ctx, 0))
	require.NoError(t, dumper.ProcessBlock(ctx, block0, 0))
	require.NoError(t, dumper.ProcessBlock(ctx, model.NewTestBlock(block0.Hash(), tx), 1))
	require.NoError(t, dumper.Complete(ctx, 1))

	content, err := os.ReadFile(filepath.Join(dir, "unspent-0-1.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "txid;vout;height;value;address", lines[0])
	assert.ElementsMatch(t, []string{
		cb.TxID() + ";1;0;1000000000;12cbQLTFMXRnSzktFkuoG3eHoMeFtpTu3S",
		tx.TxID() + ";0;1;3999000000;1HLoD9E4SDFFPDiYfNYnkBLQ85Y51J3Zb1",
	}, lines[1:])
}

func TestDumper_Lifecycle(t *testing.T) {
	ctx := context.Background()

	cb, err := model.NewTestCoinbaseTx(0, model.TestOutput{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Satoshis: 1})
	require.NoError(t, err)

	dumper, err := New(ulogger.TestLogger{}, testSettings(), t.TempDir())
	require.NoError(t, err)

	assert.True(t, errors.Is(dumper.ProcessBlock(ctx, model.NewTestBlock(nil, cb), 0), errors.ErrProcessing))
	assert.True(t, errors.Is(dumper.Complete(ctx, 0), errors.ErrProcessing))

	require.NoError(t, dumper.Start(ctx, 10))
	assert.True(t, errors.Is(dumper.ProcessBlock(ctx, model.NewTestBlock(nil, cb), 11), errors.ErrInvalidArgument))
	require.NoError(t, dumper.Abort())
	require.NoError(t, dumper.Abort())
}

func TestDumper_CompleteHeight(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cb, err := model.NewTestCoinbaseTx(10, model.TestOutput{Address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", Satoshis: 1})
	require.NoError(t, err)

	dumper, err := New(ulogger.TestLogger{}, testSettings(), dir)
	require.NoError(t, err)

	require.NoError(t, dumper.Start(ctx, 10))
	assert.True(t, errors.Is(dumper.Complete(ctx, 5), errors.ErrInvalidArgument))

	require.NoError(t, dumper.ProcessBlock(ctx, model.NewTestBlock(nil, cb), 10))
	assert.True(t, errors.Is(dumper.Complete(ctx, 12), errors.ErrInvalidArgument))
	assert.NoFileExists(t, filepath.Join(dir, "unspent-10-12.csv"))

	require.NoError(t, dumper.Complete(ctx, 10))
	assert.FileExists(t, filepath.Join(dir, "unspent-10-10.csv"))
}

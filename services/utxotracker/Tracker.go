// Package utxotracker applies blocks to the unspent index: inputs remove the outputs they
// spend, outputs that resolve to an address are inserted.
package utxotracker

import (
	"math"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/stores/unspent"
	"github.com/bsv-blockchain/utxobalances/ulogger"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

// AddressResolver returns the address owning a locking script, false when there is none.
type AddressResolver func(script *bscript.Script) (string, bool)

// ApplyResult holds the per block counters produced by ApplyBlock.
type ApplyResult struct {
	TxCount        int
	SpentCount     uint64
	SpentValue     uint64
	CreatedCount   uint64
	CreatedValue   uint64
	MissedInputs   uint64
	SkippedOutputs uint64
}

type Tracker struct {
	logger  ulogger.Logger
	index   *unspent.Index
	resolve AddressResolver
}

// New creates a tracker resolving P2PKH and P2PK outputs for the given network.
func New(logger ulogger.Logger, index *unspent.Index, mainnet bool) *Tracker {
	return NewWithResolver(logger, index, func(script *bscript.Script) (string, bool) {
		return model.AddressFromLockingScript(script, mainnet)
	})
}

func NewWithResolver(logger ulogger.Logger, index *unspent.Index, resolve AddressResolver) *Tracker {
	return &Tracker{
		logger:  logger,
		index:   index,
		resolve: resolve,
	}
}

func (t *Tracker) Index() *unspent.Index {
	return t.index
}

// ApplyBlock processes every transaction of the block in order, spends before creates per
// transaction, so outputs created earlier in the block can be spent later in the same block.
// The block is validated before the index is touched: an error means nothing was applied.
func (t *Tracker) ApplyBlock(block *model.Block, height uint64) (*ApplyResult, error) {
	if block == nil || block.Header == nil {
		return nil, errors.NewInvalidArgumentError("[ApplyBlock][%d] block is nil", height)
	}

	height32, err := safeconversion.Uint64ToUint32(height)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("[ApplyBlock][%s] height %d out of range", block.String(), height, err)
	}

	if err = validateTransactions(block); err != nil {
		return nil, err
	}

	result := &ApplyResult{TxCount: len(block.Transactions)}

	for _, tx := range block.Transactions {
		t.applyTx(tx, height32, result)
	}

	if result.MissedInputs > 0 {
		t.logger.Debugf("[ApplyBlock][%s] %d inputs at height %d referenced unknown outputs", block.String(), result.MissedInputs, height)
	}

	return result, nil
}

func validateTransactions(block *model.Block) error {
	for i, tx := range block.Transactions {
		if tx == nil {
			return errors.NewBlockInvalidError("[ApplyBlock][%s] transaction %d is nil", block.String(), i)
		}

		if uint64(len(tx.Outputs)) > math.MaxUint32 {
			return errors.NewTxInvalidError("[ApplyBlock][%s] transaction %s has too many outputs", block.String(), tx.TxID())
		}
	}

	return nil
}

func (t *Tracker) applyTx(tx *bt.Tx, height uint32, result *ApplyResult) {
	if !tx.IsCoinbase() {
		for _, input := range tx.Inputs {
			key := unspent.NewOutputKey(input.PreviousTxIDChainHash(), input.PreviousTxOutIndex)

			entry, ok := t.index.Remove(key)
			if !ok {
				result.MissedInputs++
				continue
			}

			result.SpentCount++
			result.SpentValue += entry.Value
		}
	}

	txID := tx.TxIDChainHash()

	for i, output := range tx.Outputs {
		address, ok := t.resolve(output.LockingScript)
		if !ok {
			result.SkippedOutputs++
			continue
		}

		vout := uint32(i) //nolint:gosec // bounded in validateTransactions

		t.index.Insert(unspent.NewOutputKey(txID, vout), unspent.Entry{
			Address: address,
			Value:   output.Satoshis,
			Height:  height,
		})

		result.CreatedCount++
		result.CreatedValue += output.Satoshis
	}
}

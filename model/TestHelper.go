package model

import (
	"encoding/binary"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// TestOutput describes an output for the test builders. An empty Address creates an
// OP_RETURN output carrying no address.
type TestOutput struct {
	Address  string
	Satoshis uint64
}

// TestOutpoint references an output spent by a test transaction.
type TestOutpoint struct {
	TxID *chainhash.Hash
	Vout uint32
}

// NewTestCoinbaseTx builds a coinbase whose unlocking script carries the height, so coinbases
// paying the same outputs at different heights still have distinct ids.
func NewTestCoinbaseTx(height uint32, outputs ...TestOutput) (*bt.Tx, error) {
	tx := bt.NewTx()

	script := []byte{0x04}
	script = binary.LittleEndian.AppendUint32(script, height)

	input := &bt.Input{
		PreviousTxOutIndex: 0xffffffff,
		SequenceNumber:     0xffffffff,
		UnlockingScript:    bscript.NewFromBytes(script),
	}

	if err := input.PreviousTxIDAdd(&chainhash.Hash{}); err != nil {
		return nil, err
	}

	tx.Inputs = append(tx.Inputs, input)

	if err := addTestOutputs(tx, outputs); err != nil {
		return nil, err
	}

	return tx, nil
}

// NewTestTx builds a transaction spending the given outpoints. Scripts are not signed.
func NewTestTx(spends []TestOutpoint, outputs ...TestOutput) (*bt.Tx, error) {
	tx := bt.NewTx()

	for _, spend := range spends {
		input := &bt.Input{
			PreviousTxOutIndex: spend.Vout,
			SequenceNumber:     0xffffffff,
			UnlockingScript:    bscript.NewFromBytes([]byte{}),
		}

		if err := input.PreviousTxIDAdd(spend.TxID); err != nil {
			return nil, err
		}

		tx.Inputs = append(tx.Inputs, input)
	}

	if err := addTestOutputs(tx, outputs); err != nil {
		return nil, err
	}

	return tx, nil
}

func addTestOutputs(tx *bt.Tx, outputs []TestOutput) error {
	for _, o := range outputs {
		if o.Address == "" {
			if err := tx.AddOpReturnOutput([]byte("test")); err != nil {
				return err
			}

			tx.Outputs[len(tx.Outputs)-1].Satoshis = o.Satoshis

			continue
		}

		if err := tx.AddP2PKHOutputFromAddress(o.Address, o.Satoshis); err != nil {
			return err
		}
	}

	return nil
}

// NewTestBlock wraps txs in a block building on prev. A nil prev starts a chain.
func NewTestBlock(prev *chainhash.Hash, txs ...*bt.Tx) *Block {
	if prev == nil {
		prev = &chainhash.Hash{}
	}

	merkleRoot := &chainhash.Hash{}
	if len(txs) > 0 {
		merkleRoot = txs[0].TxIDChainHash()
	}

	return NewBlock(&BlockHeader{
		Version:        1,
		HashPrevBlock:  prev,
		HashMerkleRoot: merkleRoot,
		Timestamp:      1231006505,
		Bits:           []byte{0x1d, 0x00, 0xff, 0xff},
		Nonce:          0,
	}, txs)
}

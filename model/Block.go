package model

import (
	"bufio"
	"bytes"
	"io"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/utxobalances/errors"
)

// Block is a fully decoded block as stored in the node's block files.
type Block struct {
	Header       *BlockHeader
	Transactions []*bt.Tx

	// Size is the serialized size in bytes, 0 when the block was built in memory.
	Size uint64

	hash *chainhash.Hash
}

func NewBlock(header *BlockHeader, txs []*bt.Tx) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
	}
}

func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	block, err := NewBlockFromReader(bytes.NewReader(blockBytes))
	if err != nil {
		return nil, err
	}

	block.Size = uint64(len(blockBytes))

	return block, nil
}

// NewBlockFromReader reads the header, the transaction count and every transaction from r.
func NewBlockFromReader(r io.Reader) (*Block, error) {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}

	headerBytes := make([]byte, BlockHeaderSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.NewBlockInvalidError("error reading block header", err)
	}

	header, err := NewBlockHeaderFromBytes(headerBytes)
	if err != nil {
		return nil, err
	}

	txCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewBlockInvalidError("[%s] error reading transaction count", header.String(), err)
	}

	block := &Block{
		Header:       header,
		Transactions: make([]*bt.Tx, 0, min(txCount, 1_000_000)),
	}

	for i := uint64(0); i < txCount; i++ {
		tx := &bt.Tx{}
		if _, err = tx.ReadFrom(r); err != nil {
			return nil, errors.NewBlockInvalidError("[%s] error reading transaction %d of %d", header.String(), i, txCount, err)
		}

		block.Transactions = append(block.Transactions, tx)
	}

	return block, nil
}

func (b *Block) Hash() *chainhash.Hash {
	if b.hash != nil {
		return b.hash
	}

	b.hash = b.Header.Hash()

	return b.hash
}

func (b *Block) String() string {
	return b.Hash().String()
}

func (b *Block) TransactionCount() int {
	return len(b.Transactions)
}

// Bytes serializes the block in the same layout it is read from.
func (b *Block) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(b.Header.Bytes())

	if err := wire.WriteVarInt(&buf, 0, uint64(len(b.Transactions))); err != nil {
		return nil, errors.NewProcessingError("error writing transaction count", err)
	}

	for _, tx := range b.Transactions {
		buf.Write(tx.Bytes())
	}

	return buf.Bytes(), nil
}

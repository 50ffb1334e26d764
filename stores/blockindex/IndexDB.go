// Package blockindex reads the block index LevelDB of a bitcoind data directory and works out
// which block sits at which height of the best chain.
package blockindex

import (
	"bytes"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/util"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

// Block validation statuses
const (
	BlockValidReserved     = 1
	BlockValidTree         = 2
	BlockValidTransactions = 3
	BlockValidChain        = 4
	BlockValidScripts      = 5
	BlockValidMask         = BlockValidReserved | BlockValidTree | BlockValidTransactions | BlockValidChain | BlockValidScripts

	BlockHaveData = 8  // full block available in blk*.dat
	BlockHaveUndo = 16 // undo data available in rev*.dat
)

// BlockRecordPrefix prefixes every block record key, followed by the block hash.
var BlockRecordPrefix = []byte("b")

// BlockIndex is one decoded block record.
type BlockIndex struct {
	Hash        *chainhash.Hash
	Height      uint32
	Status      int
	TxCount     uint64
	File        int
	DataPos     uint64
	UndoPos     uint64
	BlockHeader *model.BlockHeader
}

// HasData reports whether the full block is stored in a blk file.
func (bi *BlockIndex) HasData() bool {
	return bi.Status&BlockHaveData != 0
}

type IndexDB struct {
	logger ulogger.Logger
	db     *leveldb.DB
}

// NewIndexDB opens the LevelDB at path read only. Compression stays off so the database remains
// readable by bitcoind.
func NewIndexDB(logger ulogger.Logger, path string) (*IndexDB, error) {
	logger.Infof("Opening block index LevelDB at %s", path)

	db, err := leveldb.OpenFile(path, &opt.Options{
		Compression: opt.NoCompression,
		ReadOnly:    true,
	})
	if err != nil {
		return nil, errors.NewStorageUnavailableError("couldn't open block index LevelDB at %s", path, err)
	}

	return &IndexDB{
		logger: logger,
		db:     db,
	}, nil
}

func (in *IndexDB) Close() error {
	return in.db.Close()
}

// BestChain returns the blocks of the best chain ordered by height, element i holding height i.
// The tip is the highest block whose data is on disk; the chain is traced back from it through
// the previous block hashes and must reach height 0.
func (in *IndexDB) BestChain() ([]*BlockIndex, error) {
	allBlocks := make(map[chainhash.Hash]*BlockIndex)

	var tip *BlockIndex

	iter := in.db.NewIterator(util.BytesPrefix(BlockRecordPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()

		blockHash, err := chainhash.NewHash(key[len(BlockRecordPrefix):])
		if err != nil {
			in.logger.Warnf("failed to parse block hash from key %x: %v", key, err)
			continue
		}

		blockIndex, err := DeserializeBlockIndex(iter.Value())
		if err != nil {
			if !errors.Is(err, errors.ErrBlockInvalid) {
				in.logger.Warnf("failed to parse block index %s: %v", blockHash, err)
			}

			continue
		}

		if !blockIndex.HasData() || blockIndex.TxCount == 0 {
			continue
		}

		blockIndex.Hash = blockHash
		allBlocks[*blockHash] = blockIndex

		if tip == nil || isBetterTip(blockIndex, tip) {
			tip = blockIndex
		}
	}

	if err := iter.Error(); err != nil {
		return nil, errors.NewStorageError("failed to iterate block index", err)
	}

	if tip == nil {
		return nil, errors.NewBlockNotFoundError("block index contains no blocks with data")
	}

	chain := make([]*BlockIndex, int(tip.Height)+1)

	for current := tip; ; {
		chain[current.Height] = current

		if current.Height == 0 {
			break
		}

		prev, ok := allBlocks[*current.BlockHeader.HashPrevBlock]
		if !ok {
			return nil, errors.NewBlockNotFoundError("parent %s of block %s at height %d not found in index", current.BlockHeader.HashPrevBlock, current.Hash, current.Height)
		}

		if prev.Height+1 != current.Height {
			return nil, errors.NewBlockInvalidError("block %s at height %d has parent %s at height %d", current.Hash, current.Height, prev.Hash, prev.Height)
		}

		current = prev
	}

	in.logger.Infof("Best chain tip %s at height %d, %d blocks with data in index", tip.Hash, tip.Height, len(allBlocks))

	return chain, nil
}

// isBetterTip prefers the higher block, then the better validated one, then the lower hash so
// competing tips resolve the same way on every run.
func isBetterTip(candidate, current *BlockIndex) bool {
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}

	candidateValid := candidate.Status & BlockValidMask
	currentValid := current.Status & BlockValidMask

	if candidateValid != currentValid {
		return candidateValid > currentValid
	}

	return bytes.Compare(candidate.Hash[:], current.Hash[:]) < 0
}

// DeserializeBlockIndex decodes a block record value. Blocks that never got past header
// validation return an ERR_BLOCK_INVALID error.
func DeserializeBlockIndex(data []byte) (*BlockIndex, error) {
	var values [4]int

	pos := 0

	// version, height, status, tx count
	for i := range values {
		val, n := DecodeVarIntForIndex(data[pos:])
		if n == 0 {
			return nil, errors.NewProcessingError("block index record truncated after %d bytes", pos)
		}

		values[i] = val
		pos += n
	}

	height, status, txs := values[1], values[2], values[3]

	if (status & BlockValidMask) <= BlockValidTree {
		return nil, errors.NewBlockInvalidError("block %d is not in active chain, skip it", height)
	}

	bi := &BlockIndex{
		Status: status,
	}

	readVarInt := func(name string) (int, error) {
		val, n := DecodeVarIntForIndex(data[pos:])
		if n == 0 {
			return 0, errors.NewProcessingError("block index record for height %d truncated reading %s", height, name)
		}

		pos += n

		return val, nil
	}

	var err error

	if status&(BlockHaveData|BlockHaveUndo) != 0 {
		if bi.File, err = readVarInt("file"); err != nil {
			return nil, err
		}
	}

	if status&BlockHaveData != 0 {
		var dataPos int
		if dataPos, err = readVarInt("data position"); err != nil {
			return nil, err
		}

		if bi.DataPos, err = safeconversion.IntToUint64(dataPos); err != nil {
			return nil, err
		}
	}

	if status&BlockHaveUndo != 0 {
		var undoPos int
		if undoPos, err = readVarInt("undo position"); err != nil {
			return nil, err
		}

		if bi.UndoPos, err = safeconversion.IntToUint64(undoPos); err != nil {
			return nil, err
		}
	}

	if len(data[pos:]) < model.BlockHeaderSize {
		return nil, errors.NewProcessingError("block header length is less than %d", model.BlockHeaderSize)
	}

	if bi.BlockHeader, err = model.NewBlockHeaderFromBytes(data[pos : pos+model.BlockHeaderSize]); err != nil {
		return nil, err
	}

	if bi.TxCount, err = safeconversion.IntToUint64(txs); err != nil {
		return nil, err
	}

	if bi.Height, err = safeconversion.IntToUint32(height); err != nil {
		return nil, err
	}

	return bi, nil
}

// Package blockfile reads full blocks from the blk*.dat files of a bitcoind data directory.
package blockfile

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bsv-blockchain/go-wire"
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/stores/blockindex"
	"github.com/bsv-blockchain/utxobalances/ulogger"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

const (
	// every block on disk is preceded by the network magic and its size
	recordHeaderSize = 8

	// blocks of 4GB and more store 0xffffffff as size followed by the real size as uint64
	largeRecordHeaderSize = 16
)

// Source serves the blocks of the best chain found in the block index. Only one blk file is
// kept open at a time.
type Source struct {
	logger    ulogger.Logger
	blocksDir string
	magic     uint32
	chain     []*blockindex.BlockIndex
	indexDB   *blockindex.IndexDB

	mu       sync.Mutex
	file     *os.File
	fileNum  int
	fileSize int64
}

// NewSource opens <blocks_bitcoinDir>/blocks/index and resolves the best chain.
func NewSource(logger ulogger.Logger, tSettings *settings.Settings) (*Source, error) {
	dataDir, err := ExpandPath(tSettings.Blocks.BitcoinDir)
	if err != nil {
		return nil, err
	}

	blocksDir := filepath.Join(dataDir, "blocks")

	indexDB, err := blockindex.NewIndexDB(logger, filepath.Join(blocksDir, "index"))
	if err != nil {
		return nil, err
	}

	chain, err := indexDB.BestChain()
	if err != nil {
		_ = indexDB.Close()
		return nil, err
	}

	s := NewSourceFromChain(logger, blocksDir, tSettings.ChainCfgParams.Net, chain)
	s.indexDB = indexDB

	return s, nil
}

// NewSourceFromChain serves chain from the blk files in blocksDir.
func NewSourceFromChain(logger ulogger.Logger, blocksDir string, net wire.BitcoinNet, chain []*blockindex.BlockIndex) *Source {
	return &Source{
		logger:    logger,
		blocksDir: blocksDir,
		magic:     uint32(net),
		chain:     chain,
		fileNum:   -1,
	}
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewConfigurationError("cannot expand %s", path, err)
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func (s *Source) BestHeight() uint64 {
	if len(s.chain) == 0 {
		return 0
	}

	return uint64(len(s.chain) - 1)
}

// BlockAtHeight reads and parses the block at height. The hash of the parsed header must match
// the block index.
func (s *Source) BlockAtHeight(ctx context.Context, height uint64) (*model.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if height >= uint64(len(s.chain)) {
		return nil, errors.NewBlockNotFoundError("no block at height %d, best height is %d", height, s.BestHeight())
	}

	bi := s.chain[height]

	data, err := s.readRecord(bi)
	if err != nil {
		return nil, err
	}

	block, err := model.NewBlockFromBytes(data)
	if err != nil {
		return nil, errors.NewBlockInvalidError("failed to parse block %s at height %d", bi.Hash, height, err)
	}

	if bi.Hash != nil && !block.Hash().IsEqual(bi.Hash) {
		return nil, errors.NewBlockInvalidError("block at height %d in blk%05d.dat has hash %s, index says %s", height, bi.File, block.Hash(), bi.Hash)
	}

	return block, nil
}

func (s *Source) readRecord(bi *blockindex.BlockIndex) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openFile(bi.File); err != nil {
		return nil, err
	}

	dataPos, err := safeconversion.Uint64ToInt64(bi.DataPos)
	if err != nil || dataPos < recordHeaderSize {
		return nil, errors.NewBlockInvalidError("invalid data position %d for block %s", bi.DataPos, bi.Hash)
	}

	size, err := s.recordSize(dataPos)
	if err != nil {
		return nil, errors.NewBlockError("block %s in blk%05d.dat at %d", bi.Hash, bi.File, dataPos, err)
	}

	if size > uint64(s.fileSize-dataPos) { //nolint:gosec // dataPos is within the file
		return nil, errors.NewBlockInvalidError("block %s in blk%05d.dat at %d claims %d bytes, file has %d", bi.Hash, bi.File, dataPos, size, s.fileSize)
	}

	data := make([]byte, size)
	if _, err = s.file.ReadAt(data, dataPos); err != nil {
		return nil, errors.NewStorageError("failed to read block %s from blk%05d.dat", bi.Hash, bi.File, err)
	}

	return data, nil
}

// recordSize checks the record header in front of dataPos and returns the block size.
func (s *Source) recordSize(dataPos int64) (uint64, error) {
	if dataPos >= largeRecordHeaderSize {
		var header [largeRecordHeaderSize]byte
		if _, err := s.file.ReadAt(header[:], dataPos-largeRecordHeaderSize); err != nil {
			return 0, err
		}

		if binary.LittleEndian.Uint32(header[0:4]) == s.magic && binary.LittleEndian.Uint32(header[4:8]) == math.MaxUint32 {
			return binary.LittleEndian.Uint64(header[8:16]), nil
		}
	}

	var header [recordHeaderSize]byte
	if _, err := s.file.ReadAt(header[:], dataPos-recordHeaderSize); err != nil {
		return 0, err
	}

	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != s.magic {
		return 0, errors.NewBlockInvalidError("network magic %08x does not match %08x", magic, s.magic)
	}

	return uint64(binary.LittleEndian.Uint32(header[4:8])), nil
}

func (s *Source) openFile(fileNum int) error {
	if s.file != nil && s.fileNum == fileNum {
		return nil
	}

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	path := filepath.Join(s.blocksDir, fmt.Sprintf("blk%05d.dat", fileNum))

	file, err := os.Open(path)
	if err != nil {
		return errors.NewStorageError("failed to open %s", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.NewStorageError("failed to stat %s", path, err)
	}

	s.file = file
	s.fileNum = fileNum
	s.fileSize = info.Size()

	s.logger.Debugf("reading blocks from %s", path)

	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}

	if s.indexDB != nil {
		errs = append(errs, s.indexDB.Close())
		s.indexDB = nil
	}

	return errors.Join(errs...)
}

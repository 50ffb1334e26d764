// Package simplestats counts blocks, transactions and outputs over a range of blocks and writes
// the result as a JSON report.
package simplestats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/services/scanner"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/bsv-blockchain/utxobalances/util"
	jsoniter "github.com/json-iterator/go"
)

const (
	Name         = "simplestats"
	ReportPrefix = "simplestats"
)

var _ scanner.Callback = (*Collector)(nil)

type BlockRef struct {
	Height  uint64 `json:"height"`
	Hash    string `json:"hash"`
	TxCount int    `json:"txCount"`
	Size    uint64 `json:"size"`
}

type TxRef struct {
	Height  uint64 `json:"height"`
	TxID    string `json:"txid"`
	Outputs int    `json:"outputs"`
}

// Report is the JSON document written on Complete.
type Report struct {
	StartHeight          uint64    `json:"startHeight"`
	EndHeight            uint64    `json:"endHeight"`
	Blocks               uint64    `json:"blocks"`
	Transactions         uint64    `json:"transactions"`
	CoinbaseTransactions uint64    `json:"coinbaseTransactions"`
	Inputs               uint64    `json:"inputs"`
	Outputs              uint64    `json:"outputs"`
	OutputValue          uint64    `json:"outputValue"`
	BlockBytes           uint64    `json:"blockBytes"`
	LargestBlock         *BlockRef `json:"largestBlock,omitempty"`
	MostOutputsTx        *TxRef    `json:"mostOutputsTx,omitempty"`
	DurationSeconds      float64   `json:"durationSeconds"`
}

type Collector struct {
	logger    ulogger.Logger
	folder    string
	report    Report
	startedAt time.Time
	started   bool
	next      uint64
}

func New(logger ulogger.Logger, folder string) *Collector {
	return &Collector{
		logger: logger,
		folder: folder,
	}
}

func (c *Collector) Name() string {
	return Name
}

// Report returns a copy of the counters collected so far.
func (c *Collector) Report() Report {
	return c.report
}

func (c *Collector) Start(_ context.Context, height uint64) error {
	if c.started {
		return errors.NewProcessingError("[%s] already started", Name)
	}

	info, err := os.Stat(c.folder)
	if err != nil {
		return errors.NewStorageError("[%s] failed to access folder %s", Name, c.folder, err)
	}

	if !info.IsDir() {
		return errors.NewInvalidArgumentError("[%s] %s is not a directory", Name, c.folder)
	}

	c.started = true
	c.startedAt = time.Now()
	c.report = Report{StartHeight: height}
	c.next = height

	return nil
}

func (c *Collector) ProcessBlock(_ context.Context, block *model.Block, height uint64) error {
	if !c.started {
		return errors.NewProcessingError("[%s] not started", Name)
	}

	if height != c.next {
		return errors.NewInvalidArgumentError("[%s] expected block at height %d, got %d", Name, c.next, height)
	}

	if block == nil {
		return errors.NewInvalidArgumentError("[%s] block at height %d is nil", Name, height)
	}

	c.next++

	r := &c.report
	r.Blocks++
	r.BlockBytes += block.Size

	if r.LargestBlock == nil || block.TransactionCount() > r.LargestBlock.TxCount {
		r.LargestBlock = &BlockRef{
			Height:  height,
			Hash:    block.String(),
			TxCount: block.TransactionCount(),
			Size:    block.Size,
		}
	}

	for _, tx := range block.Transactions {
		if tx == nil {
			continue
		}

		r.Transactions++
		r.Outputs += uint64(len(tx.Outputs))

		if tx.IsCoinbase() {
			r.CoinbaseTransactions++
		} else {
			r.Inputs += uint64(len(tx.Inputs))
		}

		for _, output := range tx.Outputs {
			r.OutputValue += output.Satoshis
		}

		if r.MostOutputsTx == nil || len(tx.Outputs) > r.MostOutputsTx.Outputs {
			r.MostOutputsTx = &TxRef{
				Height:  height,
				TxID:    tx.TxID(),
				Outputs: len(tx.Outputs),
			}
		}
	}

	return nil
}

// Complete writes simplestats-<start>-<end>.json. The report is written to a temporary file first
// and renamed; a failed rename is an ERR_FATAL error.
func (c *Collector) Complete(_ context.Context, height uint64) error {
	if !c.started {
		return errors.NewProcessingError("[%s] not started", Name)
	}

	if height < c.report.StartHeight {
		return errors.NewInvalidArgumentError("[%s] completing at height %d before start height %d", Name, height, c.report.StartHeight)
	}

	if c.report.Blocks > 0 && height+1 != c.next {
		return errors.NewInvalidArgumentError("[%s] completing at height %d but last processed block was %d", Name, height, c.next-1)
	}

	c.started = false
	c.report.EndHeight = height
	c.report.DurationSeconds = time.Since(c.startedAt).Seconds()

	json := jsoniter.ConfigCompatibleWithStandardLibrary

	data, err := json.MarshalIndent(&c.report, "", "  ")
	if err != nil {
		return errors.NewProcessingError("[%s] failed to encode report", Name, err)
	}

	finalPath := filepath.Join(c.folder, fmt.Sprintf("%s-%d-%d.json", ReportPrefix, c.report.StartHeight, height))
	tmpPath := filepath.Join(c.folder, ReportPrefix+".json.tmp")

	//nolint:gosec // G306
	if err = os.WriteFile(tmpPath, append(data, '\n'), 0644); err != nil {
		return errors.NewStorageError("[%s] failed to write %s", Name, tmpPath, err)
	}

	if err = os.Rename(tmpPath, finalPath); err != nil {
		return errors.NewFatalError("[%s] unable to rename %s to %s", Name, tmpPath, finalPath, err)
	}

	c.logger.Infof("[%s] wrote %s: %s blocks, %s transactions, %s inputs, %s outputs, %s satoshis output",
		Name,
		finalPath,
		util.FormatNumber(c.report.Blocks),
		util.FormatNumber(c.report.Transactions),
		util.FormatNumber(c.report.Inputs),
		util.FormatNumber(c.report.Outputs),
		util.FormatNumber(c.report.OutputValue),
	)

	return nil
}

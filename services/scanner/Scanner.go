// Package scanner drives a Callback through an ordered range of blocks read from a BlockSource.
package scanner

import (
	"context"
	"time"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Callback consumes blocks in height order and produces its result on Complete. Start is
// called once, then ProcessBlock for every height from start to end, then Complete.
type Callback interface {
	Name() string
	Start(ctx context.Context, height uint64) error
	ProcessBlock(ctx context.Context, block *model.Block, height uint64) error
	Complete(ctx context.Context, height uint64) error
}

// Aborter is implemented by callbacks that hold resources which must be released when a run
// ends without Complete.
type Aborter interface {
	Abort() error
}

// BlockSource returns the blocks of the best chain by height.
type BlockSource interface {
	BestHeight() uint64
	BlockAtHeight(ctx context.Context, height uint64) (*model.Block, error)
	Close() error
}

type heightBlock struct {
	height uint64
	block  *model.Block
}

type Scanner struct {
	logger           ulogger.Logger
	source           BlockSource
	readAhead        int
	progressInterval time.Duration

	blocksRead      atomic.Uint64
	blocksProcessed atomic.Uint64
	txsProcessed    atomic.Uint64
}

func New(logger ulogger.Logger, tSettings *settings.Settings, source BlockSource) *Scanner {
	initPrometheusMetrics()

	readAhead := tSettings.Blocks.ReadAhead
	if readAhead < 1 {
		readAhead = 1
	}

	interval := time.Duration(tSettings.Scanner.ProgressIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Scanner{
		logger:           logger,
		source:           source,
		readAhead:        readAhead,
		progressInterval: interval,
	}
}

// BlocksProcessed returns the number of blocks handed to the callback by the current or last run.
func (s *Scanner) BlocksProcessed() uint64 {
	return s.blocksProcessed.Load()
}

// Run feeds the blocks start..end to cb. An end of 0 means the best height of the source. Blocks
// are read ahead by a separate goroutine but always delivered one at a time, in order. When the
// run fails or ctx is canceled, Complete is not called.
func (s *Scanner) Run(ctx context.Context, cb Callback, start, end uint64) error {
	best := s.source.BestHeight()

	if end == 0 {
		end = best
	}

	if start > end {
		return errors.NewInvalidArgumentError("[Scanner][%s] start height %d is after end height %d", cb.Name(), start, end)
	}

	if end > best {
		return errors.NewInvalidArgumentError("[Scanner][%s] end height %d is beyond the best height %d", cb.Name(), end, best)
	}

	s.blocksRead.Store(0)
	s.blocksProcessed.Store(0)
	s.txsProcessed.Store(0)

	s.logger.Infof("[Scanner][%s] processing blocks %d to %d", cb.Name(), start, end)

	if err := cb.Start(ctx, start); err != nil {
		return err
	}

	runStart := time.Now()

	if err := s.scan(ctx, cb, start, end); err != nil {
		abort(s.logger, cb)

		if ctx.Err() != nil {
			return errors.NewContextCanceledError("[Scanner][%s] canceled after %d blocks", cb.Name(), s.blocksProcessed.Load(), err)
		}

		return err
	}

	if err := cb.Complete(ctx, end); err != nil {
		return err
	}

	s.logger.Infof("[Scanner][%s] processed %d blocks with %d transactions in %s", cb.Name(), s.blocksProcessed.Load(), s.txsProcessed.Load(), time.Since(runStart))

	return nil
}

func (s *Scanner) scan(ctx context.Context, cb Callback, start, end uint64) error {
	g, gCtx := errgroup.WithContext(ctx)

	blocks := make(chan heightBlock, s.readAhead)

	g.Go(func() error {
		defer close(blocks)

		for height := start; height <= end; height++ {
			readStart := time.Now()

			block, err := s.source.BlockAtHeight(gCtx, height)
			if err != nil {
				return err
			}

			prometheusScannerReadBlock.Observe(time.Since(readStart).Seconds())
			s.blocksRead.Inc()

			select {
			case blocks <- heightBlock{height: height, block: block}:
			case <-gCtx.Done():
				return gCtx.Err()
			}

			if height == end {
				break
			}
		}

		return nil
	})

	g.Go(func() error {
		progress := rate.Sometimes{Interval: s.progressInterval}
		runStart := time.Now()

		for hb := range blocks {
			if err := gCtx.Err(); err != nil {
				return err
			}

			if err := cb.ProcessBlock(gCtx, hb.block, hb.height); err != nil {
				return err
			}

			s.blocksProcessed.Inc()
			s.txsProcessed.Add(uint64(hb.block.TransactionCount()))
			prometheusScannerBlocks.Inc()
			prometheusScannerHeight.Set(float64(hb.height))

			progress.Do(func() {
				processed := s.blocksProcessed.Load()
				s.logger.Infof("[Scanner][%s] height %d, %d of %d blocks, %.1f blocks/s, %d blocks buffered",
					cb.Name(), hb.height, processed, end-start+1, float64(processed)/time.Since(runStart).Seconds(), len(blocks))
			})
		}

		return nil
	})

	return g.Wait()
}

func abort(logger ulogger.Logger, cb Callback) {
	aborter, ok := cb.(Aborter)
	if !ok {
		return
	}

	if err := aborter.Abort(); err != nil {
		logger.Errorf("[Scanner][%s] abort failed: %v", cb.Name(), err)
	}
}

// Package balances rebuilds the unspent output set from an ordered stream of blocks, audits every
// block against the subsidy schedule and publishes a per address balance snapshot.
package balances

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/services/scanner"
	"github.com/bsv-blockchain/utxobalances/services/utxotracker"
	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/stores/audit"
	"github.com/bsv-blockchain/utxobalances/stores/snapshot"
	"github.com/bsv-blockchain/utxobalances/stores/unspent"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/bsv-blockchain/utxobalances/util"
	"github.com/bsv-blockchain/utxobalances/util/bytesize"
	"github.com/ordishs/gocore"
)

const (
	Name           = "balances"
	SnapshotPrefix = "balances"
)

var stat = gocore.NewStat("balances")

var _ scanner.Callback = (*Engine)(nil)

// RunningState is owned by one engine. EndHeight is only set by Complete.
type RunningState struct {
	StartHeight     uint64
	EndHeight       uint64
	LostValue       uint64
	BlocksProcessed uint64
}

type balanceRow struct {
	Address string `csv:"address"`
	Balance uint64 `csv:"balance"`
}

type Option func(*Engine)

// WithTrail replaces the audit trail configured in settings.
func WithTrail(trail audit.Trail) Option {
	return func(e *Engine) {
		e.trail = trail
	}
}

// Engine implements the start, process block, complete lifecycle. It is driven by one goroutine.
type Engine struct {
	logger   ulogger.Logger
	settings *settings.Settings
	folder   string
	index    *unspent.Index
	tracker  *utxotracker.Tracker
	trail    audit.Trail
	writer   *snapshot.Writer
	state    RunningState
	started  bool
	next     uint64
	failed   error
}

// New creates an engine writing its snapshot into folder. The folder is only checked by Start.
func New(logger ulogger.Logger, tSettings *settings.Settings, folder string, opts ...Option) (*Engine, error) {
	initPrometheusMetrics()

	index, err := unspent.New(tSettings.Balances.UnspentCapacity)
	if err != nil {
		return nil, err
	}

	bufferSize, err := bytesize.Parse(tSettings.Balances.WriterBufferSize)
	if err != nil {
		logger.Errorf("error parsing balances_writerBufferSize %q: %v", tSettings.Balances.WriterBufferSize, err)

		bufferSize = 4 * bytesize.MB
	}

	e := &Engine{
		logger:   logger,
		settings: tSettings,
		folder:   folder,
		index:    index,
		tracker:  utxotracker.New(logger, index, tSettings.IsMainnet()),
		writer:   snapshot.New(logger, folder, SnapshotPrefix, bufferSize),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

func (e *Engine) Name() string {
	return Name
}

// State returns a copy of the running state.
func (e *Engine) State() RunningState {
	return e.state
}

// Index exposes the unspent index for inspection. Callers must not mutate it.
func (e *Engine) Index() *unspent.Index {
	return e.index
}

// Start opens the temporary snapshot and the audit trail.
func (e *Engine) Start(ctx context.Context, height uint64) error {
	if e.started {
		return errors.NewProcessingError("[%s] already started at height %d", Name, e.state.StartHeight)
	}

	if err := e.writer.Open(); err != nil {
		return err
	}

	if e.trail == nil {
		trail, err := audit.NewTrail(ctx, e.logger, e.settings.Balances.AuditStore, filepath.Join(e.folder, e.settings.Balances.AuditFileName))
		if err != nil {
			_ = e.writer.Abort()
			return err
		}

		e.trail = trail
	}

	e.started = true
	e.state.StartHeight = height
	e.next = height

	e.logger.Infof("[%s] started at height %d, writing to %s, lost value to %s", Name, height, e.writer.TempPath(), e.trail)

	return nil
}

// ProcessBlock applies the block at height, which must follow the previous one. A rejected block
// leaves the engine usable. If auditing fails after the block was applied, every later call fails.
func (e *Engine) ProcessBlock(ctx context.Context, block *model.Block, height uint64) error {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat("ProcessBlock").AddTime(start)
		prometheusBalancesProcessBlock.Observe(time.Since(start).Seconds())
	}()

	if err := e.checkRunning(); err != nil {
		return err
	}

	if height != e.next {
		return errors.NewInvalidArgumentError("[%s] expected block at height %d, got %d", Name, e.next, height)
	}

	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("[%s] not processing block at height %d", Name, height, err)
	}

	result, err := e.tracker.ApplyBlock(block, height)
	if err != nil {
		return err
	}

	e.next++
	e.state.BlocksProcessed++

	subsidy := util.GetBlockSubsidyForHeight(height, e.settings.ChainCfgParams)

	lost, err := LostValue(subsidy, result.SpentValue, result.CreatedValue)
	if err != nil {
		e.failed = errors.NewProcessingError("[%s] audit of block %s at height %d failed", Name, block.String(), height, err)
		return e.failed
	}

	if lost > 0 {
		e.recordLost(ctx, &audit.Record{
			BlockHeight:  height,
			Subsidy:      subsidy,
			SpentValue:   result.SpentValue,
			CreatedValue: result.CreatedValue,
			Lost:         lost,
		})
	}

	prometheusBalancesBlocks.Inc()
	prometheusBalancesUnspentOutputs.Set(float64(e.index.Len()))

	return nil
}

func (e *Engine) recordLost(ctx context.Context, record *audit.Record) {
	e.state.LostValue += uint64(record.Lost) //nolint:gosec // only called for positive values

	prometheusBalancesLostValue.Set(float64(e.state.LostValue))

	if err := e.trail.Append(ctx, record); err != nil {
		prometheusBalancesAuditWriteFailures.Inc()
		e.logger.Errorf("[%s] failed to record lost value %d at height %d: %v", Name, record.Lost, record.BlockHeight, err)
	}
}

// Complete aggregates the index and publishes the snapshot for the run. A failed publish returns
// an ERR_FATAL error.
func (e *Engine) Complete(ctx context.Context, height uint64) error {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat("Complete").AddTime(start)
		prometheusBalancesComplete.Observe(time.Since(start).Seconds())
	}()

	if err := e.checkRunning(); err != nil {
		return err
	}

	if height < e.state.StartHeight {
		return errors.NewInvalidArgumentError("[%s] completing at height %d before start height %d", Name, height, e.state.StartHeight)
	}

	if e.state.BlocksProcessed > 0 && height+1 != e.next {
		return errors.NewInvalidArgumentError("[%s] completing at height %d but last processed block was %d", Name, height, e.next-1)
	}

	e.state.EndHeight = height

	balances := e.aggregate()

	if err := e.writer.WriteHeader("address", "balance"); err != nil {
		return e.abort(err)
	}

	if err := e.writer.WriteRows(ctx, func(ctx context.Context, emit snapshot.Emit) error {
		for address, balance := range balances {
			if err := emit(&balanceRow{Address: address, Balance: balance}); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return e.abort(err)
	}

	publishStart := gocore.CurrentTime()

	path, err := e.writer.Publish(e.state.StartHeight, e.state.EndHeight)

	stat.NewStat("Publish").AddTime(publishStart)

	e.closeTrail()

	if err != nil {
		return err
	}

	e.started = false

	e.logger.Infof("[%s] wrote %s: %s addresses, %s unspent outputs, %s satoshis unspent, %s satoshis lost",
		Name,
		path,
		util.FormatNumber(uint64(len(balances))),
		util.FormatNumber(uint64(e.index.Len())), //nolint:gosec // length is never negative
		util.FormatNumber(e.index.TotalValue()),
		util.FormatNumber(e.state.LostValue),
	)

	return nil
}

// Abort closes the temporary snapshot and the trail without publishing.
func (e *Engine) Abort() error {
	if !e.started {
		return nil
	}

	e.started = false

	e.closeTrail()

	return e.writer.Abort()
}

func (e *Engine) aggregate() map[string]uint64 {
	start := gocore.CurrentTime()
	defer stat.NewStat("Aggregate").AddTime(start)

	return Aggregate(e.index)
}

func (e *Engine) abort(err error) error {
	_ = e.Abort()
	return err
}

func (e *Engine) closeTrail() {
	if e.trail == nil {
		return
	}

	if err := e.trail.Close(); err != nil {
		e.logger.Errorf("[%s] failed to close audit trail: %v", Name, err)
	}

	e.trail = nil
}

func (e *Engine) checkRunning() error {
	if e.failed != nil {
		return errors.NewProcessingError("[%s] engine failed earlier", Name, e.failed)
	}

	if !e.started {
		return errors.NewProcessingError("[%s] not started", Name)
	}

	return nil
}

// Package unspentdump writes every live output of the chain, not aggregated by address.
package unspentdump

import (
	"context"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/model"
	"github.com/bsv-blockchain/utxobalances/services/scanner"
	"github.com/bsv-blockchain/utxobalances/services/utxotracker"
	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/stores/snapshot"
	"github.com/bsv-blockchain/utxobalances/stores/unspent"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/bsv-blockchain/utxobalances/util"
	"github.com/bsv-blockchain/utxobalances/util/bytesize"
)

const (
	Name           = "unspentcsvdump"
	SnapshotPrefix = "unspent"
)

var _ scanner.Callback = (*Dumper)(nil)

type unspentRow struct {
	TxID    string `csv:"txid"`
	Vout    uint32 `csv:"vout"`
	Height  uint32 `csv:"height"`
	Value   uint64 `csv:"value"`
	Address string `csv:"address"`
}

type Dumper struct {
	logger  ulogger.Logger
	index   *unspent.Index
	tracker *utxotracker.Tracker
	writer  *snapshot.Writer
	start   uint64
	next    uint64
	started bool
}

func New(logger ulogger.Logger, tSettings *settings.Settings, folder string) (*Dumper, error) {
	index, err := unspent.New(tSettings.Balances.UnspentCapacity)
	if err != nil {
		return nil, err
	}

	bufferSize := bytesize.ParseOrDefault(tSettings.Balances.WriterBufferSize, 4*bytesize.MB)

	return &Dumper{
		logger:  logger,
		index:   index,
		tracker: utxotracker.New(logger, index, tSettings.IsMainnet()),
		writer:  snapshot.New(logger, folder, SnapshotPrefix, bufferSize),
	}, nil
}

func (d *Dumper) Name() string {
	return Name
}

func (d *Dumper) Start(_ context.Context, height uint64) error {
	if d.started {
		return errors.NewProcessingError("[%s] already started", Name)
	}

	if err := d.writer.Open(); err != nil {
		return err
	}

	d.started = true
	d.start = height
	d.next = height

	return nil
}

func (d *Dumper) ProcessBlock(_ context.Context, block *model.Block, height uint64) error {
	if !d.started {
		return errors.NewProcessingError("[%s] not started", Name)
	}

	if height != d.next {
		return errors.NewInvalidArgumentError("[%s] expected block at height %d, got %d", Name, d.next, height)
	}

	if _, err := d.tracker.ApplyBlock(block, height); err != nil {
		return err
	}

	d.next++

	return nil
}

// Complete writes one row per live output and publishes unspent-<start>-<end>.csv.
func (d *Dumper) Complete(ctx context.Context, height uint64) error {
	if !d.started {
		return errors.NewProcessingError("[%s] not started", Name)
	}

	if height < d.start {
		return errors.NewInvalidArgumentError("[%s] completing at height %d before start height %d", Name, height, d.start)
	}

	if d.next > d.start && height+1 != d.next {
		return errors.NewInvalidArgumentError("[%s] completing at height %d but last processed block was %d", Name, height, d.next-1)
	}

	if err := d.writer.WriteHeader("txid", "vout", "height", "value", "address"); err != nil {
		return d.abort(err)
	}

	if err := d.writer.WriteRows(ctx, func(ctx context.Context, emit snapshot.Emit) error {
		var emitErr error

		d.index.Iter(func(key unspent.OutputKey, e unspent.Entry) bool {
			txID := key.TxID()

			emitErr = emit(&unspentRow{
				TxID:    txID.String(),
				Vout:    key.Vout(),
				Height:  e.Height,
				Value:   e.Value,
				Address: e.Address,
			})

			return emitErr != nil
		})

		return emitErr
	}); err != nil {
		return d.abort(err)
	}

	path, err := d.writer.Publish(d.start, height)
	if err != nil {
		return err
	}

	d.started = false

	d.logger.Infof("[%s] wrote %s: %s unspent outputs, %s satoshis", Name, path,
		util.FormatNumber(uint64(d.index.Len())), //nolint:gosec // length is never negative
		util.FormatNumber(d.index.TotalValue()),
	)

	return nil
}

func (d *Dumper) Abort() error {
	if !d.started {
		return nil
	}

	d.started = false

	return d.writer.Abort()
}

func (d *Dumper) abort(err error) error {
	_ = d.Abort()
	return err
}

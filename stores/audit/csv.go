package audit

import (
	"context"
	"os"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/gocarina/gocsv"
)

// CSVTrail appends comma separated rows without a header to a file. Every record is written
// through to the file before Append returns.
type CSVTrail struct {
	logger ulogger.Logger
	path   string
	file   *os.File
}

func NewCSVTrail(logger ulogger.Logger, path string) (*CSVTrail, error) {
	//nolint:gosec // G302
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.NewStorageError("[Audit] failed to open %s", path, err)
	}

	logger.Infof("[Audit] appending lost value records to %s", path)

	return &CSVTrail{
		logger: logger,
		path:   path,
		file:   file,
	}, nil
}

func (c *CSVTrail) Append(_ context.Context, record *Record) error {
	if err := gocsv.MarshalWithoutHeaders([]*Record{record}, c.file); err != nil {
		return errors.NewStorageError("[Audit] failed to append record for height %d to %s", record.BlockHeight, c.path, err)
	}

	return nil
}

func (c *CSVTrail) Close() error {
	if err := c.file.Close(); err != nil {
		return errors.NewStorageError("[Audit] failed to close %s", c.path, err)
	}

	return nil
}

func (c *CSVTrail) String() string {
	return "file://" + c.path
}

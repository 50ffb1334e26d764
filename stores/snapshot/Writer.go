// Package snapshot writes semicolon separated snapshot files. Rows are streamed into
// <folder>/<prefix>.csv.tmp while the run is in progress and the file is only renamed to its
// final name, <folder>/<prefix>-<start>-<end>.csv, once every row has been written.
package snapshot

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/bsv-blockchain/utxobalances/util/bytesize"
	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
)

const (
	Delimiter         = ';'
	FileExtension     = "csv"
	TempExtension     = ".tmp"
	ChecksumExtension = ".sha256"

	rowChannelSize = 1024
)

// Emit hands one row to the writer. Rows must all be of the same struct type, tagged for gocsv.
type Emit func(row interface{}) error

// Producer emits every row of the snapshot and returns when done.
type Producer func(ctx context.Context, emit Emit) error

// Writer owns a single snapshot file from Open to Publish or Abort.
type Writer struct {
	logger     ulogger.Logger
	folder     string
	prefix     string
	bufferSize bytesize.ByteSize

	mu        sync.Mutex
	file      *os.File
	buffered  *bufio.Writer
	hasher    hash.Hash
	csvWriter *gocsv.SafeCSVWriter
	rowCount  uint64
	closed    bool
}

// New creates a writer for <folder>/<prefix>. Nothing touches the filesystem until Open.
func New(logger ulogger.Logger, folder, prefix string, bufferSize bytesize.ByteSize) *Writer {
	if bufferSize <= 0 {
		bufferSize = 4 * bytesize.KB
	}

	return &Writer{
		logger:     logger,
		folder:     folder,
		prefix:     prefix,
		bufferSize: bufferSize,
	}
}

// TempPath is the path rows are written to before Publish.
func (w *Writer) TempPath() string {
	return filepath.Join(w.folder, w.prefix+"."+FileExtension+TempExtension)
}

// FinalPath is the path Publish renames the temp file to.
func (w *Writer) FinalPath(start, end uint64) string {
	return filepath.Join(w.folder, fmt.Sprintf("%s-%d-%d.%s", w.prefix, start, end, FileExtension))
}

// Open validates the folder and creates (or truncates) the temp file.
func (w *Writer) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return errors.NewProcessingError("[Snapshot][%s] already open", w.prefix)
	}

	info, err := os.Stat(w.folder)
	if err != nil {
		return errors.NewStorageError("[Snapshot][%s] failed to access folder %s", w.prefix, w.folder, err)
	}

	if !info.IsDir() {
		return errors.NewInvalidArgumentError("[Snapshot][%s] %s is not a directory", w.prefix, w.folder)
	}

	//nolint:gosec // snapshots are meant to be readable by other tools
	file, err := os.OpenFile(w.TempPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewStorageError("[Snapshot][%s] failed to create %s", w.prefix, w.TempPath(), err)
	}

	w.file = file
	w.hasher = sha256.New()
	w.buffered = bufio.NewWriterSize(io.MultiWriter(file, w.hasher), w.bufferSize.Int())

	csvWriter := csv.NewWriter(w.buffered)
	csvWriter.Comma = Delimiter
	w.csvWriter = gocsv.NewSafeCSVWriter(csvWriter)

	w.logger.Debugf("[Snapshot][%s] opened %s with %s buffer", w.prefix, w.TempPath(), w.bufferSize)

	return nil
}

// WriteHeader writes the column names as the first line.
func (w *Writer) WriteHeader(columns ...string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	if err := w.csvWriter.Write(columns); err != nil {
		return errors.NewStorageError("[Snapshot][%s] failed to write header", w.prefix, err)
	}

	w.csvWriter.Flush()

	if err := w.csvWriter.Error(); err != nil {
		return errors.NewStorageError("[Snapshot][%s] failed to write header", w.prefix, err)
	}

	return nil
}

// WriteRows runs produce and streams everything it emits into the file. The csv encoding runs in
// its own goroutine and is only started by the first emitted row, so a producer emitting nothing
// leaves the file with just its header.
func (w *Writer) WriteRows(ctx context.Context, produce Producer) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	rows := make(chan interface{}, rowChannelSize)

	var (
		startEncoder sync.Once
		count        uint64
	)

	emit := func(row interface{}) error {
		startEncoder.Do(func() {
			g.Go(func() error {
				if err := gocsv.MarshalChanWithoutHeaders(rows, w.csvWriter); err != nil {
					return errors.NewStorageError("[Snapshot][%s] failed to write rows", w.prefix, err)
				}

				return nil
			})
		})

		select {
		case rows <- row:
			count++
			return nil
		case <-gCtx.Done():
			return gCtx.Err()
		}
	}

	g.Go(func() error {
		defer close(rows)

		return produce(gCtx, emit)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.rowCount += count
	w.mu.Unlock()

	return nil
}

// RowCount returns the number of rows written so far, header excluded.
func (w *Writer) RowCount() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.rowCount
}

// Publish flushes and closes the temp file and renames it to FinalPath(start, end). A failed
// rename returns an ERR_FATAL error and leaves the temp file where it is. A checksum sidecar is
// written next to the published file; failing to write it is only logged.
func (w *Writer) Publish(start, end uint64) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil || w.closed {
		return "", errors.NewProcessingError("[Snapshot][%s] publish called without an open file", w.prefix)
	}

	w.closed = true

	if err := w.buffered.Flush(); err != nil {
		_ = w.file.Close()
		return "", errors.NewStorageError("[Snapshot][%s] failed to flush %s", w.prefix, w.TempPath(), err)
	}

	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return "", errors.NewStorageError("[Snapshot][%s] failed to sync %s", w.prefix, w.TempPath(), err)
	}

	if err := w.file.Close(); err != nil {
		return "", errors.NewStorageError("[Snapshot][%s] failed to close %s", w.prefix, w.TempPath(), err)
	}

	finalPath := w.FinalPath(start, end)

	if err := os.Rename(w.TempPath(), finalPath); err != nil {
		return "", errors.NewFatalError("[Snapshot][%s] unable to rename %s to %s", w.prefix, w.TempPath(), finalPath, err)
	}

	hashData := fmt.Sprintf("%x  %s\n", w.hasher.Sum(nil), filepath.Base(finalPath)) // two spaces, sha256sum format

	//nolint:gosec // G306
	if err := os.WriteFile(finalPath+ChecksumExtension, []byte(hashData), 0644); err != nil {
		w.logger.Errorf("[Snapshot][%s] failed to write checksum for %s: %v", w.prefix, finalPath, err)
	}

	w.logger.Infof("[Snapshot][%s] published %s with %d rows", w.prefix, finalPath, w.rowCount)

	return finalPath, nil
}

// Abort closes the temp file without publishing it. Safe to call more than once.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil || w.closed {
		return nil
	}

	w.closed = true

	_ = w.buffered.Flush()

	if err := w.file.Close(); err != nil {
		return errors.NewStorageError("[Snapshot][%s] failed to close %s", w.prefix, w.TempPath(), err)
	}

	w.logger.Warnf("[Snapshot][%s] aborted, partial output left in %s", w.prefix, w.TempPath())

	return nil
}

func (w *Writer) checkOpen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return errors.NewProcessingError("[Snapshot][%s] not open", w.prefix)
	}

	if w.closed {
		return errors.NewProcessingError("[Snapshot][%s] already closed", w.prefix)
	}

	return nil
}

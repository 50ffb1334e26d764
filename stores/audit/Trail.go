// Package audit stores one record per block whose outputs fall short of what the block could
// create, the lost value trail.
package audit

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/bsv-blockchain/utxobalances/util/usql"
)

// Record is one row of the trail. All values are in satoshis.
type Record struct {
	BlockHeight  uint64 `csv:"height"`
	Subsidy      uint64 `csv:"subsidy"`
	SpentValue   uint64 `csv:"spent"`
	CreatedValue uint64 `csv:"created"`
	Lost         int64  `csv:"lost"`
}

// Trail appends records somewhere durable. Implementations are used from a single goroutine.
type Trail interface {
	Append(ctx context.Context, record *Record) error
	Close() error
	String() string
}

// NewTrail opens the trail described by storeURL. An empty storeURL means a CSV file at
// defaultPath; relative sqlite paths are resolved against the folder of defaultPath.
func NewTrail(ctx context.Context, logger ulogger.Logger, storeURL string, defaultPath string) (Trail, error) {
	if storeURL == "" {
		return NewCSVTrail(logger, defaultPath)
	}

	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, errors.NewConfigurationError("[Audit] invalid audit store URL %q", storeURL, err)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = filepath.Join(u.Host, path)
		}

		return NewCSVTrail(logger, path)

	case string(usql.Postgres), string(usql.Sqlite), string(usql.SqliteMemory):
		db, err := usql.Open(logger, u, filepath.Dir(defaultPath))
		if err != nil {
			return nil, err
		}

		return NewSQLTrail(ctx, logger, db)
	}

	return nil, errors.NewConfigurationError("[Audit] unknown audit store scheme %q", u.Scheme)
}

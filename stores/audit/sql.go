package audit

import (
	"context"
	"fmt"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/bsv-blockchain/utxobalances/util/usql"
	"github.com/google/uuid"
)

// SQLTrail inserts records into the lost_value table. Every run gets its own run_id so several
// runs can share a database.
type SQLTrail struct {
	logger ulogger.Logger
	db     *usql.DB
	runID  uuid.UUID
	insert string
}

func NewSQLTrail(ctx context.Context, logger ulogger.Logger, db *usql.DB) (*SQLTrail, error) {
	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLTrail{
		logger: logger,
		db:     db,
		runID:  uuid.New(),
		insert: fmt.Sprintf(
			`INSERT INTO lost_value (run_id, height, subsidy, spent, created, lost) VALUES (%s, %s, %s, %s, %s, %s)`,
			db.Placeholder(1), db.Placeholder(2), db.Placeholder(3), db.Placeholder(4), db.Placeholder(5), db.Placeholder(6),
		),
	}

	logger.Infof("[Audit] appending lost value records to %s table lost_value, run %s", db.Engine(), s.runID)

	return s, nil
}

func createSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lost_value (
		 run_id      VARCHAR(36) NOT NULL
		,height      BIGINT NOT NULL
		,subsidy     BIGINT NOT NULL
		,spent       BIGINT NOT NULL
		,created     BIGINT NOT NULL
		,lost        BIGINT NOT NULL
		,inserted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		,PRIMARY KEY (run_id, height)
		);
	`); err != nil {
		return errors.NewStorageError("[Audit] could not create lost_value table", err)
	}

	return nil
}

// RunID identifies the rows written by this trail.
func (s *SQLTrail) RunID() uuid.UUID {
	return s.runID
}

func (s *SQLTrail) Append(ctx context.Context, record *Record) error {
	// BIGINT is signed; values above MaxInt64 cannot occur for a valid chain
	if _, err := s.db.ExecContext(ctx, s.insert,
		s.runID.String(),
		int64(record.BlockHeight),  //nolint:gosec // G115
		int64(record.Subsidy),      //nolint:gosec // G115
		int64(record.SpentValue),   //nolint:gosec // G115
		int64(record.CreatedValue), //nolint:gosec // G115
		record.Lost,
	); err != nil {
		return errors.NewStorageError("[Audit] failed to insert record for height %d", record.BlockHeight, err)
	}

	return nil
}

// Total returns the summed lost value recorded by this run.
func (s *SQLTrail) Total(ctx context.Context) (int64, error) {
	var total int64

	query := fmt.Sprintf(`SELECT COALESCE(SUM(lost), 0) FROM lost_value WHERE run_id = %s`, s.db.Placeholder(1))

	if err := s.db.QueryRowContext(ctx, query, s.runID.String()).Scan(&total); err != nil {
		return 0, errors.NewStorageError("[Audit] failed to sum lost value", err)
	}

	return total, nil
}

func (s *SQLTrail) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.NewStorageError("[Audit] failed to close database", err)
	}

	return nil
}

func (s *SQLTrail) String() string {
	return string(s.db.Engine()) + " lost_value"
}

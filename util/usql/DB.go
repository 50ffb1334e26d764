// Package usql opens the SQL databases used for audit output and times every statement with
// gocore stats.
package usql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/labstack/gommon/random"
	"github.com/ordishs/gocore"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type SQLEngine string

const (
	Postgres     SQLEngine = "postgres"
	Sqlite       SQLEngine = "sqlite"
	SqliteMemory SQLEngine = "sqlitememory"
)

var stat = gocore.NewStat("SQL")

type DB struct {
	*sql.DB
	engine SQLEngine
}

// Open connects to the database described by storeURL. Relative sqlite paths are resolved
// against folder, which is created when missing.
func Open(logger ulogger.Logger, storeURL *url.URL, folder string) (*DB, error) {
	switch SQLEngine(storeURL.Scheme) {
	case Postgres:
		return openPostgres(logger, storeURL)
	case Sqlite, SqliteMemory:
		return openSqlite(logger, storeURL, folder)
	}

	return nil, errors.NewConfigurationError("db: unknown scheme: %s", storeURL.Scheme)
}

func openPostgres(logger ulogger.Logger, storeURL *url.URL) (*DB, error) {
	dbPort, _ := strconv.Atoi(storeURL.Port())
	dbName := strings.TrimPrefix(storeURL.Path, "/")

	dbUser := ""
	dbPassword := ""

	if storeURL.User != nil {
		dbUser = storeURL.User.Username()
		dbPassword, _ = storeURL.User.Password()
	}

	sslMode := "disable"
	if val := storeURL.Query().Get("sslmode"); val != "" {
		sslMode = val
	}

	dbInfo := fmt.Sprintf("user=%s password=%s dbname=%s sslmode=%s host=%s port=%d", dbUser, dbPassword, dbName, sslMode, storeURL.Hostname(), dbPort)

	db, err := sql.Open(string(Postgres), dbInfo)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open postgres DB", err)
	}

	logger.Infof("Using postgres DB: %s@%s:%d/%s", dbUser, storeURL.Hostname(), dbPort, dbName)

	return &DB{DB: db, engine: Postgres}, nil
}

func openSqlite(logger ulogger.Logger, storeURL *url.URL, folder string) (*DB, error) {
	var filename string

	if SQLEngine(storeURL.Scheme) == SqliteMemory {
		filename = fmt.Sprintf("file:%s?mode=memory&cache=shared", random.String(16))
	} else {
		dbPath := storeURL.Path
		if storeURL.Host != "" {
			// sqlite://relative/name has the first path element in Host
			dbPath = filepath.Join(storeURL.Host, dbPath)
		}

		if dbPath == "" {
			return nil, errors.NewConfigurationError("db: sqlite URL %s has no path", storeURL.String())
		}

		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(folder, dbPath)
		}

		if filepath.Ext(dbPath) == "" {
			dbPath += ".db"
		}

		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, errors.NewStorageError("failed to create folder for %s", dbPath, err)
		}

		filename = fmt.Sprintf("%s?cache=shared&_pragma=busy_timeout=5000&_pragma=journal_mode=WAL", dbPath)
	}

	logger.Infof("Using sqlite DB: %s", filename)

	db, err := sql.Open(string(Sqlite), filename)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open sqlite DB", err)
	}

	// a shared cache memory database disappears with its last connection
	db.SetMaxOpenConns(1)

	return &DB{DB: db, engine: SQLEngine(storeURL.Scheme)}, nil
}

func (db *DB) Engine() SQLEngine {
	return db.engine
}

// Placeholder returns the bind parameter for position n (1 based).
func (db *DB) Placeholder(n int) string {
	if db.engine == Postgres {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat(query).AddTime(start)
	}()

	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := gocore.CurrentTime()
	defer func() {
		stat.NewStat(query).AddTime(start)
	}()

	return db.DB.ExecContext(ctx, query, args...)
}

package settings

import (
	"github.com/bsv-blockchain/go-chaincfg"
)

type BlocksSettings struct {
	// BitcoinDir is the bitcoind data directory containing blocks/ and blocks/index/.
	BitcoinDir string
	ReadAhead  int
}

type BalancesSettings struct {
	UnspentCapacity  int
	WriterBufferSize string
	AuditStore       string
	AuditFileName    string
}

type ScannerSettings struct {
	ProgressIntervalSeconds int
}

type Settings struct {
	ClientName         string
	LogLevel           string
	LoggerType         string
	PrettyLogs         bool
	ProfilerAddr       string
	PrometheusEndpoint string
	ChainCfgParams     *chaincfg.Params
	Blocks             BlocksSettings
	Balances           BalancesSettings
	Scanner            ScannerSettings
}

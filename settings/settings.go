package settings

import (
	"github.com/bsv-blockchain/go-chaincfg"
)

func NewSettings() *Settings {
	params, err := chaincfg.GetChainParams(getString("network", "mainnet"))
	if err != nil {
		panic(err)
	}

	return &Settings{
		ClientName:         getString("clientName", "utxobalances"),
		LogLevel:           getString("logLevel", "INFO"),
		LoggerType:         getString("logger_type", "zerolog"),
		PrettyLogs:         getBool("PRETTY_LOGS", true),
		ProfilerAddr:       getString("profilerAddr", ""),
		PrometheusEndpoint: getString("prometheusEndpoint", ""),
		ChainCfgParams:     params,
		Blocks: BlocksSettings{
			BitcoinDir: getString("blocks_bitcoinDir", "~/.bitcoin"),
			ReadAhead:  getInt("blocks_readAhead", 16),
		},
		Balances: BalancesSettings{
			UnspentCapacity:  getInt("balances_unspentCapacity", 10_000_000),
			WriterBufferSize: getString("balances_writerBufferSize", "4MB"),
			AuditStore:       getString("balances_auditStore", ""),
			AuditFileName:    getString("balances_auditFileName", "lost_value.csv"),
		},
		Scanner: ScannerSettings{
			ProgressIntervalSeconds: getInt("scanner_progressInterval", 10),
		},
	}
}

// SetNetwork swaps the chain parameters, used when the network is given on the command line.
func (s *Settings) SetNetwork(network string) error {
	params, err := chaincfg.GetChainParams(network)
	if err != nil {
		return err
	}

	s.ChainCfgParams = params

	return nil
}

// IsMainnet reports whether addresses should be encoded with the mainnet prefix.
func (s *Settings) IsMainnet() bool {
	return s.ChainCfgParams == nil || s.ChainCfgParams.Name == chaincfg.MainNetParams.Name
}

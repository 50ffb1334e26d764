package util

import (
	"github.com/bsv-blockchain/go-chaincfg"
)

const (
	// SatoshisPerBitcoin is the number of satoshis in one coin.
	SatoshisPerBitcoin = uint64(100_000_000)

	// InitialSubsidy is the genesis block reward in satoshis.
	InitialSubsidy = 50 * SatoshisPerBitcoin

	defaultSubsidyReductionInterval = uint64(210_000)
)

// GetBlockSubsidyForHeight returns the block subsidy in satoshis for the given height.
// The subsidy halves every SubsidyReductionInterval blocks and reaches 0 once the shift
// exceeds the width of the value.
func GetBlockSubsidyForHeight(height uint64, params *chaincfg.Params) uint64 {
	interval := defaultSubsidyReductionInterval
	if params != nil && params.SubsidyReductionInterval > 0 {
		interval = uint64(params.SubsidyReductionInterval)
	}

	halvings := height / interval
	if halvings >= 64 {
		return 0
	}

	return InitialSubsidy >> halvings
}

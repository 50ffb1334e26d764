package balances

import (
	"github.com/bsv-blockchain/utxobalances/stores/unspent"
)

// Aggregate sums the live outputs of the index per address. Addresses without a live output are
// absent from the result. The index is only read.
func Aggregate(index *unspent.Index) map[string]uint64 {
	byID := make(map[uint32]uint64, index.AddressCount())

	index.IterByAddressID(func(addressID uint32, value uint64) bool {
		byID[addressID] += value
		return false
	})

	balances := make(map[string]uint64, len(byID))
	for id, value := range byID {
		balances[index.Address(id)] = value
	}

	return balances
}

// Package unspent holds the in-memory set of live transaction outputs.
package unspent

import (
	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/dolthub/swiss"

	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

// Entry is what the index stores for every live output.
type Entry struct {
	Address string
	Value   uint64
	Height  uint32
}

// slot is the fixed size value kept in the map. Addresses are interned in the index.
type slot struct {
	value     uint64
	addressID uint32
	height    uint32
}

// Index maps OutputKey to Entry. It is not safe for concurrent use: one goroutine owns it
// and nobody may mutate it while Iter is running.
type Index struct {
	m          *swiss.Map[OutputKey, slot]
	addressIDs map[string]uint32
	addresses  []string
	totalValue uint64
}

// New creates an index sized for capacity live outputs.
func New(capacity int) (*Index, error) {
	if capacity < 0 {
		return nil, errors.NewInvalidArgumentError("unspent index capacity must not be negative: %d", capacity)
	}

	size, err := safeconversion.IntToUint32(capacity)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("unspent index capacity too large: %d", capacity, err)
	}

	return &Index{
		m:          swiss.NewMap[OutputKey, slot](size),
		addressIDs: make(map[string]uint32, capacity/4),
		addresses:  make([]string, 0, capacity/4),
	}, nil
}

// Insert stores e under key and returns the entry it replaced, if any.
func (ix *Index) Insert(key OutputKey, e Entry) (Entry, bool) {
	previous, replaced := ix.m.Get(key)
	if replaced {
		ix.totalValue -= previous.value
	}

	ix.m.Put(key, slot{
		value:     e.Value,
		addressID: ix.intern(e.Address),
		height:    e.Height,
	})

	ix.totalValue += e.Value

	if !replaced {
		return Entry{}, false
	}

	return ix.entry(previous), true
}

// Remove deletes key and returns the entry it held.
func (ix *Index) Remove(key OutputKey) (Entry, bool) {
	s, ok := ix.m.Get(key)
	if !ok {
		return Entry{}, false
	}

	ix.m.Delete(key)
	ix.totalValue -= s.value

	return ix.entry(s), true
}

func (ix *Index) Get(key OutputKey) (Entry, bool) {
	s, ok := ix.m.Get(key)
	if !ok {
		return Entry{}, false
	}

	return ix.entry(s), true
}

// Len returns the number of live outputs.
func (ix *Index) Len() int {
	return ix.m.Count()
}

// TotalValue returns the sum of all live output values.
func (ix *Index) TotalValue() uint64 {
	return ix.totalValue
}

// AddressCount returns the number of distinct addresses ever inserted, live or not.
func (ix *Index) AddressCount() int {
	return len(ix.addresses)
}

// Iter calls fn for every live output in no particular order until fn returns true.
func (ix *Index) Iter(fn func(key OutputKey, e Entry) (stop bool)) {
	ix.m.Iter(func(k OutputKey, s slot) bool {
		return fn(k, ix.entry(s))
	})
}

// IterByAddressID is Iter without materialising the address string. Ids index into Address.
func (ix *Index) IterByAddressID(fn func(addressID uint32, value uint64) (stop bool)) {
	ix.m.Iter(func(_ OutputKey, s slot) bool {
		return fn(s.addressID, s.value)
	})
}

// Address returns the interned address for id.
func (ix *Index) Address(id uint32) string {
	return ix.addresses[id]
}

func (ix *Index) entry(s slot) Entry {
	return Entry{
		Address: ix.addresses[s.addressID],
		Value:   s.value,
		Height:  s.height,
	}
}

func (ix *Index) intern(address string) uint32 {
	if id, ok := ix.addressIDs[address]; ok {
		return id
	}

	// len(addresses) is bounded by the number of outputs ever inserted, far below 2^32
	id := uint32(len(ix.addresses)) //nolint:gosec // G115

	ix.addressIDs[address] = id
	ix.addresses = append(ix.addresses, address)

	return id
}

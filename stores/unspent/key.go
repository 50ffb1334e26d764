package unspent

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/ordishs/go-utils"
)

// OutputKeySize is 32 bytes of txid followed by a 4 byte little endian output index.
const OutputKeySize = chainhash.HashSize + 4

// OutputKey identifies a transaction output. It is a flat value so map slots hold it inline.
type OutputKey [OutputKeySize]byte

func NewOutputKey(txID *chainhash.Hash, vout uint32) OutputKey {
	var k OutputKey

	copy(k[:chainhash.HashSize], txID[:])
	binary.LittleEndian.PutUint32(k[chainhash.HashSize:], vout)

	return k
}

func (k OutputKey) TxID() chainhash.Hash {
	var h chainhash.Hash

	copy(h[:], k[:chainhash.HashSize])

	return h
}

func (k OutputKey) Vout() uint32 {
	return binary.LittleEndian.Uint32(k[chainhash.HashSize:])
}

// String renders the key as <txid>:<vout> with the txid in display order.
func (k OutputKey) String() string {
	return fmt.Sprintf("%s:%d", utils.ReverseAndHexEncodeSlice(k[:chainhash.HashSize]), k.Vout())
}

package blockindex

// maxVarIntBytes bounds the encoding of a 64 bit value in the index format.
const maxVarIntBytes = 10

// DecodeVarIntForIndex decodes the MSB first base 128 varint used in bitcoind's block index, where
// every continuation byte also adds one to the value. It returns the value and the number of
// bytes read, 0 when data ends before the varint does.
func DecodeVarIntForIndex(data []byte) (int, int) {
	n := 0

	for i := 0; i < len(data) && i < maxVarIntBytes; i++ {
		b := data[i]

		n = (n << 7) | int(b&0x7f)

		if b&0x80 == 0 {
			return n, i + 1
		}

		n++
	}

	return 0, 0
}

// EncodeVarIntForIndex is the inverse of DecodeVarIntForIndex.
func EncodeVarIntForIndex(n int) []byte {
	if n <= 0 {
		return []byte{0x00}
	}

	var tmp []byte

	for {
		tmp = append(tmp, byte(n&0x7f))

		n >>= 7
		if n == 0 {
			break
		}

		n--
	}

	encoded := make([]byte, len(tmp))

	for i := range tmp {
		encoded[i] = tmp[len(tmp)-1-i]

		if i < len(tmp)-1 {
			encoded[i] |= 0x80
		}
	}

	return encoded
}

package model

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptFromHex(t *testing.T, s string) *bscript.Script {
	t.Helper()

	script, err := bscript.NewFromHexString(s)
	require.NoError(t, err)

	return script
}

func TestAddressFromLockingScript(t *testing.T) {
	p2pkh, err := bscript.NewP2PKHFromAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)

	tests := []struct {
		name     string
		script   *bscript.Script
		mainnet  bool
		expected string
		ok       bool
	}{
		{
			name:     "p2pkh mainnet",
			script:   p2pkh,
			mainnet:  true,
			expected: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
			ok:       true,
		},
		{
			name:     "p2pkh testnet",
			script:   p2pkh,
			mainnet:  false,
			expected: "mpXwg4jMtRhuSpVq4xS3HFHmCmWp9NyGKt",
			ok:       true,
		},
		{
			name:     "p2pk uncompressed genesis key",
			script:   scriptFromHex(t, "4104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac"),
			mainnet:  true,
			expected: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
			ok:       true,
		},
		{
			name:     "p2pk compressed key",
			script:   scriptFromHex(t, "210279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798ac"),
			mainnet:  true,
			expected: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH",
			ok:       true,
		},
		{
			name:     "p2pk regtest coinbase",
			script:   scriptFromHex(t, "2103656065e6886ca1e947de3471c9e723673ab6ba34724476417fa9fcef8bafa604ac"),
			mainnet:  false,
			expected: "mkGsxSkfdzCEwmjchAVbwLtQok4ErcVwAb",
			ok:       true,
		},
		{
			name:     "p2sh mainnet",
			script:   scriptFromHex(t, "a914e9c3dd0c07aac76179ebc76a6c78d4d67c6c160a87"),
			mainnet:  true,
			expected: "3P14159f73E4gFr7JterCCQh9QjiTjiZrG",
			ok:       true,
		},
		{
			name:     "p2sh testnet",
			script:   scriptFromHex(t, "a914e9c3dd0c07aac76179ebc76a6c78d4d67c6c160a87"),
			mainnet:  false,
			expected: "2NEZG4p5giVjQt3Uez2Gip9PxMkwtF1Wdi9",
			ok:       true,
		},
		{
			name:   "p2sh without trailing op_equal",
			script: scriptFromHex(t, "a914e9c3dd0c07aac76179ebc76a6c78d4d67c6c160a88"),
		},
		{
			name:   "op_return",
			script: scriptFromHex(t, "006a0568656c6c6f"),
		},
		{
			name:   "bad pubkey prefix",
			script: scriptFromHex(t, "210579be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798ac"),
		},
		{
			name:   "empty",
			script: &bscript.Script{},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, ok := AddressFromLockingScript(tt.script, tt.mainnet)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, address)
		})
	}
}

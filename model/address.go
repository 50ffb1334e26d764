package model

import (
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/libsv/go-bk/base58"
	"github.com/libsv/go-bk/crypto"
)

const (
	p2shVersionMainnet byte = 0x05
	p2shVersionTestnet byte = 0xc4
)

// AddressFromLockingScript resolves the address owning an output. Pay-to-public-key-hash,
// pay-to-public-key and pay-to-script-hash scripts resolve; everything else returns false.
func AddressFromLockingScript(script *bscript.Script, mainnet bool) (string, bool) {
	if script == nil || len(*script) == 0 {
		return "", false
	}

	if script.IsP2PKH() {
		pkh, err := script.PublicKeyHash()
		if err != nil {
			return "", false
		}

		return addressFromPublicKeyHash(pkh, mainnet)
	}

	if script.IsP2SH() {
		return addressFromScriptHash((*script)[2:22], mainnet), true
	}

	if pubKey, ok := p2pkPublicKey(*script); ok {
		return addressFromPublicKeyHash(crypto.Hash160(pubKey), mainnet)
	}

	return "", false
}

func addressFromPublicKeyHash(pkh []byte, mainnet bool) (string, bool) {
	address, err := bscript.NewAddressFromPublicKeyHash(pkh, mainnet)
	if err != nil {
		return "", false
	}

	return address.AddressString, true
}

// addressFromScriptHash encodes a 20 byte script hash as a 3... (mainnet) or 2... address.
func addressFromScriptHash(scriptHash []byte, mainnet bool) string {
	if mainnet {
		return base58.CheckEncode(scriptHash, p2shVersionMainnet)
	}

	return base58.CheckEncode(scriptHash, p2shVersionTestnet)
}

// p2pkPublicKey matches <push 33|65 bytes pubkey> OP_CHECKSIG.
func p2pkPublicKey(b []byte) ([]byte, bool) {
	if len(b) != 35 && len(b) != 67 {
		return nil, false
	}

	if int(b[0]) != len(b)-2 || b[len(b)-1] != bscript.OpCHECKSIG {
		return nil, false
	}

	pubKey := b[1 : len(b)-1]

	switch {
	case len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03):
	case len(pubKey) == 65 && pubKey[0] == 0x04:
	default:
		return nil, false
	}

	return pubKey, true
}

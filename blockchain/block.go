// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

import (
	"encoding/hex"
	"strconv"
)

// EncodeVarint encodes n as a Bitcoin-style compact-size integer (§6.2).
func EncodeVarint(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		return []byte{0xfd, byte(n), byte(n >> 8)}
	case n <= 0xffffffff:
		return []byte{0xfe, byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
	default:
		return []byte{
			0xff,
			byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24),
			byte(n >> 32), byte(n >> 40), byte(n >> 48), byte(n >> 56),
		}
	}
}

// SerializeBlock assembles the submitblock hex payload: header(140) ||
// varint(len(solution)) || solution || varint(1+len(otherTxnHex)) || coinbase ||
// other transactions, per §6.2. header must be the full 140-byte header (prefix +
// nonce); solution is the 32-byte RandomX hash, stored in this chain's equihash
// "nSolution" slot.
func SerializeBlock(header [HashInputLen]byte, solution [32]byte, coinbaseHex string, otherTxnHex []string) (string, error) {
	coinbase, err := hex.DecodeString(coinbaseHex)
	if err != nil {
		return "", &TemplateError{Field: "coinbasetxn.data", Reason: err.Error()}
	}

	var out []byte
	out = append(out, header[:]...)
	out = append(out, EncodeVarint(uint64(len(solution)))...)
	out = append(out, solution[:]...)
	out = append(out, EncodeVarint(uint64(1+len(otherTxnHex)))...)
	out = append(out, coinbase...)
	for i, txHex := range otherTxnHex {
		tx, err := hex.DecodeString(txHex)
		if err != nil {
			return "", &TemplateError{Field: "transactions[].data", Reason: "tx " + strconv.Itoa(i) + ": " + err.Error()}
		}
		out = append(out, tx...)
	}
	return hex.EncodeToString(out), nil
}

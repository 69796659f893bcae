// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package blockchain implements block-template parsing, compact-bits target decoding,
// proof-of-work hash comparison, and block submission serialization for the node's
// Zcash-derivative block format.
package blockchain

import (
	"encoding/hex"
	"strconv"
)

// DisplayHash and InternalHash distinguish the two byte orderings a node hands us
// hashes in. previousblockhash/merkleroot/blockcommitmentshash arrive in DISPLAY
// order (byte-reversed relative to how they're serialized into a header);
// randomxseedhash/randomxnextseedhash arrive already in INTERNAL (storage) order.
// There is deliberately no conversion between the two types other than through the
// named constructors below, so a caller can't silently feed a display-order hash
// into a slot that wants internal order or vice versa.
type DisplayHash [32]byte
type InternalHash [32]byte

// FromDisplayHex decodes a hex string in display (big-endian/reversed) order and
// returns the corresponding internal-order bytes.
func FromDisplayHex(s string) (InternalHash, error) {
	var out InternalHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, &TemplateError{Field: "", Reason: "expected 32 bytes, got " + strconv.Itoa(len(b))}
	}
	reverse(b)
	copy(out[:], b)
	return out, nil
}

// FromInternalHex decodes a hex string that is already in internal (storage) order.
func FromInternalHex(s string) (InternalHash, error) {
	var out InternalHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, &TemplateError{Field: "", Reason: "expected 32 bytes, got " + strconv.Itoa(len(b))}
	}
	copy(out[:], b)
	return out, nil
}

func (h InternalHash) Bytes() [32]byte { return [32]byte(h) }

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

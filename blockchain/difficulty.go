// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

// blockchain/difficulty.go implements difficulty display helpers on top of the
// 32-byte compact-bits targets used by this chain (see target.go), the way the
// teacher's difficulty.go did for Monero's 4-byte packed targets.

import "math/big"

var maxTarget256 big.Int

func init() {
	maxTarget256.SetString("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF", 0)
}

// TargetToDifficulty converts a little-endian 256-bit target into a difficulty
// value (maxTarget / target), for status-line display alongside getmininginfo's
// own reported difficulty.
func TargetToDifficulty(target [32]byte) *big.Int {
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = target[31-i]
	}
	t := new(big.Int).SetBytes(be)
	if t.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Div(&maxTarget256, t)
}

// BitsToDifficulty is a convenience wrapper combining CompactToTarget and
// TargetToDifficulty for display code that only has the compact bits field handy.
func BitsToDifficulty(bits uint32) (*big.Int, error) {
	target, err := CompactToTarget(bits)
	if err != nil {
		return nil, err
	}
	return TargetToDifficulty(target), nil
}

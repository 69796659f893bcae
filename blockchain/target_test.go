// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

import (
	"encoding/hex"
	"testing"
)

// TestCompactToTarget_S2 checks the S2 scenario: bits=0x1f09daa8 should produce a
// target whose display (big-endian) form starts with 0009daa8 and is zero-padded
// out to 32 bytes.
func TestCompactToTarget_S2(t *testing.T) {
	target, err := CompactToTarget(0x1f09daa8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = target[31-i]
	}
	got := hex.EncodeToString(be)
	want := "0009daa8" + hex.EncodeToString(make([]byte, 28))
	if got != want {
		t.Errorf("target display form = %s, want %s", got, want)
	}
}

func TestCompactToTarget_SmallSizes(t *testing.T) {
	cases := []struct {
		bits uint32
		want [32]byte
	}{
		// size 1: mantissa 0x003456 >> 16 == 0, so target is all zero.
		{0x01003456, [32]byte{}},
		// size 2: mantissa 0x008000 >> 8 == 0x80, landing at target[0].
		{0x02008000, func() (out [32]byte) { out[0] = 0x80; return }()},
	}
	for _, c := range cases {
		got, err := CompactToTarget(c.bits)
		if err != nil {
			t.Fatalf("CompactToTarget(%#x): %v", c.bits, err)
		}
		if got != c.want {
			t.Errorf("CompactToTarget(%#x) = %x, want %x", c.bits, got, c.want)
		}
	}
}

func TestCompactToTarget_RejectsOversizedExponent(t *testing.T) {
	_, err := CompactToTarget(uint32(33) << 24)
	if err == nil {
		t.Fatal("expected error for size > 32")
	}
	var target *TargetError
	if _, ok := err.(*TargetError); !ok {
		t.Errorf("expected *TargetError, got %T", err)
		_ = target
	}
}

func TestCompactToTarget_Monotonic(t *testing.T) {
	// Same size, increasing mantissa must yield a numerically increasing target.
	size := uint32(10)
	t1, err := CompactToTarget(size<<24 | 0x000100)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := CompactToTarget(size<<24 | 0x000200)
	if err != nil {
		t.Fatal(err)
	}
	d1 := TargetToDifficulty(t1)
	d2 := TargetToDifficulty(t2)
	// A larger target means a smaller difficulty (maxTarget/target).
	if d1.Cmp(d2) <= 0 {
		t.Errorf("expected difficulty(t1) > difficulty(t2), got d1=%v d2=%v", d1, d2)
	}
	if !HashMeetsTarget(t1, t2) {
		t.Errorf("expected smaller target t1 to meet larger target t2")
	}
}

func TestHashMeetsTarget_S3(t *testing.T) {
	var target [32]byte
	target[31] = 0x10 // arbitrary non-zero top byte, big-endian display position

	// hash == target
	if !HashMeetsTarget(target, target) {
		t.Error("hash == target should meet target")
	}

	// hash = target - 1 (subtract 1 as a little-endian integer)
	minusOne := target
	subtractOneLE(&minusOne)
	if !HashMeetsTarget(minusOne, target) {
		t.Error("hash = target-1 should meet target")
	}

	// hash = target + 1
	plusOne := target
	addOneLE(&plusOne)
	if HashMeetsTarget(plusOne, target) {
		t.Error("hash = target+1 should not meet target")
	}
}

func TestHashMeetsTarget_NonTopWordDifference(t *testing.T) {
	var hash, target [32]byte
	target[31] = 0x05
	hash[31] = 0x05
	// Equal in the top word; differ in a lower word.
	hash[0] = 0x01
	target[0] = 0x02
	if !HashMeetsTarget(hash, target) {
		t.Error("expected hash < target to meet target based on low word")
	}
	hash[0], target[0] = target[0], hash[0]
	if HashMeetsTarget(hash, target) {
		t.Error("expected hash > target to not meet target based on low word")
	}
}

func subtractOneLE(b *[32]byte) {
	for i := 0; i < 32; i++ {
		if b[i] == 0 {
			b[i] = 0xff
			continue
		}
		b[i]--
		return
	}
}

func addOneLE(b *[32]byte) {
	for i := 0; i < 32; i++ {
		if b[i] == 0xff {
			b[i] = 0
			continue
		}
		b[i]++
		return
	}
}

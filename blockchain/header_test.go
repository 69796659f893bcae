// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

import (
	"encoding/hex"
	"testing"
)

func sampleTemplate() *TemplateResponse {
	r := &TemplateResponse{
		Version:           4,
		PreviousBlockHash: "00000000011a3a1e5d50b2ed0d2c5c97f56a52f1d9f5a6a02ad49db1f5b7c2e9",
		CurTime:           1760323089,
		Bits:              "1f09daa8",
		Height:            1583,
		RandomXSeedHeight: 0,
		RandomXSeedHash:   "9a2e7c1b0f5d3a6e8c4b2d1f0a9e8c7b6d5a4f3e2c1b0a9d8e7f6c5b4a392817",
		CoinbaseTxn:       struct{ Data string `json:"data"` }{Data: "01"},
	}
	r.DefaultRoots.MerkleRoot = "001836103f4ec3726f79ede71c025fc0b3b56f851d3f665f04c3d7e3cbde7bbb"
	r.DefaultRoots.BlockCommitmentsHash = "1bd93253dc8943654719192f42c34fb99de5166334a4f1e50726e3fc102e08e7"
	return r
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test fixture hex %q: %v", s, err)
	}
	return b
}

// TestParseBlockTemplate_S1 exercises the §8 S1 reconstruction scenario: a parsed
// template's header prefix must be exactly 108 bytes, version+time+bits
// little-endian, and the three hash fields byte-reversed from their display-order
// JSON encoding (invariant H1).
func TestParseBlockTemplate_S1(t *testing.T) {
	r := sampleTemplate()
	bt, err := ParseBlockTemplate(r)
	if err != nil {
		t.Fatalf("ParseBlockTemplate: %v", err)
	}

	if bt.Version != 4 {
		t.Errorf("Version = %d, want 4", bt.Version)
	}
	if bt.Time != 1760323089 {
		t.Errorf("Time = %d, want 1760323089", bt.Time)
	}
	if bt.Bits != 0x1f09daa8 {
		t.Errorf("Bits = %#x, want 0x1f09daa8", bt.Bits)
	}

	prefix := bt.HeaderPrefix
	if len(prefix) != HeaderPrefixLen {
		t.Fatalf("HeaderPrefix length = %d, want %d", len(prefix), HeaderPrefixLen)
	}

	// version field: little-endian 4 at offset 0.
	if prefix[0] != 4 || prefix[1] != 0 || prefix[2] != 0 || prefix[3] != 0 {
		t.Errorf("version bytes = %x, want 04000000", prefix[0:4])
	}

	// prevhash occupies [4:36] and must be the byte-reversal of the display hex.
	wantPrev := mustHex(t, r.PreviousBlockHash)
	reverse(wantPrev)
	if hex.EncodeToString(prefix[4:36]) != hex.EncodeToString(wantPrev) {
		t.Errorf("prevhash in prefix = %x, want %x", prefix[4:36], wantPrev)
	}

	wantMerkle := mustHex(t, r.DefaultRoots.MerkleRoot)
	reverse(wantMerkle)
	if hex.EncodeToString(prefix[36:68]) != hex.EncodeToString(wantMerkle) {
		t.Errorf("merkleroot in prefix = %x, want %x", prefix[36:68], wantMerkle)
	}

	wantCommitments := mustHex(t, r.DefaultRoots.BlockCommitmentsHash)
	reverse(wantCommitments)
	if hex.EncodeToString(prefix[68:100]) != hex.EncodeToString(wantCommitments) {
		t.Errorf("commitments in prefix = %x, want %x", prefix[68:100], wantCommitments)
	}

	// time/bits little-endian at [100:104]/[104:108].
	if prefix[100] != 0x11 { // 1760323089 & 0xff == 0x11
		t.Errorf("time low byte = %#x, want 0x11", prefix[100])
	}
	if prefix[104] != 0xa8 || prefix[105] != 0xda || prefix[106] != 0x09 || prefix[107] != 0x1f {
		t.Errorf("bits bytes = %x, want a8da091f", prefix[104:108])
	}

	// randomxseedhash is NOT reversed: internal order straight off the wire.
	wantSeed := mustHex(t, r.RandomXSeedHash)
	if hex.EncodeToString(bt.SeedHash[:]) != hex.EncodeToString(wantSeed) {
		t.Errorf("SeedHash = %x, want %x (unreversed)", bt.SeedHash, wantSeed)
	}

	if bt.NextSeedHash != nil {
		t.Errorf("NextSeedHash = %v, want nil (not supplied)", bt.NextSeedHash)
	}
}

func TestParseBlockTemplate_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TemplateResponse)
	}{
		{"previousblockhash", func(r *TemplateResponse) { r.PreviousBlockHash = "" }},
		{"bits", func(r *TemplateResponse) { r.Bits = "" }},
		{"randomxseedhash", func(r *TemplateResponse) { r.RandomXSeedHash = "" }},
		{"coinbasetxn.data", func(r *TemplateResponse) { r.CoinbaseTxn.Data = "" }},
		{"merkleroot", func(r *TemplateResponse) { r.DefaultRoots.MerkleRoot = "" }},
		{"commitments", func(r *TemplateResponse) {
			r.DefaultRoots.BlockCommitmentsHash = ""
			r.BlockCommitmentsHash = ""
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := sampleTemplate()
			c.mutate(r)
			if _, err := ParseBlockTemplate(r); err == nil {
				t.Errorf("expected error when %s is missing", c.name)
			}
		})
	}
}

func TestParseBlockTemplate_TopLevelCommitmentsFallback(t *testing.T) {
	r := sampleTemplate()
	top := r.DefaultRoots.BlockCommitmentsHash
	r.DefaultRoots.BlockCommitmentsHash = ""
	r.BlockCommitmentsHash = top

	bt, err := ParseBlockTemplate(r)
	if err != nil {
		t.Fatalf("ParseBlockTemplate: %v", err)
	}
	want := mustHex(t, top)
	reverse(want)
	gotBytes := bt.BlockCommitmentsHash.Bytes()
	if hex.EncodeToString(gotBytes[:]) != hex.EncodeToString(want) {
		t.Errorf("BlockCommitmentsHash = %x, want %x", bt.BlockCommitmentsHash, want)
	}
}

func TestParseBlockTemplate_NextSeedHash(t *testing.T) {
	r := sampleTemplate()
	r.RandomXNextSeed = "1111111111111111111111111111111111111111111111111111111111111111"[:64]
	bt, err := ParseBlockTemplate(r)
	if err != nil {
		t.Fatalf("ParseBlockTemplate: %v", err)
	}
	if bt.NextSeedHash == nil {
		t.Fatal("expected NextSeedHash to be set")
	}
	want := mustHex(t, r.RandomXNextSeed)
	if hex.EncodeToString(bt.NextSeedHash[:]) != hex.EncodeToString(want) {
		t.Errorf("NextSeedHash = %x, want %x (unreversed)", bt.NextSeedHash[:], want)
	}
}

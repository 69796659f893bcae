// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package blockchain

import (
	"encoding/binary"
	"strconv"
)

// HeaderPrefixLen is the size in bytes of the header serialization that precedes
// the nonce (version, prev hash, merkle root, commitments hash, time, bits).
const HeaderPrefixLen = 108

// HashInputLen is the full RandomX hash input: the header prefix plus the 32-byte
// nonce. Kept as a named constant rather than 140 sprinkled through the codebase.
const HashInputLen = HeaderPrefixLen + 32

// BlockTemplate is the immutable work unit produced by ParseBlockTemplate. It
// lives for exactly one mining session (§3 Lifecycles).
//
// HeaderPrefix holds only the 108 significant bytes described by invariant H1; it
// is never grown to 140 bytes and mutated with a nonce in place (see DESIGN.md's
// Open Question decision) — the nonce is a value the engine carries separately and
// joins with HeaderPrefix only inside a worker's local hash-input buffer.
type BlockTemplate struct {
	Version   uint32
	Time      uint32
	Bits      uint32
	Height    uint32
	SeedHeight uint64

	PreviousBlockHash     InternalHash
	MerkleRoot            InternalHash
	BlockCommitmentsHash  InternalHash

	SeedHash     [32]byte
	NextSeedHash *[32]byte

	// Target is always CompactToTarget(Bits) (§4.2/C2) — what HashMeetsTarget
	// actually compares against. It is never overridden by the optional RPC
	// "target" field.
	Target [32]byte

	// TargetHex is the node's own optional "target" field, display-only, the way
	// original_source/src/miner.cpp stores it into target_hex for logging rather
	// than using it as the comparator's target.
	TargetHex string

	HeaderPrefix [HeaderPrefixLen]byte

	CoinbaseTxnHex string
	OtherTxnHex    []string
}

// TemplateResponse mirrors the JSON shape of a getblocktemplate result, using the
// same field names the node returns so json.Unmarshal needs no struct tags beyond
// what's written here. Only the fields the codec cares about are declared;
// unrecognized fields are ignored by encoding/json.
type TemplateResponse struct {
	Version           uint32 `json:"version"`
	PreviousBlockHash string `json:"previousblockhash"`
	CurTime           uint32 `json:"curtime"`
	Bits              string `json:"bits"`
	Height            uint32 `json:"height"`
	RandomXSeedHeight uint64 `json:"randomxseedheight"`
	RandomXSeedHash   string `json:"randomxseedhash"`
	RandomXNextSeed   string `json:"randomxnextseedhash"`
	Target            string `json:"target"`

	DefaultRoots struct {
		MerkleRoot           string `json:"merkleroot"`
		BlockCommitmentsHash string `json:"blockcommitmentshash"`
	} `json:"defaultroots"`
	BlockCommitmentsHash string `json:"blockcommitmentshash"`

	CoinbaseTxn struct {
		Data string `json:"data"`
	} `json:"coinbasetxn"`

	Transactions []struct {
		Data string `json:"data"`
	} `json:"transactions"`
}

// ParseBlockTemplate builds a BlockTemplate from a raw getblocktemplate response,
// applying the H1/H2 byte-order discipline described in spec §4.1.
func ParseBlockTemplate(r *TemplateResponse) (*BlockTemplate, error) {
	if r.PreviousBlockHash == "" {
		return nil, &TemplateError{Field: "previousblockhash", Reason: "missing"}
	}
	if r.Bits == "" {
		return nil, &TemplateError{Field: "bits", Reason: "missing"}
	}
	if r.RandomXSeedHash == "" {
		return nil, &TemplateError{Field: "randomxseedhash", Reason: "missing"}
	}
	if r.CoinbaseTxn.Data == "" {
		return nil, &TemplateError{Field: "coinbasetxn.data", Reason: "missing"}
	}

	merkleRootHex := r.DefaultRoots.MerkleRoot
	if merkleRootHex == "" {
		return nil, &TemplateError{Field: "defaultroots.merkleroot", Reason: "missing"}
	}
	commitmentsHex := r.DefaultRoots.BlockCommitmentsHash
	if commitmentsHex == "" {
		commitmentsHex = r.BlockCommitmentsHash
	}
	if commitmentsHex == "" {
		return nil, &TemplateError{Field: "blockcommitmentshash", Reason: "missing"}
	}

	bits, err := strconv.ParseUint(r.Bits, 16, 32)
	if err != nil {
		return nil, &TemplateError{Field: "bits", Reason: "not a valid hex u32: " + err.Error()}
	}

	// previousblockhash / merkleroot / blockcommitmentshash arrive in DISPLAY order.
	prevHash, err := FromDisplayHex(r.PreviousBlockHash)
	if err != nil {
		return nil, &TemplateError{Field: "previousblockhash", Reason: err.Error()}
	}
	merkleRoot, err := FromDisplayHex(merkleRootHex)
	if err != nil {
		return nil, &TemplateError{Field: "defaultroots.merkleroot", Reason: err.Error()}
	}
	commitments, err := FromDisplayHex(commitmentsHex)
	if err != nil {
		return nil, &TemplateError{Field: "blockcommitmentshash", Reason: err.Error()}
	}

	// randomxseedhash / randomxnextseedhash arrive already in INTERNAL order.
	seedHash, err := FromInternalHex(r.RandomXSeedHash)
	if err != nil {
		return nil, &TemplateError{Field: "randomxseedhash", Reason: err.Error()}
	}

	var nextSeed *[32]byte
	if r.RandomXNextSeed != "" {
		ns, err := FromInternalHex(r.RandomXNextSeed)
		if err == nil {
			b := ns.Bytes()
			nextSeed = &b
		}
	}

	target, err := CompactToTarget(uint32(bits))
	if err != nil {
		return nil, err
	}

	bt := &BlockTemplate{
		Version:              r.Version,
		Time:                 r.CurTime,
		Bits:                 uint32(bits),
		Height:               r.Height,
		SeedHeight:           r.RandomXSeedHeight,
		PreviousBlockHash:    prevHash,
		MerkleRoot:           merkleRoot,
		BlockCommitmentsHash: commitments,
		SeedHash:             seedHash.Bytes(),
		NextSeedHash:         nextSeed,
		Target:               target,
		TargetHex:            r.Target,
		CoinbaseTxnHex:       r.CoinbaseTxn.Data,
	}
	for _, tx := range r.Transactions {
		if tx.Data != "" {
			bt.OtherTxnHex = append(bt.OtherTxnHex, tx.Data)
		}
	}

	writeHeaderPrefix(&bt.HeaderPrefix, bt)
	return bt, nil
}

// writeHeaderPrefix serializes the CEquihashInput-equivalent 108 bytes: version(4)
// || prevhash(32) || merkleroot(32) || commitments(32) || time(4) || bits(4), all
// scalars little-endian, all hashes in internal order (invariant H1).
func writeHeaderPrefix(out *[HeaderPrefixLen]byte, bt *BlockTemplate) {
	binary.LittleEndian.PutUint32(out[0:4], bt.Version)
	copy(out[4:36], bt.PreviousBlockHash[:])
	copy(out[36:68], bt.MerkleRoot[:])
	copy(out[68:100], bt.BlockCommitmentsHash[:])
	binary.LittleEndian.PutUint32(out[100:104], bt.Time)
	binary.LittleEndian.PutUint32(out[104:108], bt.Bits)
}

// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package engine runs the parallel nonce search against a block template
// (C5). Worker coordination follows the redesign in the Design Notes: a pair
// of atomics (mining, found) plus a one-shot channel for the solution, rather
// than several parallel vectors guarded by a single shared boolean.
package engine

import (
	"crypto/rand"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryptonote-social/rxminer/blockchain"
	"github.com/cryptonote-social/rxminer/crylog"
	"github.com/cryptonote-social/rxminer/numa"
)

// VMHasher is the minimal surface a worker needs from a RandomX VM, letting
// the worker loop and nonce logic be tested without linking librandomx.
type VMHasher interface {
	CalculateHash(input []byte) [32]byte
}

// VMSource supplies a VMHasher and a CPU id per worker index, the testable
// seam between Engine and vmpool.Pool.
type VMSource interface {
	VMForThread(i int) VMHasher
	CPUForThread(i int) int
}

// Solution is a completed mining result: the full 140-byte hash input (header
// prefix plus the winning nonce), the winning hash, and the template it was
// found against.
type Solution struct {
	Header   [blockchain.HashInputLen]byte
	Hash     [32]byte
	Template *blockchain.BlockTemplate
}

// Engine drives numThreads workers searching a template's nonce space.
type Engine struct {
	pool       VMSource
	numThreads int

	mining    atomic.Bool
	found     atomic.Bool
	hashCount atomic.Uint64
	startTime atomic.Int64

	solution   atomic.Pointer[Solution]
	solutionCh chan *Solution

	wg sync.WaitGroup
}

// New creates an Engine that will run numThreads workers against whatever
// pool currently has initialized.
func New(pool VMSource, numThreads int) *Engine {
	return &Engine{pool: pool, numThreads: numThreads}
}

// StartMining spawns one worker per thread searching tmpl's nonce space.
// Preconditions per §4.5: the pool must already be initialized with
// tmpl.SeedHash, and no session may currently be running.
func (e *Engine) StartMining(tmpl *blockchain.BlockTemplate) error {
	if e.mining.Load() {
		return errors.New("engine: mining session already in progress")
	}

	e.found.Store(false)
	e.hashCount.Store(0)
	e.solution.Store(nil)
	e.solutionCh = make(chan *Solution, 1)
	e.startTime.Store(time.Now().UnixNano())
	e.mining.Store(true)

	e.wg.Add(e.numThreads)
	for i := 0; i < e.numThreads; i++ {
		go e.worker(i, tmpl)
	}
	return nil
}

// IsMining reports whether a session is currently running.
func (e *Engine) IsMining() bool {
	return e.mining.Load()
}

// Stop flips the mining flag and blocks until every worker has exited.
func (e *Engine) Stop() {
	e.mining.Store(false)
	e.wg.Wait()
}

// GetSolution returns the published solution and true if a worker found one
// during the most recent session.
func (e *Engine) GetSolution() (*Solution, bool) {
	s := e.solution.Load()
	if s == nil {
		return nil, false
	}
	return s, true
}

// HashCount returns the number of hashes computed since the last
// StartMining.
func (e *Engine) HashCount() uint64 {
	return e.hashCount.Load()
}

// Hashrate returns hashes per second since the session started, or 0 if no
// session has started or no time has elapsed.
func (e *Engine) Hashrate() float64 {
	start := e.startTime.Load()
	if start == 0 {
		return 0
	}
	elapsed := time.Since(time.Unix(0, start)).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(e.hashCount.Load()) / elapsed
}

// worker implements the per-thread loop described in §4.5.
func (e *Engine) worker(i int, tmpl *blockchain.BlockTemplate) {
	defer e.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if cpu := e.pool.CPUForThread(i); cpu >= 0 {
		if err := numa.BindThread(cpu); err != nil {
			crylog.Warn("thread", i, "failed to bind to cpu", cpu, ":", err)
		}
	}

	vm := e.pool.VMForThread(i)
	if vm == nil {
		crylog.Error("engine: no VM assigned to thread", i)
		e.mining.Store(false)
		return
	}

	var buf [blockchain.HashInputLen]byte
	copy(buf[:blockchain.HeaderPrefixLen], tmpl.HeaderPrefix[:])

	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		crylog.Error("engine: failed to seed nonce:", err)
		e.mining.Store(false)
		return
	}
	// Clear the top and bottom 16 bits, leaving 224 random bits (§4.5 step 4).
	nonce[0], nonce[1] = 0, 0
	nonce[30], nonce[31] = 0, 0

	for e.mining.Load() && !e.found.Load() {
		copy(buf[blockchain.HeaderPrefixLen:], nonce[:])
		hash := vm.CalculateHash(buf[:])
		e.hashCount.Add(1)

		if blockchain.HashMeetsTarget(hash, tmpl.Target) {
			if e.found.CompareAndSwap(false, true) {
				sol := &Solution{Header: buf, Hash: hash, Template: tmpl}
				e.solution.Store(sol)
				select {
				case e.solutionCh <- sol:
				default:
				}
				e.mining.Store(false)
			}
			return
		}

		incrementNonceLE(&nonce)
	}
}

// incrementNonceLE adds 1 to nonce interpreted as a little-endian 256-bit
// integer, propagating carry; a full overflow wraps to zero and continues
// (§4.5 step 5e).
func incrementNonceLE(nonce *[32]byte) {
	for i := range nonce {
		nonce[i]++
		if nonce[i] != 0 {
			return
		}
	}
}

// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package vmpool owns the RandomX cache, optional dataset, and per-thread VMs
// across mining sessions (C3). It replaces the reference implementation's
// four-way NUMA/fast-mode conditional (miner.cpp's initialize/update_seed/
// set_thread_count) with a single Pool type delegating to one of three
// poolImpl strategies named in the redesign: LightFlat, LightNuma, FastFlat.
package vmpool

import (
	"errors"
	"runtime"
	"sync"

	"github.com/remeh/sizedwaitgroup"

	"github.com/cryptonote-social/rxminer/crylog"
	"github.com/cryptonote-social/rxminer/numa"
	"github.com/cryptonote-social/rxminer/randomx"
	"github.com/cryptonote-social/rxminer/sysmem"
)

// InitError is returned when cache/dataset/VM allocation fails during
// initialization or resize.
type InitError struct {
	Reason string
}

func (e *InitError) Error() string { return "randomx init error: " + e.Reason }

// ResizeError is returned when a thread-count change fails mid-rebuild. The
// pool is left released; the next start_mining must reinitialize.
type ResizeError struct {
	Reason string
}

func (e *ResizeError) Error() string { return "randomx resize error: " + e.Reason }

// SeedUpdateError is returned when a seed reinit fails.
type SeedUpdateError struct {
	Reason string
}

func (e *SeedUpdateError) Error() string { return "randomx seed update error: " + e.Reason }

// Mode picks which poolImpl strategy New should build.
type Mode int

const (
	// ModeLightFlat uses a single shared cache and VM pool, no NUMA awareness.
	ModeLightFlat Mode = iota
	// ModeLightNuma allocates one cache per NUMA node and binds each node's
	// VMs to it.
	ModeLightNuma
	// ModeFastFlat builds the full ~2GB dataset once and shares it across all
	// VMs regardless of NUMA topology (§4.3 step 3: fast mode always uses a
	// single shared dataset).
	ModeFastFlat
)

// ChooseMode picks the mode the way miner.cpp's constructor does: fast mode
// always wins when requested (a single shared dataset, no per-node split);
// otherwise NUMA awareness is used only if the topology has more than one
// node.
func ChooseMode(fastMode bool, topo numa.Topology) Mode {
	if fastMode {
		return ModeFastFlat
	}
	if topo.Available() {
		return ModeLightNuma
	}
	return ModeLightFlat
}

// poolImpl is the trait-like abstraction the redesign calls for: seed update
// and resize become polymorphic operations instead of branches scattered
// through one giant type.
type poolImpl interface {
	initialize(seed [32]byte) error
	updateSeed(seed [32]byte) error
	vmForThread(i int) *randomx.VM
	release()
}

// Pool owns the RandomX working set for a running miner. A Pool is mutated
// only between sessions (§5's "mutated only outside of sessions" rule); the
// engine must stop mining before calling any of Initialize/UpdateSeed/
// SetThreadCount.
type Pool struct {
	mu sync.Mutex

	mode        Mode
	numThreads  int
	topo        numa.Topology
	assignments []numa.Assignment

	impl        poolImpl
	initialized bool
	seed        [32]byte
}

// New constructs an uninitialized Pool for numThreads workers in the given
// mode, using topo for NUMA-aware assignment when mode is ModeLightNuma.
func New(mode Mode, numThreads int, topo numa.Topology) *Pool {
	return &Pool{
		mode:        mode,
		numThreads:  numThreads,
		topo:        topo,
		assignments: numa.AssignThreads(topo, numThreads),
	}
}

// IsInitialized reports whether the pool currently holds live VMs seeded with
// CurrentSeed.
func (p *Pool) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// CurrentSeed returns the seed the pool is currently keyed to. Only valid
// when IsInitialized is true.
func (p *Pool) CurrentSeed() [32]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seed
}

// Initialize allocates cache/dataset/VMs for seed (§4.3 Initialization).
// Calling Initialize on an already-initialized pool releases the old state
// first. In fast mode it returns an InitError without allocating anything when
// the host reports less available RAM than the dataset budget (§5).
func (p *Pool) Initialize(seed [32]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == ModeFastFlat {
		r := sysmem.DetectResources()
		if r.AvailableRAMMB > 0 && sysmem.CalculateOptimalThreads(r, true) == 0 {
			return &InitError{Reason: "not enough available RAM for fast mode"}
		}
	}

	if p.initialized {
		p.impl.release()
		p.initialized = false
	}

	impl, err := newImpl(p.mode, p.numThreads, p.topo, p.assignments)
	if err != nil {
		return &InitError{Reason: err.Error()}
	}
	if err := impl.initialize(seed); err != nil {
		return &InitError{Reason: err.Error()}
	}
	p.impl = impl
	p.seed = seed
	p.initialized = true
	return nil
}

// UpdateSeed re-keys the pool's cache(s) and, in fast mode, dataset, to seed.
// A no-op if seed already matches the current seed (§8 property 6, seed
// idempotence).
func (p *Pool) UpdateSeed(seed [32]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return &SeedUpdateError{Reason: "pool not initialized"}
	}
	if p.seed == seed {
		return nil
	}
	if err := p.impl.updateSeed(seed); err != nil {
		return &SeedUpdateError{Reason: err.Error()}
	}
	p.seed = seed
	return nil
}

// SetThreadCount releases all current state and reinitializes for n threads,
// keeping the current seed (§4.3 Thread-count change, §8 property 7). On
// failure the pool is left released and IsInitialized returns false.
func (p *Pool) SetThreadCount(n int) error {
	p.mu.Lock()
	seed := p.seed
	wasInitialized := p.initialized
	if p.initialized {
		p.impl.release()
		p.initialized = false
	}
	p.numThreads = n
	p.assignments = numa.AssignThreads(p.topo, n)
	p.mu.Unlock()

	if !wasInitialized {
		return nil
	}

	if err := p.Initialize(seed); err != nil {
		return &ResizeError{Reason: err.Error()}
	}
	return nil
}

// VMForThread returns the VM assigned to worker i. Valid only while the pool
// is initialized and not being mutated; callers must not retain it past a
// pool mutation (§5's session-handle rule).
func (p *Pool) VMForThread(i int) *randomx.VM {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return nil
	}
	return p.impl.vmForThread(i)
}

// CPUForThread returns the CPU id worker i should bind to, or -1 if none was
// assigned.
func (p *Pool) CPUForThread(i int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.assignments) {
		return -1
	}
	return p.assignments[i].CPU
}

// Close releases all held resources. The pool cannot be used afterward
// without calling Initialize again.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		p.impl.release()
		p.initialized = false
	}
}

func newImpl(mode Mode, numThreads int, topo numa.Topology, assignments []numa.Assignment) (poolImpl, error) {
	switch mode {
	case ModeFastFlat:
		return &fastFlatPool{numThreads: numThreads}, nil
	case ModeLightNuma:
		return &lightNumaPool{numThreads: numThreads, topo: topo, assignments: assignments}, nil
	case ModeLightFlat:
		return &lightFlatPool{numThreads: numThreads}, nil
	default:
		return nil, errors.New("unknown vmpool mode")
	}
}

// baseFlags returns the flags common to every mode: the platform-recommended
// JIT/AES flags (§4.3 step 1).
func baseFlags() randomx.Flags {
	return randomx.GetFlags() | randomx.FlagJIT
}

// initDatasetParallel fills dataset from cache using up to numThreads helper
// goroutines bounded by a SizedWaitGroup, each handed a contiguous item range
// (the last absorbs the remainder), grounded on job.go's notifyWg fan-out
// pattern. Every item in [0, itemCount) is initialized exactly once before
// this function returns (§9 Design Notes on dataset parallelism).
func initDatasetParallel(dataset *randomx.Dataset, cache *randomx.Cache, numThreads int) {
	itemCount := randomx.DatasetItemCount()
	helpers := numThreads
	if hw := runtime.NumCPU(); helpers > hw {
		helpers = hw
	}
	if helpers < 1 {
		helpers = 1
	}
	if uint64(helpers) > itemCount {
		helpers = int(itemCount)
	}
	if helpers < 1 {
		helpers = 1
	}

	chunk := itemCount / uint64(helpers)
	swg := sizedwaitgroup.New(helpers)
	for i := 0; i < helpers; i++ {
		start := uint64(i) * chunk
		count := chunk
		if i == helpers-1 {
			count = itemCount - start
		}
		swg.Add()
		go func(start, count uint64) {
			defer swg.Done()
			dataset.Init(cache, start, count)
		}(start, count)
	}
	swg.Wait()
	crylog.Info("randomx dataset initialized:", itemCount, "items across", helpers, "helpers")
}

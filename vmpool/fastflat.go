// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package vmpool

import (
	"github.com/cryptonote-social/rxminer/randomx"
)

// fastFlatPool builds the full dataset once and shares it across every VM,
// regardless of NUMA topology (§4.3 step 3: "fast mode also sets full-memory"
// and always uses a single shared dataset rather than per-node ones).
type fastFlatPool struct {
	numThreads int

	cache   *randomx.Cache
	dataset *randomx.Dataset
	vms     []*randomx.VM
}

func (p *fastFlatPool) initialize(seed [32]byte) error {
	flags := baseFlags() | randomx.FlagFullMem

	cache, err := randomx.AllocCache(flags)
	if err != nil {
		return err
	}
	cache.Init(seed[:])

	dataset, err := randomx.AllocDataset(flags)
	if err != nil {
		cache.Release()
		return err
	}
	initDatasetParallel(dataset, cache, p.numThreads)

	vms := make([]*randomx.VM, p.numThreads)
	for i := 0; i < p.numThreads; i++ {
		vm, err := randomx.CreateVM(flags, nil, dataset)
		if err != nil {
			for j := 0; j < i; j++ {
				vms[j].Destroy()
			}
			dataset.Release()
			cache.Release()
			return err
		}
		vms[i] = vm
	}

	p.cache = cache
	p.dataset = dataset
	p.vms = vms
	return nil
}

// updateSeed reinitializes the shared cache and dataset, then rebinds every
// existing VM to the (same-pointer) dataset. VMs are not destroyed and
// recreated in fast mode (§4.3 Seed update, fast path).
func (p *fastFlatPool) updateSeed(seed [32]byte) error {
	p.cache.Init(seed[:])
	initDatasetParallel(p.dataset, p.cache, p.numThreads)
	for _, vm := range p.vms {
		vm.SetDataset(p.dataset)
	}
	return nil
}

func (p *fastFlatPool) vmForThread(i int) *randomx.VM {
	if i < 0 || i >= len(p.vms) {
		return nil
	}
	return p.vms[i]
}

func (p *fastFlatPool) release() {
	for _, vm := range p.vms {
		vm.Destroy()
	}
	p.vms = nil
	if p.dataset != nil {
		p.dataset.Release()
		p.dataset = nil
	}
	if p.cache != nil {
		p.cache.Release()
		p.cache = nil
	}
}

// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package vmpool

import (
	"github.com/cryptonote-social/rxminer/randomx"
)

// lightFlatPool is the simplest strategy: one shared cache, one VM per
// worker, no NUMA distinction.
type lightFlatPool struct {
	numThreads int

	cache *randomx.Cache
	vms   []*randomx.VM
}

func (p *lightFlatPool) initialize(seed [32]byte) error {
	flags := baseFlags()
	cache, err := randomx.AllocCache(flags)
	if err != nil {
		return err
	}
	cache.Init(seed[:])

	vms := make([]*randomx.VM, p.numThreads)
	for i := 0; i < p.numThreads; i++ {
		vm, err := randomx.CreateVM(flags, cache, nil)
		if err != nil {
			for j := 0; j < i; j++ {
				vms[j].Destroy()
			}
			cache.Release()
			return err
		}
		vms[i] = vm
	}

	p.cache = cache
	p.vms = vms
	return nil
}

func (p *lightFlatPool) updateSeed(seed [32]byte) error {
	p.cache.Init(seed[:])
	for _, vm := range p.vms {
		vm.Destroy()
	}
	flags := baseFlags()
	newVMs := make([]*randomx.VM, len(p.vms))
	for i := range newVMs {
		vm, err := randomx.CreateVM(flags, p.cache, nil)
		if err != nil {
			return err
		}
		newVMs[i] = vm
	}
	p.vms = newVMs
	return nil
}

func (p *lightFlatPool) vmForThread(i int) *randomx.VM {
	if i < 0 || i >= len(p.vms) {
		return nil
	}
	return p.vms[i]
}

func (p *lightFlatPool) release() {
	for _, vm := range p.vms {
		vm.Destroy()
	}
	p.vms = nil
	if p.cache != nil {
		p.cache.Release()
		p.cache = nil
	}
}

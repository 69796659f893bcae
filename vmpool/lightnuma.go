// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package vmpool

import (
	"github.com/cryptonote-social/rxminer/numa"
	"github.com/cryptonote-social/rxminer/randomx"
)

// lightNumaNode holds one NUMA node's private cache and the VMs assigned to
// workers on that node, indexed by rank-within-node (§4.4 VM lookup).
type lightNumaNode struct {
	cache *randomx.Cache
	vms   []*randomx.VM
}

// lightNumaPool allocates one cache per NUMA node with at least one assigned
// worker and binds each node's workers to VMs created from that node's cache
// (§4.3 step 4). There is no dataset in this mode.
type lightNumaPool struct {
	numThreads  int
	topo        numa.Topology
	assignments []numa.Assignment

	nodes map[int]*lightNumaNode
}

func (p *lightNumaPool) initialize(seed [32]byte) error {
	flags := baseFlags()

	threadsPerNode := make(map[int]int)
	for _, a := range p.assignments {
		threadsPerNode[a.Node]++
	}

	nodes := make(map[int]*lightNumaNode)
	for nodeID, count := range threadsPerNode {
		if count == 0 {
			continue
		}
		cache, err := randomx.AllocCache(flags)
		if err != nil {
			releaseNodes(nodes)
			return err
		}
		cache.Init(seed[:])

		vms := make([]*randomx.VM, count)
		for i := 0; i < count; i++ {
			vm, err := randomx.CreateVM(flags, cache, nil)
			if err != nil {
				for j := 0; j < i; j++ {
					vms[j].Destroy()
				}
				cache.Release()
				releaseNodes(nodes)
				return err
			}
			vms[i] = vm
		}
		nodes[nodeID] = &lightNumaNode{cache: cache, vms: vms}
	}

	p.nodes = nodes
	return nil
}

func (p *lightNumaPool) updateSeed(seed [32]byte) error {
	for _, node := range p.nodes {
		node.cache.Init(seed[:])
		for _, vm := range node.vms {
			vm.Destroy()
		}
		flags := baseFlags()
		newVMs := make([]*randomx.VM, len(node.vms))
		for i := range newVMs {
			vm, err := randomx.CreateVM(flags, node.cache, nil)
			if err != nil {
				return err
			}
			newVMs[i] = vm
		}
		node.vms = newVMs
	}
	return nil
}

// vmForThread looks up thread i's node and its rank within that node, per
// §4.4's get_vm_for_thread.
func (p *lightNumaPool) vmForThread(i int) *randomx.VM {
	if i < 0 || i >= len(p.assignments) {
		return nil
	}
	a := p.assignments[i]
	node, ok := p.nodes[a.Node]
	if !ok || a.Index < 0 || a.Index >= len(node.vms) {
		return nil
	}
	return node.vms[a.Index]
}

func (p *lightNumaPool) release() {
	releaseNodes(p.nodes)
	p.nodes = nil
}

func releaseNodes(nodes map[int]*lightNumaNode) {
	for _, n := range nodes {
		for _, vm := range n.vms {
			vm.Destroy()
		}
		if n.cache != nil {
			n.cache.Release()
		}
	}
}

// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package numa discovers NUMA topology and assigns mining threads to nodes and
// CPUs round-robin, the way miner.cpp's detect_numa_topology/set_thread_affinity
// do over libnuma. There's no cgo-free Go binding for libnuma in reach, so this
// package reads /sys/devices/system/node directly and binds affinity through
// golang.org/x/sys/unix instead of linking numa.h.
package numa

// Node is one NUMA node and the CPU ids that belong to it.
type Node struct {
	ID     int
	CPUIDs []int
}

// Topology is the full set of NUMA nodes on the host. A single-node Topology
// (len(Nodes) == 1) means NUMA isn't available or isn't worth distinguishing,
// matching the C++ fallback of numa_available_ = false.
type Topology struct {
	Nodes []Node
}

// Available reports whether the topology has more than one node worth
// distributing threads across.
func (t Topology) Available() bool {
	return len(t.Nodes) > 1
}

// Assignment maps a mining thread index to the NUMA node and specific CPU it
// should run on.
type Assignment struct {
	Node  int
	CPU   int
	Index int // rank of this thread within its node, for selecting the node's own VM
}

// AssignThreads distributes numThreads threads round-robin across topo's
// nodes, then round-robin across each node's CPU list, mirroring
// detect_numa_topology's thread_to_cpu_/thread_to_node_ construction.
func AssignThreads(topo Topology, numThreads int) []Assignment {
	assignments := make([]Assignment, numThreads)
	if len(topo.Nodes) == 0 {
		for t := 0; t < numThreads; t++ {
			assignments[t] = Assignment{Node: 0, CPU: -1, Index: t}
		}
		return assignments
	}

	nodeThreadCount := make([]int, len(topo.Nodes))
	for t := 0; t < numThreads; t++ {
		node := t % len(topo.Nodes)
		n := topo.Nodes[node]
		cpu := -1
		idx := nodeThreadCount[node]
		if len(n.CPUIDs) > 0 {
			cpu = n.CPUIDs[idx%len(n.CPUIDs)]
		}
		assignments[t] = Assignment{Node: n.ID, CPU: cpu, Index: idx}
		nodeThreadCount[node]++
	}
	return assignments
}

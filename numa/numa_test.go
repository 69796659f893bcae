// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package numa

import "testing"

func TestAssignThreads_SingleNode(t *testing.T) {
	topo := Topology{Nodes: []Node{{ID: 0, CPUIDs: []int{0, 1, 2, 3}}}}
	got := AssignThreads(topo, 6)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	for i, a := range got {
		if a.Node != 0 {
			t.Errorf("thread %d: Node = %d, want 0", i, a.Node)
		}
		wantCPU := topo.Nodes[0].CPUIDs[i%4]
		if a.CPU != wantCPU {
			t.Errorf("thread %d: CPU = %d, want %d", i, a.CPU, wantCPU)
		}
	}
}

func TestAssignThreads_MultiNode_RoundRobin(t *testing.T) {
	topo := Topology{Nodes: []Node{
		{ID: 0, CPUIDs: []int{0, 1}},
		{ID: 1, CPUIDs: []int{2, 3}},
	}}
	got := AssignThreads(topo, 4)
	want := []Assignment{
		{Node: 0, CPU: 0, Index: 0},
		{Node: 1, CPU: 2, Index: 0},
		{Node: 0, CPU: 1, Index: 1},
		{Node: 1, CPU: 3, Index: 1},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("thread %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAssignThreads_NoTopology(t *testing.T) {
	got := AssignThreads(Topology{}, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, a := range got {
		if a.CPU != -1 {
			t.Errorf("thread %d: CPU = %d, want -1 (no preference)", i, a.CPU)
		}
		_ = a
	}
}

func TestAssignThreads_EmptyCPUList(t *testing.T) {
	topo := Topology{Nodes: []Node{{ID: 5}}}
	got := AssignThreads(topo, 2)
	for i, a := range got {
		if a.Node != 5 {
			t.Errorf("thread %d: Node = %d, want 5", i, a.Node)
		}
		if a.CPU != -1 {
			t.Errorf("thread %d: CPU = %d, want -1", i, a.CPU)
		}
	}
}

func TestTopology_Available(t *testing.T) {
	if (Topology{Nodes: []Node{{ID: 0}}}).Available() {
		t.Error("single-node topology should not be Available")
	}
	if !(Topology{Nodes: []Node{{ID: 0}, {ID: 1}}}).Available() {
		t.Error("two-node topology should be Available")
	}
}

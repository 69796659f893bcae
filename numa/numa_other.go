// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

//go:build !linux

package numa

// DetectTopology always reports a single node on non-Linux platforms; NUMA
// discovery here is grounded on /sys, which doesn't exist elsewhere.
func DetectTopology() Topology {
	return Topology{Nodes: []Node{{ID: 0}}}
}

// BindThread is a no-op off Linux: there's no portable affinity call in the
// example corpus for other platforms.
func BindThread(cpuID int) error {
	return nil
}

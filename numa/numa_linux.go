// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

//go:build linux

package numa

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/cryptonote-social/rxminer/crylog"
)

const sysNodeDir = "/sys/devices/system/node"

// DetectTopology reads /sys/devices/system/node/node*/cpulist to build a
// Topology. If the directory doesn't exist, or only one node is present, it
// returns a single-node Topology (NUMA unavailable), matching miner.cpp's
// numa_available()==-1 / num_numa_nodes_<=1 fallback.
func DetectTopology() Topology {
	entries, err := os.ReadDir(sysNodeDir)
	if err != nil {
		return Topology{Nodes: []Node{{ID: 0}}}
	}

	var nodes []Node
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "node") {
			continue
		}
		idStr := strings.TrimPrefix(name, "node")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		cpuIDs, err := readCPUList(filepath.Join(sysNodeDir, name, "cpulist"))
		if err != nil {
			crylog.Warn("failed to read cpulist for NUMA node", id, ":", err)
			continue
		}
		nodes = append(nodes, Node{ID: id, CPUIDs: cpuIDs})
	}

	if len(nodes) == 0 {
		return Topology{Nodes: []Node{{ID: 0}}}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return Topology{Nodes: nodes}
}

// readCPUList parses a Linux cpulist file, e.g. "0-3,8-11".
func readCPUList(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cpus []int
	for _, part := range strings.Split(strings.TrimSpace(string(data)), ",") {
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash >= 0 {
			lo, err := strconv.Atoi(part[:dash])
			if err != nil {
				return nil, err
			}
			hi, err := strconv.Atoi(part[dash+1:])
			if err != nil {
				return nil, err
			}
			for c := lo; c <= hi; c++ {
				cpus = append(cpus, c)
			}
		} else {
			c, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}

// BindThread pins the calling OS thread to cpuID. Callers must hold the OS
// thread (runtime.LockOSThread) before calling this, since affinity is a
// per-thread property. cpuID < 0 means "no preference" and is a no-op.
func BindThread(cpuID int) error {
	if cpuID < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}

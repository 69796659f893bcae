// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.
package engine

import "github.com/cryptonote-social/rxminer/vmpool"

// PoolSource adapts a *vmpool.Pool to VMSource. It exists because
// (*vmpool.Pool).VMForThread returns *randomx.VM rather than the VMHasher
// interface, and Go interface satisfaction isn't covariant on return types.
type PoolSource struct {
	Pool *vmpool.Pool
}

func (s PoolSource) VMForThread(i int) VMHasher {
	vm := s.Pool.VMForThread(i)
	if vm == nil {
		return nil
	}
	return vm
}

func (s PoolSource) CPUForThread(i int) int {
	return s.Pool.CPUForThread(i)
}

// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package randomx provides granular cgo access to the librandomx C ABI: flags,
// cache, dataset, and VM, each owned by its caller rather than hidden behind a
// package-level singleton.
package randomx

// #cgo CFLAGS: -std=c11 -D_GNU_SOURCE -m64 -O3 -I${SRCDIR}/../../RandomX/rxlib/
// #cgo LDFLAGS: -L${SRCDIR}/../../RandomX/rxlib/ -lrandomx -lstdc++ -lm
/*
#include <stdlib.h>
#include <stdint.h>

typedef struct randomx_cache randomx_cache;
typedef struct randomx_dataset randomx_dataset;
typedef struct randomx_vm randomx_vm;

typedef enum {
	RANDOMX_FLAG_DEFAULT = 0,
	RANDOMX_FLAG_LARGE_PAGES = 1,
	RANDOMX_FLAG_HARD_AES = 2,
	RANDOMX_FLAG_FULL_MEM = 4,
	RANDOMX_FLAG_JIT = 8,
	RANDOMX_FLAG_SECURE = 16,
	RANDOMX_FLAG_ARGON2_SSSE3 = 32,
	RANDOMX_FLAG_ARGON2_AVX2 = 64,
	RANDOMX_FLAG_ARGON2 = 96
} randomx_flags;

extern randomx_flags randomx_get_flags(void);

extern randomx_cache *randomx_alloc_cache(randomx_flags flags);
extern void randomx_init_cache(randomx_cache *cache, const void *key, size_t keySize);
extern void randomx_release_cache(randomx_cache *cache);

extern unsigned long randomx_dataset_item_count(void);
extern randomx_dataset *randomx_alloc_dataset(randomx_flags flags);
extern void randomx_init_dataset(randomx_dataset *dataset, randomx_cache *cache, unsigned long startItem, unsigned long itemCount);
extern void randomx_release_dataset(randomx_dataset *dataset);

extern randomx_vm *randomx_create_vm(randomx_flags flags, randomx_cache *cache, randomx_dataset *dataset);
extern void randomx_vm_set_cache(randomx_vm *machine, randomx_cache *cache);
extern void randomx_vm_set_dataset(randomx_vm *machine, randomx_dataset *dataset);
extern void randomx_destroy_vm(randomx_vm *machine);

extern void randomx_calculate_hash(randomx_vm *machine, const void *input, size_t inputSize, void *output);
*/
import "C"

import (
	"errors"
	"unsafe"
)

// Flags mirrors the randomx_flags bitmask (§6.4). FlagDefault is the base
// interpreted mode; the others are combined to pick JIT compilation, large
// pages, hardware AES, and full-dataset ("fast") mode.
type Flags uint32

const (
	FlagDefault      Flags = 0
	FlagLargePages   Flags = 1
	FlagHardAES      Flags = 2
	FlagFullMem      Flags = 4
	FlagJIT          Flags = 8
	FlagSecure       Flags = 16
	FlagArgon2SSSE3  Flags = 32
	FlagArgon2AVX2   Flags = 64
	FlagArgon2       Flags = 96
)

// GetFlags returns the flags recommended for the current CPU, the way
// randomx_get_flags picks JIT/AES support automatically.
func GetFlags() Flags {
	return Flags(C.randomx_get_flags())
}

// DatasetItemCount returns the number of items in a full RandomX dataset.
func DatasetItemCount() uint64 {
	return uint64(C.randomx_dataset_item_count())
}

// Cache wraps a randomx_cache, the ~256MB light-mode working set keyed by a
// seed hash.
type Cache struct {
	ptr *C.randomx_cache
}

// AllocCache allocates a cache with the given flags. Returns an error if the
// C library couldn't satisfy the requested flags (e.g. large pages
// unavailable).
func AllocCache(flags Flags) (*Cache, error) {
	ptr := C.randomx_alloc_cache(C.randomx_flags(flags))
	if ptr == nil {
		return nil, errors.New("randomx: randomx_alloc_cache failed")
	}
	return &Cache{ptr: ptr}, nil
}

// Init keys the cache with seed, the way the RandomX epoch's seed hash seeds
// every cache derived from it.
func (c *Cache) Init(seed []byte) {
	if len(seed) == 0 {
		return
	}
	C.randomx_init_cache(c.ptr, unsafe.Pointer(&seed[0]), C.size_t(len(seed)))
}

// Release frees the underlying cache. The cache must not be used by any VM
// after this call.
func (c *Cache) Release() {
	if c.ptr == nil {
		return
	}
	C.randomx_release_cache(c.ptr)
	c.ptr = nil
}

// Dataset wraps a randomx_dataset, the ~2GB fast-mode working set built from a
// Cache.
type Dataset struct {
	ptr *C.randomx_dataset
}

// AllocDataset allocates an (uninitialized) dataset with the given flags.
func AllocDataset(flags Flags) (*Dataset, error) {
	ptr := C.randomx_alloc_dataset(C.randomx_flags(flags))
	if ptr == nil {
		return nil, errors.New("randomx: randomx_alloc_dataset failed")
	}
	return &Dataset{ptr: ptr}, nil
}

// Init fills items [startItem, startItem+itemCount) of the dataset from
// cache. Callers parallelize dataset construction by partitioning the full
// item range across goroutines and calling Init on disjoint sub-ranges
// concurrently; the C library itself is safe for this as long as ranges don't
// overlap.
func (d *Dataset) Init(cache *Cache, startItem, itemCount uint64) {
	C.randomx_init_dataset(d.ptr, cache.ptr, C.ulong(startItem), C.ulong(itemCount))
}

// Release frees the underlying dataset. The dataset must not be used by any
// VM after this call.
func (d *Dataset) Release() {
	if d.ptr == nil {
		return
	}
	C.randomx_release_dataset(d.ptr)
	d.ptr = nil
}

// VM wraps a randomx_vm, the per-thread hashing context. A VM is bound to
// exactly one Cache (light mode) or one Dataset (fast mode) at creation time,
// per the spec's LightNuma/LightFlat/FastFlat distinction.
type VM struct {
	ptr *C.randomx_vm
}

// CreateVM creates a VM bound to cache (may be nil in fast mode once dataset
// is non-nil) and dataset (nil in light mode).
func CreateVM(flags Flags, cache *Cache, dataset *Dataset) (*VM, error) {
	var cptr *C.randomx_cache
	if cache != nil {
		cptr = cache.ptr
	}
	var dptr *C.randomx_dataset
	if dataset != nil {
		dptr = dataset.ptr
	}
	ptr := C.randomx_create_vm(C.randomx_flags(flags), cptr, dptr)
	if ptr == nil {
		return nil, errors.New("randomx: randomx_create_vm failed")
	}
	return &VM{ptr: ptr}, nil
}

// SetDataset rebinds the VM to a new dataset, used when a fast-mode VM
// survives a seed transition by swapping in the freshly-built dataset rather
// than being destroyed and recreated.
func (vm *VM) SetDataset(dataset *Dataset) {
	var dptr *C.randomx_dataset
	if dataset != nil {
		dptr = dataset.ptr
	}
	C.randomx_vm_set_dataset(vm.ptr, dptr)
}

// SetCache rebinds the VM to a new cache, the light-mode analogue of
// SetDataset.
func (vm *VM) SetCache(cache *Cache) {
	var cptr *C.randomx_cache
	if cache != nil {
		cptr = cache.ptr
	}
	C.randomx_vm_set_cache(vm.ptr, cptr)
}

// Destroy frees the underlying VM.
func (vm *VM) Destroy() {
	if vm.ptr == nil {
		return
	}
	C.randomx_destroy_vm(vm.ptr)
	vm.ptr = nil
}

// CalculateHash computes the RandomX hash of input and returns it as a 32-byte
// array.
func (vm *VM) CalculateHash(input []byte) [32]byte {
	var out [32]byte
	var inPtr unsafe.Pointer
	if len(input) > 0 {
		inPtr = unsafe.Pointer(&input[0])
	}
	C.randomx_calculate_hash(vm.ptr, inPtr, C.size_t(len(input)), unsafe.Pointer(&out[0]))
	return out
}

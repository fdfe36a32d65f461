package vm

import (
	"fmt"

	"github.com/sarchlab/ptsim/memory"
)

// A Builder can build a Manager.
type Builder struct {
	storage memory.Controller
	cache   TranslationCache
	hooks   []Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithStorage sets the physical memory that the manager uses. The storage
// must be at least MemSize bytes. It is cleared when the manager is built.
func (b Builder) WithStorage(storage memory.Controller) Builder {
	b.storage = storage
	return b
}

// WithTranslationCache sets the cache that keeps recent translations.
func (b Builder) WithTranslationCache(cache TranslationCache) Builder {
	b.cache = cache
	return b
}

// WithHook registers a hook on the manager to build.
func (b Builder) WithHook(hook Hook) Builder {
	b.hooks = append(b.hooks, hook)
	return b
}

// Build returns a newly created manager with every page but page 0 free.
func (b Builder) Build() *Manager {
	m := new(Manager)

	m.storage = b.storage
	if m.storage == nil {
		m.storage = memory.NewStorage(MemSize)
	}

	b.storageMustBeLargeEnough(m.storage)

	err := m.storage.Fill(0, MemSize, 0)
	if err != nil {
		panic(err)
	}

	m.alloc = allocator{storage: m.storage}
	m.procs = processTable{storage: m.storage}
	m.cache = b.cache

	m.alloc.init()

	for _, h := range b.hooks {
		m.AcceptHook(h)
	}

	return m
}

func (b Builder) storageMustBeLargeEnough(storage memory.Controller) {
	if storage.Capacity() < MemSize {
		panic(fmt.Sprintf("physical memory of %d bytes is smaller than %d",
			storage.Capacity(), MemSize))
	}
}

// NewManager creates a manager with its own physical memory and no
// translation cache.
func NewManager() *Manager {
	return MakeBuilder().Build()
}

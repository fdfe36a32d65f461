// Package tlb provides a translation cache for the virtual memory manager.
package tlb

import (
	"github.com/dgraph-io/ristretto/v2"
	"github.com/sarchlab/ptsim/mem/vm"
)

// A TLB caches the physical page of recently translated virtual pages.
//
// Entries are keyed by process and virtual page. Every insertion and
// invalidation is applied before the call returns, so a lookup never sees a
// translation of a killed process.
type TLB struct {
	cache *ristretto.Cache[uint64, vm.PageNum]
}

// New creates a TLB that holds up to numEntries translations.
func New(numEntries int) (*TLB, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, vm.PageNum]{
		NumCounters:        int64(numEntries) * 10,
		MaxCost:            int64(numEntries),
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &TLB{cache: cache}, nil
}

func key(pid vm.PID, vPage uint8) uint64 {
	return uint64(pid)<<8 | uint64(vPage)
}

// Lookup returns the cached physical page of a virtual page.
func (t *TLB) Lookup(pid vm.PID, vPage uint8) (vm.PageNum, bool) {
	return t.cache.Get(key(pid, vPage))
}

// Insert caches a translation.
func (t *TLB) Insert(pid vm.PID, vPage uint8, page vm.PageNum) {
	t.cache.Set(key(pid, vPage), page, 1)
	t.cache.Wait()
}

// InvalidateProcess drops all the translations of a process.
func (t *TLB) InvalidateProcess(pid vm.PID) {
	for vPage := 0; vPage < vm.PageCount; vPage++ {
		t.cache.Del(key(pid, uint8(vPage)))
	}

	t.cache.Wait()
}

// Flush drops every translation.
func (t *TLB) Flush() {
	t.cache.Clear()
}

// Stats returns the number of lookups that hit and missed.
func (t *TLB) Stats() (hits, misses uint64) {
	return t.cache.Metrics.Hits(), t.cache.Metrics.Misses()
}

// Close releases the resources of the cache.
func (t *TLB) Close() {
	t.cache.Close()
}

var _ vm.TranslationCache = (*TLB)(nil)

package vm

import "reflect"

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookPosPageAlloc triggers after a physical page is marked allocated. The
// item is the PageNum.
var HookPosPageAlloc = &HookPos{Name: "PageAlloc"}

// HookPosPageFree triggers after a physical page is released. The item is the
// PageNum.
var HookPosPageFree = &HookPos{Name: "PageFree"}

// HookPosOOM triggers each time an allocation for a process fails. The item
// is an *OOMError with Count 1. The detail is the page table entry index for
// data pages, or -1 for the page table itself.
var HookPosOOM = &HookPos{Name: "OOM"}

// HookPosProcessCreate triggers after a process is created. The item is the
// Process.
var HookPosProcessCreate = &HookPos{Name: "ProcessCreate"}

// HookPosProcessKill triggers after a process is killed. The item is the
// Process, listing the pages that were released.
var HookPosProcessKill = &HookPos{Name: "ProcessKill"}

// HookPosStore triggers after a byte is stored. The item is the Access.
var HookPosStore = &HookPos{Name: "Store"}

// HookPosLoad triggers after a byte is loaded. The item is the Access.
var HookPosLoad = &HookPos{Name: "Load"}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
//
// Hooks run while the manager holds its lock. A hook must not call back into
// the manager that invoked it.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookFunc turns an ordinary function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// A HookableBase provides the bookkeeping of the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	// Function hooks cannot be compared.
	if !reflect.TypeOf(hook).Comparable() {
		return
	}

	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the registered Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

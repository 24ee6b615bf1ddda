package kernel

import (
	"log/slog"
	"sync"

	"github.com/ctremu/horizonfs/internal/result"
)

const (
	slotBits = 16
	slotMask = 1<<slotBits - 1
)

type slot struct {
	object     Object
	generation uint32
}

// Pool owns every live kernel object and maps handles to them. It is a
// process-scoped context object; a single mutex guards all slot state so
// the pool can be driven from multiple emulation threads.
type Pool struct {
	mu    sync.Mutex
	slots []slot
	free  []int

	// one-entry cache for repeated lookups within a single request
	lastHandle Handle
	lastObject Object
}

func NewPool() *Pool {
	return &Pool{}
}

// Create takes ownership of a freshly constructed object, assigns it an
// unused handle and returns the handle. It never fails; callers validate
// beforehand.
func (p *Pool) Create(obj Object) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idx int
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.slots = append(p.slots, slot{})
		idx = len(p.slots) - 1
	}

	s := &p.slots[idx]
	s.generation = s.generation&slotMask + 1
	if s.generation > slotMask {
		s.generation = 1
	}
	s.object = obj

	return makeHandle(idx, s.generation)
}

func makeHandle(idx int, generation uint32) Handle {
	return Handle(uint32(idx) | generation<<slotBits)
}

func (p *Pool) lookupLocked(h Handle) (Object, bool) {
	idx := int(uint32(h) & slotMask)
	generation := uint32(h) >> slotBits

	if generation == 0 || idx >= len(p.slots) {
		return nil, false
	}

	s := p.slots[idx]
	if s.object == nil || s.generation != generation {
		return nil, false
	}

	return s.object, true
}

// Lookup resolves a handle to its object regardless of kind. Absence is
// reported as ok=false, not as an error; callers convert it into a protocol
// error where required.
func (p *Pool) Lookup(h Handle) (Object, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lookupLocked(h)
}

// Count returns the number of live objects in the pool.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.slots) - len(p.free)
}

// Get resolves a handle to a typed object if it exists and its kind
// matches T. It returns the zero value and false on an unknown handle or a
// tag mismatch.
func Get[T Object](p *Pool, h Handle) (T, bool) {
	var zero T

	obj, ok := p.Lookup(h)
	if !ok {
		return zero, false
	}

	typed, ok := obj.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}

// GetFast has the same contract as [Get] but consults a one-entry cache of
// the last resolved handle, for hot per-command dispatch paths where the
// same handle is resolved repeatedly within one request.
func GetFast[T Object](p *Pool, h Handle) (T, bool) {
	var zero T

	p.mu.Lock()
	obj := p.lastObject
	if p.lastHandle != h || obj == nil {
		var ok bool
		obj, ok = p.lookupLocked(h)
		if !ok {
			p.mu.Unlock()

			return zero, false
		}
		p.lastHandle = h
		p.lastObject = obj
	}
	p.mu.Unlock()

	typed, ok := obj.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}

// Destroy removes and frees the object behind a handle of kind T. A
// double destroy, an unknown handle or a kind mismatch is reported to the
// caller as an invalid-handle code, never as a crash.
func Destroy[T Object](p *Pool, h Handle) result.Code {
	p.mu.Lock()
	defer p.mu.Unlock()

	obj, ok := p.lookupLocked(h)
	if !ok {
		slog.Error("Cannot destroy unknown kernel handle.", "handle", h)

		return result.InvalidHandle(result.ModuleKernel)
	}

	if _, ok := obj.(T); !ok {
		slog.Error("Cannot destroy kernel handle of wrong kind.",
			"handle", h, "type", obj.TypeName())

		return result.InvalidHandle(result.ModuleKernel)
	}

	idx := int(uint32(h) & slotMask)
	p.slots[idx].object = nil
	p.free = append(p.free, idx)

	if p.lastHandle == h {
		p.lastHandle = HandleInvalid
		p.lastObject = nil
	}

	return result.Success
}

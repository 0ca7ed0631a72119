// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import "fmt"

type resourceKind uint8

const (
	kindBuffer resourceKind = iota
	kindTexture
	kindFramebuffer
	kindProgram
	kindTess
)

func (k resourceKind) String() string {
	switch k {
	case kindBuffer:
		return "buffer"
	case kindTexture:
		return "texture"
	case kindFramebuffer:
		return "framebuffer"
	case kindProgram:
		return "program"
	case kindTess:
		return "tess"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// handle addresses a slot of a resourceTable. A handle outlives its
// resource; the generation tells a stale handle from a live one.
type handle struct {
	index uint32
	gen   uint32
}

type slot struct {
	gen      uint32
	kind     resourceKind
	label    string
	live     bool
	borrowed bool
	pending  bool
	destroy  func()
}

// resourceTable is the arena behind every resource of a Context.
//
// Releasing a borrowed slot marks it dead immediately but keeps its
// destroy function queued until the borrow ends. drain runs the queue.
type resourceTable struct {
	slots    []slot
	free     []uint32
	live     int
	borrowed int
	pending  []uint32
}

func (t *resourceTable) alloc(kind resourceKind, label string, destroy func()) handle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots)) //nolint:gosec // G115: slot count is bounded by memory
		t.slots = append(t.slots, slot{})
	}
	s := &t.slots[idx]
	s.gen++
	s.kind = kind
	s.label = label
	s.live = true
	s.borrowed = false
	s.pending = false
	s.destroy = destroy
	t.live++
	return handle{index: idx, gen: s.gen}
}

func (t *resourceTable) lookup(h handle) *slot {
	if int(h.index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s
}

func (t *resourceTable) alive(h handle) bool {
	s := t.lookup(h)
	return s != nil && s.live
}

// borrow marks h as in use by the running pipeline. It reports whether the
// slot was newly borrowed.
func (t *resourceTable) borrow(h handle) bool {
	s := t.lookup(h)
	if s == nil || !s.live || s.borrowed {
		return false
	}
	s.borrowed = true
	t.borrowed++
	return true
}

func (t *resourceTable) unborrow(h handle) {
	s := t.lookup(h)
	if s == nil || !s.borrowed {
		return
	}
	s.borrowed = false
	t.borrowed--
}

func (t *resourceTable) isBorrowed(h handle) bool {
	s := t.lookup(h)
	return s != nil && s.borrowed
}

// release kills h. The destroy function runs now, or at the next drain if
// h is borrowed. It reports whether destruction was deferred.
func (t *resourceTable) release(h handle) (deferred bool) {
	s := t.lookup(h)
	if s == nil || !s.live {
		return false
	}
	s.live = false
	t.live--
	if s.borrowed {
		s.pending = true
		t.pending = append(t.pending, h.index)
		return true
	}
	t.reclaim(h.index)
	return false
}

func (t *resourceTable) reclaim(idx uint32) {
	s := &t.slots[idx]
	destroy := s.destroy
	s.destroy = nil
	s.pending = false
	s.label = ""
	// Bump the generation so handles held by dead resources never match
	// a reused slot.
	s.gen++
	t.free = append(t.free, idx)
	if destroy != nil {
		destroy()
	}
}

// drain destroys every pending slot that is no longer borrowed and
// returns how many were destroyed.
func (t *resourceTable) drain() int {
	n := 0
	kept := t.pending[:0]
	for _, idx := range t.pending {
		if t.slots[idx].borrowed {
			kept = append(kept, idx)
			continue
		}
		t.reclaim(idx)
		n++
	}
	t.pending = kept
	return n
}

// destroyAll runs every outstanding destroy function. Used when the
// context closes.
func (t *resourceTable) destroyAll() {
	for i := range t.slots {
		s := &t.slots[i]
		if s.live || s.pending {
			if s.borrowed {
				s.borrowed = false
				t.borrowed--
			}
			if s.live {
				s.live = false
				t.live--
			}
			t.reclaim(uint32(i)) //nolint:gosec // G115: bounded by slot count
		}
	}
	t.pending = nil
}

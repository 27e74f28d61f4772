// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

// Mapping is a scoped CPU view of a mapped resource.
//
// Close unmaps. Destroying the owning handle also unmaps, so a mapping can
// never outlive its resource regardless of which path releases it.
type Mapping struct {
	owner  *Handle
	data   []byte
	closed bool
}

// Bytes returns the mapped memory, or nil once the mapping is closed.
func (m *Mapping) Bytes() []byte {
	h := m.owner
	h.mu.Lock()
	defer h.mu.Unlock()
	return m.data
}

// Close unmaps the resource. Calling Close more than once is a no-op.
func (m *Mapping) Close() {
	h := m.owner
	h.mu.Lock()
	if m.closed {
		h.mu.Unlock()
		return
	}
	m.closed = true
	m.data = nil
	res := h.res
	if h.mapping == m {
		h.mapping = nil
	}
	h.mu.Unlock()

	if res != nil {
		res.Unmap()
	}
}

// Package numbering keeps ordered lists numbered independently: every <ol>
// gets its own numbering instance which restarts from one.
package numbering

import (
	"strconv"
)

// Identity identifies single open ordered list. Identities are never reused
// within a session.
type Identity int

// NoList is identity used for list items outside of any ordered list.
const NoList Identity = 0

// Sink creates numbering instances, implemented by document.
type Sink interface {
	// RequestNumbering returns id of a new numbering instance derived from
	// numbering of named list style, restart requests counters to start
	// over.
	RequestNumbering(base string, restart bool) int
}

// Manager assigns numbering instances to ordered lists.
type Manager struct {
	sink  Sink
	last  Identity
	cache map[Identity]int
}

// NewManager returns manager requesting instances from sink.
func NewManager(sink Sink) *Manager {
	return &Manager{sink: sink, cache: make(map[Identity]int)}
}

// Open registers new ordered list and returns its identity.
func (m *Manager) Open() Identity {
	m.last++
	return m.last
}

// NumberingFor returns numbering instance id for list items of identity.
// Instance is requested from sink on first use and cached until Close.
func (m *Manager) NumberingFor(id Identity, base string) int {
	if num, ok := m.cache[id]; ok {
		return num
	}
	num := m.sink.RequestNumbering(base, true)
	m.cache[id] = num
	return num
}

// Close forgets numbering of identity.
func (m *Manager) Close(id Identity) {
	delete(m.cache, id)
}

// Active returns number of lists with assigned numbering.
func (m *Manager) Active() int {
	return len(m.cache)
}

// Kind is list type.
type Kind int

const (
	Bullet Kind = iota
	Number
)

// KindOf returns list kind for list tag name.
func KindOf(tag string) Kind {
	if tag == "ol" {
		return Number
	}
	return Bullet
}

// MaxDepth is deepest list level having its own named style.
const MaxDepth = 3

// StyleName returns named paragraph style for list item at depth, depth is
// clamped to 1..MaxDepth.
func StyleName(kind Kind, depth int) string {
	depth = min(max(depth, 1), MaxDepth)
	name := "List Bullet"
	if kind == Number {
		name = "List Number"
	}
	if depth > 1 {
		name += " " + strconv.Itoa(depth)
	}
	return name
}

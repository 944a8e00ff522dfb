package main

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is the type tag of a live register.
type Kind int

const (
	KindQubit Kind = iota
	KindBit
)

func (k Kind) String() string {
	if k == KindBit {
		return "Bit"
	}
	return "Qubit"
}

// Entry is the committed state of one register: its tag, the compiled
// index of its backend-side representation, and for bits the last known
// value.
type Entry struct {
	Kind  Kind
	Index int
	Value bool
}

// Context is the typing context of a session. Entries hold the state as of
// the last flush; pending holds the kind of every register created or
// converted by a command that is still queued. Lookups see pending first,
// so guards always check against the state the queue will produce.
type Context struct {
	entries map[Register]Entry
	pending map[Register]Kind
}

// NewContext creates an empty typing context.
func NewContext() *Context {
	return &Context{
		entries: make(map[Register]Entry),
		pending: make(map[Register]Kind),
	}
}

// Lookup returns the current kind of reg.
func (c *Context) Lookup(reg Register) (Kind, bool) {
	if kind, ok := c.pending[reg]; ok {
		return kind, true
	}
	entry, ok := c.entries[reg]
	return entry.Kind, ok
}

// Len returns the number of live registers.
func (c *Context) Len() int {
	n := len(c.entries)
	for reg := range c.pending {
		if _, ok := c.entries[reg]; !ok {
			n++
		}
	}
	return n
}

// Fresh returns the lowest register handle that is not in use.
func (c *Context) Fresh() Register {
	var reg Register
	for {
		if _, ok := c.Lookup(reg); !ok {
			return reg
		}
		reg++
	}
}

// RequireAbsent fails if reg is already live.
func (c *Context) RequireAbsent(reg Register) error {
	if _, ok := c.Lookup(reg); ok {
		return usageErrorf("Register %d already exists", reg)
	}
	return nil
}

// RequireExists fails if reg is not live and otherwise returns its kind.
func (c *Context) RequireExists(reg Register) (Kind, error) {
	kind, ok := c.Lookup(reg)
	if !ok {
		return 0, usageErrorf("Register %d does not exist", reg)
	}
	return kind, nil
}

// RequireKind fails unless reg is live and tagged with want.
func (c *Context) RequireKind(reg Register, want Kind) error {
	kind, err := c.RequireExists(reg)
	if err != nil {
		return err
	}
	if kind != want {
		return usageErrorf("Register %d must be of type %s", reg, want)
	}
	return nil
}

// declare records the kind reg will have once the queue is flushed.
func (c *Context) declare(reg Register, kind Kind) {
	c.pending[reg] = kind
}

// commit replaces the committed entries and drops the pending overlay.
func (c *Context) commit(entries map[Register]Entry) {
	c.entries = entries
	clear(c.pending)
}

// rollback drops the pending overlay, leaving the committed entries.
func (c *Context) rollback() {
	clear(c.pending)
}

func (c *Context) reset() {
	clear(c.entries)
	clear(c.pending)
}

// Registers returns the live registers in ascending order.
func (c *Context) Registers() []Register {
	regs := make([]Register, 0, c.Len())
	for reg := range c.entries {
		regs = append(regs, reg)
	}
	for reg := range c.pending {
		if _, ok := c.entries[reg]; !ok {
			regs = append(regs, reg)
		}
	}
	slices.Sort(regs)
	return regs
}

// String renders one line per register, as used by dump.
func (c *Context) String() string {
	var sb strings.Builder
	for _, reg := range c.Registers() {
		if kind, ok := c.pending[reg]; ok {
			fmt.Fprintf(&sb, "\n%d: %s(pending)", reg, kind)
			continue
		}
		entry := c.entries[reg]
		if entry.Kind == KindBit {
			fmt.Fprintf(&sb, "\n%d: Bit(value=%d)", reg, bitDigit(entry.Value))
		} else {
			fmt.Fprintf(&sb, "\n%d: Qubit(index=%d)", reg, entry.Index)
		}
	}
	return sb.String()
}

func bitDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

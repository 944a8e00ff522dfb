package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFresh(t *testing.T) {
	ctx := NewContext()
	assert.Equal(t, Register(0), ctx.Fresh())

	ctx.commit(map[Register]Entry{
		0: {Kind: KindQubit, Index: 0},
		1: {Kind: KindBit, Index: 0},
		3: {Kind: KindQubit, Index: 1},
	})
	assert.Equal(t, Register(2), ctx.Fresh())

	ctx.declare(2, KindQubit)
	assert.Equal(t, Register(4), ctx.Fresh())

	ctx.rollback()
	assert.Equal(t, Register(2), ctx.Fresh())
}

func TestContextGuards(t *testing.T) {
	ctx := NewContext()
	ctx.commit(map[Register]Entry{
		0: {Kind: KindQubit, Index: 0},
		1: {Kind: KindBit, Index: 0, Value: true},
	})

	err := ctx.RequireAbsent(0)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "Register 0 already exists", usage.Message)
	assert.NoError(t, ctx.RequireAbsent(2))

	_, err = ctx.RequireExists(5)
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "Register 5 does not exist", usage.Message)

	kind, err := ctx.RequireExists(1)
	require.NoError(t, err)
	assert.Equal(t, KindBit, kind)

	err = ctx.RequireKind(1, KindQubit)
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "Register 1 must be of type Qubit", usage.Message)

	err = ctx.RequireKind(0, KindBit)
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "Register 0 must be of type Bit", usage.Message)

	assert.NoError(t, ctx.RequireKind(0, KindQubit))

	// failed guards leave the context alone
	assert.Equal(t, 2, ctx.Len())
	assert.Equal(t, []Register{0, 1}, ctx.Registers())
}

func TestContextPendingOverridesCommitted(t *testing.T) {
	ctx := NewContext()
	ctx.commit(map[Register]Entry{0: {Kind: KindQubit, Index: 0}})

	// a queued measurement turns 0 into a bit before the flush
	ctx.declare(0, KindBit)
	assert.NoError(t, ctx.RequireKind(0, KindBit))
	assert.Error(t, ctx.RequireKind(0, KindQubit))
	assert.Equal(t, 1, ctx.Len())

	ctx.rollback()
	assert.NoError(t, ctx.RequireKind(0, KindQubit))
}

func TestContextString(t *testing.T) {
	ctx := NewContext()
	ctx.commit(map[Register]Entry{
		2: {Kind: KindBit, Index: 0, Value: true},
		0: {Kind: KindQubit, Index: 1},
	})
	ctx.declare(5, KindQubit)

	assert.Equal(t, "\n0: Qubit(index=1)\n2: Bit(value=1)\n5: Qubit(pending)", ctx.String())

	ctx.reset()
	assert.Equal(t, "", ctx.String())
	assert.Equal(t, 0, ctx.Len())
}

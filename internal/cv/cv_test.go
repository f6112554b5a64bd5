package cv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValueShape(t *testing.T) {
	c := New()
	v := c.Value()
	require.Len(t, v, 18) // 16-char base + "." + "1"
	assert.Equal(t, byte('.'), v[16])
}

func TestIncrementMonotonic(t *testing.T) {
	c := New()
	first := c.Value()
	second := c.Increment()
	assert.NotEqual(t, first, second)
	assert.True(t, second > first)
}

func TestIncrementBoundary(t *testing.T) {
	// A 61-char base with counter 9 renders to exactly 63 characters; the
	// next counter value (10) would render to 64, so Increment must refuse.
	// (A 16-char base can never reach 63: the int32 counter tops out at 10
	// digits, a 27-char value.)
	c := &CV{base: strings.Repeat("A", 61), counter: 9}
	require.Len(t, c.Value(), maxLength)
	stuck := c.Value()
	assert.LessOrEqual(t, len(stuck), maxLength)
	for i := 0; i < 5; i++ {
		assert.Equal(t, stuck, c.Increment())
	}
}

func TestExtendResetsCounter(t *testing.T) {
	c := New()
	c.Increment()
	c.Increment()
	prev := c.Value()
	extended := c.Extend()
	assert.Equal(t, prev+".1", extended)
}

func TestExtendRefusesWhenTooLong(t *testing.T) {
	c := &CV{base: "", counter: 1}
	// Build a 61-char base, so the current value "<base>.1" is already at
	// the 63-char ceiling and "<value>.1" could not fit.
	longBase := ""
	for len(longBase) < 61 {
		longBase += "A"
	}
	c.base = longBase
	before := c.Value()
	after := c.Extend()
	assert.Equal(t, before, after)
}

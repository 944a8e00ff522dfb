package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAngle(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		// Plain numbers
		{"1.5707", 1.5707, true},
		{"3.14", 3.14, true},
		{"-0.5", -0.5, true},
		{"0", 0, true},
		{"42", 42, true},
		{"2e-3", 0.002, true},

		// Pi constant
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},
		{"Pi", math.Pi, true},

		// Pi fractions
		{"pi/2", math.Pi / 2, true},
		{"pi/4", math.Pi / 4, true},
		{"pi/3", math.Pi / 3, true},

		// Coefficients
		{"2pi", 2 * math.Pi, true},
		{"2*pi", 2 * math.Pi, true},
		{"3pi/4", 3 * math.Pi / 4, true},
		{"3*pi/4", 3 * math.Pi / 4, true},

		// Negative
		{"-pi", -math.Pi, true},
		{"-pi/2", -math.Pi / 2, true},
		{"-3*pi/4", -3 * math.Pi / 4, true},

		// Invalid
		{"", 0, false},
		{"abc", 0, false},
		{"pi/0", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"-Inf", 0, false},
		{"1e400", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseAngle(tt.input)
		if !assert.Equal(t, tt.ok, ok, "parseAngle(%q)", tt.input) {
			continue
		}
		if ok {
			assert.InDelta(t, tt.want, got, 1e-10, "parseAngle(%q)", tt.input)
		}
	}
}

func TestParseRegister(t *testing.T) {
	reg, ok := parseRegister("17")
	assert.True(t, ok)
	assert.Equal(t, Register(17), reg)

	for _, input := range []string{"-1", "+1", "1.0", "x", "", "99999999999999999999"} {
		_, ok := parseRegister(input)
		assert.False(t, ok, "parseRegister(%q)", input)
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{math.Pi, "pi"},
		{math.Pi / 2, "pi/2"},
		{math.Pi / 4, "pi/4"},
		{3 * math.Pi / 4, "3*pi/4"},
		{-math.Pi, "-pi"},
		{-math.Pi / 2, "-pi/2"},
		{2 * math.Pi, "2*pi"},
		{1.5, "1.5"},
		{0, "0"},
		{0.01, "0.01"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatParam(tt.input), "formatParam(%g)", tt.input)
	}
}

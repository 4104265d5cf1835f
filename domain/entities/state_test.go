package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeState_Transitions(t *testing.T) {
	tests := []struct {
		from, to RuntimeState
		ok       bool
	}{
		{StateUninitialized, StateInitialized, true},
		{StateUninitialized, StateFinalized, true},
		{StateInitialized, StateFinalized, true},
		{StateInitialized, StateUninitialized, false},
		{StateInitialized, StateInitialized, false},
		{StateFinalized, StateInitialized, false},
		{StateFinalized, StateUninitialized, false},
		{StateFinalized, StateFinalized, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRuntimeState_String(t *testing.T) {
	assert.Equal(t, "invalid", RuntimeState(9).String())
}

func TestHandle_String(t *testing.T) {
	assert.Equal(t, "42", Handle(42).String())
	assert.True(t, ForestRef(0).IsNil())
	assert.False(t, ForestRef(8).IsNil())
}

func TestVersionInfo_Short(t *testing.T) {
	v := VersionInfo{Full: "0.1.4-DEV", Major: 0, Minor: 1, Patch: 4}
	assert.Equal(t, "0.1.4", v.Short())
}

func TestParseDebugLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  DebugLevel
		host  bool
		guest bool
	}{
		{"all", DebugAll, true, true},
		{"host", DebugHost, true, false},
		{" host ", DebugHost, true, false},
		{"", DebugOff, false, false},
		{"yes", DebugOff, false, false},
		{"ALL", DebugOff, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDebugLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.host, got.Host())
			assert.Equal(t, tt.guest, got.Guest())
		})
	}
}

func TestDebugLevel_UnmarshalText(t *testing.T) {
	var l DebugLevel
	require.NoError(t, l.UnmarshalText([]byte("all")))
	assert.Equal(t, DebugAll, l)
	assert.Equal(t, "all", l.String())
	assert.Equal(t, "off", DebugOff.String())
}

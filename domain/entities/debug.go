package entities

import "strings"

// DebugLevel selects how much diagnostic output the bridge and the guest produce.
type DebugLevel int32

const (
	// DebugOff disables debug output.
	DebugOff DebugLevel = iota
	// DebugHost enables debug output of the bridge only.
	DebugHost
	// DebugAll enables debug output of the bridge and the hosted package.
	DebugAll
)

// ParseDebugLevel maps the value of the debug environment variable to a level.
// "all" and "host" are recognized; anything else, including the empty string, is DebugOff.
func ParseDebugLevel(s string) DebugLevel {
	switch strings.TrimSpace(s) {
	case "all":
		return DebugAll
	case "host":
		return DebugHost
	default:
		return DebugOff
	}
}

// Host reports whether bridge-side debug output is enabled.
func (l DebugLevel) Host() bool { return l >= DebugHost }

// Guest reports whether guest-side debug output is enabled.
func (l DebugLevel) Guest() bool { return l >= DebugAll }

func (l DebugLevel) String() string {
	switch l {
	case DebugAll:
		return "all"
	case DebugHost:
		return "host"
	default:
		return "off"
	}
}

// UnmarshalText lets env parsers decode the level directly.
func (l *DebugLevel) UnmarshalText(text []byte) error {
	*l = ParseDebugLevel(string(text))
	return nil
}

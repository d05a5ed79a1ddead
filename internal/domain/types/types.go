// Package types contains common types shared across the application.
package types

import (
	"fmt"
	"strings"
)

// Mode gates how decisions are produced and published.
type Mode string

// Operating modes.
const (
	// ModeManual disables engine invocation entirely; only commands
	// submitted through the control form are dispatched.
	ModeManual Mode = "MANUAL"
	// ModeAutomatic runs decisions and publishes them normally.
	ModeAutomatic Mode = "AUTOMATIC"
	// ModeDebug runs decisions but defers publishing to a recorder.
	ModeDebug Mode = "DEBUG"
)

// ParseMode converts a string into a Mode, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ModeManual):
		return ModeManual, nil
	case string(ModeAutomatic):
		return ModeAutomatic, nil
	case string(ModeDebug):
		return ModeDebug, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}

// String returns the wire representation of the mode.
func (m Mode) String() string { return string(m) }

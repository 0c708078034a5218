// Package event names the phases of a key action.
package event

type Type int

const (
	Press   Type = iota // key went down; debounced by the manager
	Release             // key went up; debounced by the manager
	Hold                // sent every tick while the key stays down
)

func (t Type) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	case Hold:
		return "hold"
	default:
		return "unknown"
	}
}

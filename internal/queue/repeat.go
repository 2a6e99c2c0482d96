package queue

import "github.com/pkg/errors"

type RepeatMode uint8

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
	repeatLen
)

var repeatNames = [repeatLen]string{"off", "one", "all"}

// Cycle returns the next mode to be activated when the repeat button is
// constantly pressed.
func (m RepeatMode) Cycle() RepeatMode {
	return (m + 1) % repeatLen
}

func (m RepeatMode) String() string {
	if m >= repeatLen {
		return "unknown"
	}
	return repeatNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m RepeatMode) MarshalText() ([]byte, error) {
	if m >= repeatLen {
		return nil, errors.Errorf("unknown repeat mode %d", m)
	}
	return []byte(repeatNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RepeatMode) UnmarshalText(text []byte) error {
	for i, name := range repeatNames {
		if name == string(text) {
			*m = RepeatMode(i)
			return nil
		}
	}
	return errors.Errorf("unknown repeat mode %q", text)
}

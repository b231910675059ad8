package activity

import (
	"encoding/json"
	"errors"
)

// State of an activity session.
type State int

const (
	Idle State = iota
	Tracking
	Paused
	Finished
)

// ErrInvalidTransition is returned when a lifecycle call does not apply to
// the current state, e.g. Pause while Idle.
var ErrInvalidTransition = errors.New("activity: invalid state transition")

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for _, st := range []State{Idle, Tracking, Paused, Finished} {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return errors.New("activity: unknown state " + name)
}

// active reports whether feeds are attached in this state.
func (s State) active() bool {
	return s == Tracking || s == Paused
}

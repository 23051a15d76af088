package game

import "fmt"

type State int

const (
	StateLoading State = iota
	StateRestored
	StateInitializing
	StateActive
	StateAnswering
	StateCompleted
)

var stateNames = map[State]string{
	StateLoading:      "loading",
	StateRestored:     "restored",
	StateInitializing: "initializing",
	StateActive:       "active",
	StateAnswering:    "answering",
	StateCompleted:    "completed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

package uart

import "strconv"

type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateVerifying
	StateConnected
	StateFailed
)

var allStates = []State{StateDisconnected, StateConnecting, StateVerifying, StateConnected, StateFailed}

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateVerifying:
		return "Verifying"
	case StateConnected:
		return "Connected"
	case StateFailed:
		return "Failed"
	default:
		panic("unknown State value: " + strconv.Itoa(int(s)))
	}
}

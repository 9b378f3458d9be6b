package serial

// State is the connection lifecycle state. Only the Supervisor mutates it.
type State int32

const (
	// StateDisconnected means no port is held; next step is discovery.
	StateDisconnected State = iota

	// StateConnecting means a discover-and-open attempt is in progress.
	StateConnecting

	// StateOpen means lines are being read; the only state with a live port.
	StateOpen

	// StateFaulted means the open period ended (read error or close) and
	// cleanup is in progress before the reconnect wait.
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

package socket

import "fmt"

// State is a TCP state code as found in the "st" column of /proc/net/tcp.
type State uint8

// Linux TCP states from include/net/tcp_states.h.
const (
	StateEstablished State = iota + 1
	StateSynSent
	StateSynRecv
	StateFinWait1
	StateFinWait2
	StateTimeWait
	StateClose
	StateCloseWait
	StateLastAck
	StateListen
	StateClosing
	StateNewSynRecv
)

var stateNames = [...]string{
	StateEstablished: "ESTABLISHED",
	StateSynSent:     "SYN_SENT",
	StateSynRecv:     "SYN_RECV",
	StateFinWait1:    "FIN_WAIT1",
	StateFinWait2:    "FIN_WAIT2",
	StateTimeWait:    "TIME_WAIT",
	StateClose:       "CLOSE",
	StateCloseWait:   "CLOSE_WAIT",
	StateLastAck:     "LAST_ACK",
	StateListen:      "LISTEN",
	StateClosing:     "CLOSING",
	StateNewSynRecv:  "NEW_SYN_RECV",
}

// Name returns the symbolic name of s, or an *UnknownStateError.
func (s State) Name() (string, error) {
	if s == 0 || int(s) >= len(stateNames) {
		return "", &UnknownStateError{Code: uint8(s)}
	}
	return stateNames[s], nil
}

// String is meant for diagnostics; use Name for report output.
func (s State) String() string {
	if name, err := s.Name(); err == nil {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%02X)", uint8(s))
}

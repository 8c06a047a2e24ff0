package transfer

// State is the progress of one object through a pull or push.
type State int

// Object states. Every object starts Negotiated and ends in exactly one of
// Done, Skipped or Failed.
const (
	StateNegotiated State = iota
	StateTransferring
	StateVerifying
	StateDone
	StateSkipped
	StateFailed
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateNegotiated:
		return "negotiated"
	case StateTransferring:
		return "transferring"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// ObjectStatus is the record of one batch response object. Index is the
// object's position in the batch response.
type ObjectStatus struct {
	Index     int
	Operation Operation
	Pointer   Pointer
	State     State
	Attempts  int
	Err       error
}

// Observer is notified of every object state transition, in order.
type Observer func(ObjectStatus)

// transition moves st to state and notifies the observer. Terminal states are
// counted in the object metrics.
func (c *Client) transition(st *ObjectStatus, state State) {
	st.State = state
	if state.Terminal() {
		objectsCounter.WithLabelValues(st.Operation.String(), state.String()).Inc()
	}
	if c.observer != nil {
		c.observer(*st)
	}
}

// fail moves st to StateFailed and returns err.
func (c *Client) fail(st *ObjectStatus, err error) error {
	st.Err = err
	c.transition(st, StateFailed)
	return err
}

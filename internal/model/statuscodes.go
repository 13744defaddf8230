package model

import "fmt"

// State is the lifecycle position of a portability case.
type State string

const (
	StateInitial               State = "INITIAL"
	StatePinRequested          State = "PIN_REQUESTED"
	StatePinDeliveryConf       State = "PIN_DELIVERY_CONF"
	StatePortRequested         State = "PORT_REQUESTED"
	StatePortIndValRequested   State = "PORT_INDVAL_REQUESTED"
	StateReadyToBeScheduled    State = "READY_TO_BE_SCHEDULED"
	StateRejectPending         State = "REJECT_PENDING"
	StatePortScheduled         State = "PORT_SCHEDULED"
	StatePorted                State = "PORTED"
	StateCancelled             State = "CANCELLED"
	StateReversalRequested     State = "REVERSAL_REQUESTED"
	StateReversalDocsRequested State = "REVERSAL_DOCS_REQUESTED"
	StateReversalScheduled     State = "REVERSAL_SCHEDULED"
	StateReversed              State = "REVERSED"
	StateDeleted               State = "DELETED"
	StateTerminated            State = "TERMINATED"
	StateRejected              State = "REJECTED"
)

var allStates = []State{
	StateInitial,
	StatePinRequested,
	StatePinDeliveryConf,
	StatePortRequested,
	StatePortIndValRequested,
	StateReadyToBeScheduled,
	StateRejectPending,
	StatePortScheduled,
	StatePorted,
	StateCancelled,
	StateReversalRequested,
	StateReversalDocsRequested,
	StateReversalScheduled,
	StateReversed,
	StateDeleted,
	StateTerminated,
	StateRejected,
}

var stateLabels = map[State]string{
	StateInitial:               "Initial",
	StatePinRequested:          "PIN Requested",
	StatePinDeliveryConf:       "PIN Delivery Confirmed",
	StatePortRequested:         "Port Requested",
	StatePortIndValRequested:   "Individual Validation Requested",
	StateReadyToBeScheduled:    "Ready to be Scheduled",
	StateRejectPending:         "Reject Pending",
	StatePortScheduled:         "Port Scheduled",
	StatePorted:                "Ported",
	StateCancelled:             "Cancelled",
	StateReversalRequested:     "Reversal Requested",
	StateReversalDocsRequested: "Reversal Documents Requested",
	StateReversalScheduled:     "Reversal Scheduled",
	StateReversed:              "Reversed",
	StateDeleted:               "Deleted",
	StateTerminated:            "Terminated",
	StateRejected:              "Rejected",
}

var terminalStates = map[State]struct{}{
	StatePorted:     {},
	StateCancelled:  {},
	StateReversed:   {},
	StateDeleted:    {},
	StateTerminated: {},
	StateRejected:   {},
}

var cancellableStates = map[State]struct{}{
	StatePortRequested:       {},
	StatePortIndValRequested: {},
	StateReadyToBeScheduled:  {},
	StatePortScheduled:       {},
}

// AllStates returns a copy of every known state in lifecycle order.
func AllStates() []State {
	states := make([]State, len(allStates))
	copy(states, allStates)

	return states
}

func (s State) String() string {
	return string(s)
}

func (s State) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}

	return string(s)
}

func (s State) IsValid() bool {
	_, ok := stateLabels[s]

	return ok
}

// IsTerminal reports whether no further protocol activity is expected for the case.
func (s State) IsTerminal() bool {
	_, ok := terminalStates[s]

	return ok
}

func (s State) CanCancel() bool {
	_, ok := cancellableStates[s]

	return ok
}

func ParseState(name string) (State, error) {
	state := State(name)
	if !state.IsValid() {
		return "", fmt.Errorf("unknown state name=%s", name)
	}

	return state, nil
}

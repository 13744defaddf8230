// Package statemachine owns the portability lifecycle: which transitions are legal,
// which deadlines a transition arms, and the serialized engine that applies them.
package statemachine

import (
	"slices"

	"github.com/Ometra-Hela/Alize/internal/model"
)

// transitions is the complete adjacency table. States without an entry have no
// outgoing edges. PORTED is terminal yet still allows reversal and deletion.
var transitions = map[model.State][]model.State{
	model.StateInitial: {
		model.StatePinRequested,
		model.StatePortRequested,
	},
	model.StatePinRequested: {
		model.StatePinDeliveryConf,
		model.StateRejected,
		model.StateTerminated,
	},
	model.StatePinDeliveryConf: {
		model.StatePortRequested,
		model.StateTerminated,
	},
	model.StatePortRequested: {
		model.StatePortIndValRequested,
		model.StateReadyToBeScheduled,
		model.StateRejectPending,
		model.StateCancelled,
		model.StateRejected,
		model.StateTerminated,
	},
	model.StatePortIndValRequested: {
		model.StateReadyToBeScheduled,
		model.StateCancelled,
		model.StateRejected,
		model.StateTerminated,
	},
	model.StateReadyToBeScheduled: {
		model.StatePortScheduled,
		model.StateCancelled,
		model.StateTerminated,
	},
	model.StateRejectPending: {
		model.StateRejected,
		model.StateTerminated,
	},
	model.StatePortScheduled: {
		model.StatePorted,
		model.StateCancelled,
		model.StateReversalRequested,
	},
	model.StatePorted: {
		model.StateReversalRequested,
		model.StateDeleted,
	},
	model.StateReversalRequested: {
		model.StateReversalDocsRequested,
		model.StateReversalScheduled,
		model.StateRejected,
	},
	model.StateReversalDocsRequested: {
		model.StateReversalScheduled,
		model.StateRejected,
	},
	model.StateReversalScheduled: {
		model.StateReversed,
	},
}

// IsAllowed reports whether the table has an edge from -> to.
func IsAllowed(from, to model.State) bool {
	return slices.Contains(transitions[from], to)
}

// Allowed returns the states reachable from s in one step.
func Allowed(s model.State) []model.State {
	return slices.Clone(transitions[s])
}

package statuslog

// Phase is a step of one status-log task invocation.
type Phase string

const (
	PhaseIdle             Phase = "IDLE"
	PhaseGathering        Phase = "GATHERING"
	PhasePersistedPending Phase = "PERSISTED_PENDING"
	PhaseDelivering       Phase = "DELIVERING"
	PhaseDelivered        Phase = "DELIVERED"
	PhaseDeliveryFailed   Phase = "DELIVERY_FAILED"
	PhaseRescheduled      Phase = "RESCHEDULED"
	PhaseStopped          Phase = "STOPPED"
)

// phaseTransitions lists the phases reachable from each phase.
// GATHERING may be left straight for RESCHEDULED when the outbox write fails.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:             {PhaseGathering, PhaseStopped},
	PhaseGathering:        {PhasePersistedPending, PhaseRescheduled},
	PhasePersistedPending: {PhaseDelivering},
	PhaseDelivering:       {PhaseDelivered, PhaseDeliveryFailed},
	PhaseDelivered:        {PhaseRescheduled},
	PhaseDeliveryFailed:   {PhaseRescheduled},
}

// CanEnter reports whether the task may move from one phase to the next.
func CanEnter(from, to Phase) bool {
	for _, p := range phaseTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// IsFinal reports whether an invocation ends in p.
func (p Phase) IsFinal() bool {
	return p == PhaseRescheduled || p == PhaseStopped
}

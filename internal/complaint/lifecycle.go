package complaint

import (
	id "sayit/pkg/domain"
)

// EventType is what happened to the complaint.
type EventType string

const (
	// EventSetStatus is an explicit status change by staff or an agent.
	EventSetStatus EventType = "set_status"
	// EventResponse is a response being added to the thread.
	EventResponse EventType = "response"
)

// Event feeds NextStatus.
type Event struct {
	Type EventType
	// Target is the requested status for EventSetStatus; ignored otherwise.
	Target Status
}

// NextStatus is the single source of the transition rules. It is pure: both
// the set-status and add-response entry points derive the new status from the
// currently persisted one, never from a status the caller assumed.
//
// Rules:
//   - staff and agents may set any status explicitly, backward moves included;
//   - a staff/agent response while the complaint is still queued (pending,
//     under_review, assigned) implicitly advances it to in_progress;
//   - a submitter response while the complaint is in the terminal trio reopens
//     it to in_progress;
//   - everything else leaves the status untouched. A reopen attempt from a
//     non-terminal state is a deliberate no-op, not an error.
func NextStatus(current Status, actorKind id.ActorKind, ev Event) (Status, bool) {
	switch ev.Type {
	case EventSetStatus:
		if actorKind.IsStafflike() && ev.Target != "" && ev.Target != current {
			return ev.Target, true
		}
	case EventResponse:
		if actorKind.IsStafflike() {
			switch current {
			case StatusPending, StatusUnderReview, StatusAssigned:
				return StatusInProgress, true
			}
		}
		if actorKind.IsSubmitter() && current.IsTerminal() {
			return StatusInProgress, true
		}
	}
	return current, false
}

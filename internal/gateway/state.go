package gateway

// State is where a request sits in its approval lifecycle. Transitions only
// move forward; a rejected request is terminal and never retried.
type State string

const (
	StateReceived        State = "received"
	StateValidated       State = "validated"
	StateAutoApproved    State = "auto_approved"
	StatePendingApproval State = "pending_approval"
	StateApproved        State = "approved"
	StateRejected        State = "rejected"
)

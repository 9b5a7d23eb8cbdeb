package contact

// State is the phase of a submission.
type State int

const (
	Idle State = iota
	Submitting
	Submitted
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	}
	return "idle"
}

// FailureKind says why a submission ended in Failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureValidation: the draft did not pass Validate; nothing was sent.
	FailureValidation
	// FailureRejected: the relay answered with its own validation errors.
	FailureRejected
	// FailureServer: the relay answered non-2xx without usable errors.
	FailureServer
	// FailureNetwork: no response was obtained.
	FailureNetwork
)

func (k FailureKind) String() string {
	switch k {
	case FailureValidation:
		return "validation"
	case FailureRejected:
		return "rejected"
	case FailureServer:
		return "server"
	case FailureNetwork:
		return "network"
	}
	return "none"
}

const (
	serverFailureReason  = "Failed to send message. Please try again."
	networkFailureReason = "Network error. Please check your connection and try again."
)

// Status is the submission state shown to the visitor. Reason and Kind are
// only set when State is Failed.
type Status struct {
	State  State
	Kind   FailureKind
	Reason string
}

func (s Status) IsSubmitting() bool { return s.State == Submitting }
func (s Status) IsSubmitted() bool  { return s.State == Submitted }
func (s Status) IsFailed() bool     { return s.State == Failed }

func failed(kind FailureKind, reason string) Status {
	return Status{State: Failed, Kind: kind, Reason: reason}
}

package prover

// State is the session state.
type State uint8

const (
	// StateIdle is the state before Start.
	StateIdle State = iota

	// StateAwaitingChallenge means AUTH_REQUEST was sent.
	StateAwaitingChallenge

	// StateGeneratingProof means a CHALLENGE arrived and the proof is being built.
	StateGeneratingProof

	// StateAwaitingResult means PROOF was sent.
	StateAwaitingResult

	// StateAuthenticated is terminal.
	StateAuthenticated

	// StateFailed means the station rejected the proof or request.
	StateFailed

	// StateRetryPending means the timeout fired and a new request is scheduled.
	StateRetryPending

	// StateStopped means the session was torn down.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingChallenge:
		return "AWAITING_CHALLENGE"
	case StateGeneratingProof:
		return "GENERATING_PROOF"
	case StateAwaitingResult:
		return "AWAITING_RESULT"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateFailed:
		return "FAILED"
	case StateRetryPending:
		return "RETRY_PENDING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether the session reacts to incoming messages.
func (s State) Active() bool {
	switch s {
	case StateAwaitingChallenge, StateGeneratingProof, StateAwaitingResult, StateRetryPending, StateFailed:
		return true
	default:
		return false
	}
}

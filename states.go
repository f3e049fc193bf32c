package supplyq

// Status represents a task lifecycle state.
// Use the exported constants instead of raw strings to avoid typos.
type Status string

const (
	// StatusPending tasks wait in the queue.
	StatusPending Status = "Pending"
	// StatusInProgress tasks have been claimed by an executor.
	StatusInProgress Status = "In Progress"
	// StatusCompleted tasks finished and carry a result.
	StatusCompleted Status = "Completed"
	// StatusFailed tasks carry an error message.
	StatusFailed Status = "Failed"
)

// AllStatuses lists every valid status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed}

// String returns the raw string value of the status.
func (s Status) String() string { return string(s) }

// Terminal reports whether no automatic transition leaves s.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// ParseStatus converts a string into a Status, returning an error for unknown values.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusInProgress):
		return StatusInProgress, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	case string(StatusFailed):
		return StatusFailed, nil
	default:
		return "", ErrUnknownStatus
	}
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether the lifecycle allows from -> to.
// Operator retries (Failed -> Pending) are handled separately by Client.RetryFailed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

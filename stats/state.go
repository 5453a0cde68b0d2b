package stats

// FieldUnset is the sentinel emitted for latencies and counters whose stage
// never completed.
const FieldUnset int64 = -1

// Result codes recorded on Close.
const (
	StatusUnset         = -1
	StatusSuccess       = 0
	StatusInternalError = 1
	StatusTimeout       = 2
	StatusInvalidInput  = 3
)

// IllegalStateError reports logger misuse: a stage event fired out of order,
// repeated, or after Close. The logger instance is unusable afterwards only
// in the sense that the offending event is ignored; prior recorded stages
// survive.
type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string {
	return e.Message
}

// stage is an ordered position in a logger's lifecycle. Transitions only ever
// move forward, so ordering comparisons decide between "repeated" and
// "missing prerequisite" misuse.
type stage int

// transition is one legal step of a logger's lifecycle. repeatedMsg fires
// when the logger is already at or past the target, missingMsg when the
// prerequisite stage was never reached.
type transition struct {
	from        stage
	to          stage
	repeatedMsg string
	missingMsg  string
}

// stateMachine tracks a logger's current stage and enforces the transition
// table.
type stateMachine struct {
	state stage
}

func (m *stateMachine) advance(t transition) *IllegalStateError {
	if m.state >= t.to {
		return &IllegalStateError{Message: t.repeatedMsg}
	}
	if m.state < t.from {
		return &IllegalStateError{Message: t.missingMsg}
	}
	m.state = t.to
	return nil
}

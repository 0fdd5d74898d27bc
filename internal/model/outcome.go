// Package model defines shared types used across the sync engine, the device
// protocol client, and the roster gateway.
package model

// Outcome classifies the result of one device operation attempt.
type Outcome int

const (
	// Success indicates the operation completed on the device.
	Success Outcome = iota

	// AlreadySatisfied indicates the device was already in the requested
	// state (person already exists on create, person already absent on
	// delete). It is reported to callers as Success; it exists as a
	// distinct value only so step sequencing can tell the two apart.
	AlreadySatisfied

	// Skipped indicates a precondition was not met (missing employee
	// number or photo reference). No protocol call was issued. Never a
	// device fault.
	Skipped

	// Partial indicates one operation failed without implicating the
	// device or its credentials. Scoped to a single employee/device/step.
	Partial

	// Fatal indicates an authentication or transport failure that will
	// recur for every subsequent call to the same device. Halts a batch.
	Fatal
)

// String returns the lower-case label used in logs and summaries.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AlreadySatisfied:
		return "already_satisfied"
	case Skipped:
		return "skipped"
	case Partial:
		return "partial"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Reported maps an outcome to the value callers see: AlreadySatisfied
// collapses to Success, everything else passes through.
func (o Outcome) Reported() Outcome {
	if o == AlreadySatisfied {
		return Success
	}
	return o
}

// rank orders outcomes by severity for folding: Fatal > Partial > Skipped >
// Success. AlreadySatisfied ranks with Success.
func (o Outcome) rank() int {
	switch o.Reported() {
	case Fatal:
		return 3
	case Partial:
		return 2
	case Skipped:
		return 1
	default:
		return 0
	}
}

// Step names the protocol operation a result belongs to.
type Step string

const (
	StepPerson Step = "person"
	StepPhoto  Step = "photo"
	StepDelete Step = "delete"
)

// StepResult is the outcome of one operation attempt, with a human-readable
// message for rendering and logging.
type StepResult struct {
	Outcome Outcome
	Step    Step
	Message string
}

// Fold reduces the step results for one employee/device pair into the single
// worst-case result. The first result of the worst severity wins, so its
// message identifies the step that degraded the pair. Folding at least one
// result is required; an empty slice folds to a zero StepResult.
func Fold(results ...StepResult) StepResult {
	var worst StepResult
	for i, r := range results {
		if i == 0 || r.Outcome.rank() > worst.Outcome.rank() {
			worst = r
		}
	}
	worst.Outcome = worst.Outcome.Reported()
	return worst
}

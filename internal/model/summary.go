package model

// PairResult is the folded outcome for one (employee, device) pair.
type PairResult struct {
	EmployeeNo int64
	Device     string // network address, never credentials
	Result     StepResult
}

// BatchSummary accumulates the pair results of one batch in traversal order
// (employee-major, device-minor). When a Fatal outcome occurred it is always
// the last entry, Halted is set, and FatalMessage carries the triggering
// error once.
type BatchSummary struct {
	// ID tags the batch for log correlation.
	ID string

	Results []PairResult

	// Counts by reported outcome.
	Success int
	Partial int
	Skipped int
	Fatal   int

	// Halted is set when a Fatal outcome stopped the batch early.
	Halted bool

	// FatalMessage is the triggering error message, surfaced once rather
	// than repeated per remaining device.
	FatalMessage string
}

// Add appends a pair result and updates the counts.
func (b *BatchSummary) Add(pr PairResult) {
	b.Results = append(b.Results, pr)
	switch pr.Result.Outcome.Reported() {
	case Success:
		b.Success++
	case Partial:
		b.Partial++
	case Skipped:
		b.Skipped++
	case Fatal:
		b.Fatal++
		b.Halted = true
		b.FatalMessage = pr.Result.Message
	}
}

// HaltPoint returns the (employee, device) pair at which the batch stopped,
// valid only when Halted is set.
func (b *BatchSummary) HaltPoint() (employeeNo int64, device string) {
	if !b.Halted || len(b.Results) == 0 {
		return 0, ""
	}
	last := b.Results[len(b.Results)-1]
	return last.EmployeeNo, last.Device
}

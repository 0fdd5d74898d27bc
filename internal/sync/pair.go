package sync

import (
	"context"
	"fmt"

	"github.com/mpopa/facegate/internal/model"
)

// Operation selects the per-pair sequence a batch runs.
type Operation int

const (
	// OpProvision writes the person record, then uploads the photo when a
	// reference exists.
	OpProvision Operation = iota

	// OpReplacePhoto attempts an in-place photo replacement and falls
	// back to a plain upload. Never produces a Fatal pair result.
	OpReplacePhoto

	// OpRemove deletes the person record by numeric id.
	OpRemove
)

func (op Operation) String() string {
	switch op {
	case OpProvision:
		return "provision"
	case OpReplacePhoto:
		return "replace-photo"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// provisionPair runs person-then-photo for one employee against one device.
// The photo step is attempted whenever a reference exists and the person
// step did not fail fatally; a person record that already existed still gets
// its photo refreshed.
func provisionPair(ctx context.Context, client DeviceClient, emp model.Employee, dev model.Device) (model.StepResult, error) {
	if !emp.HasEmployeeNo() {
		return skipped(model.StepPerson, "missing employee number"), nil
	}

	person, err := client.UpsertPerson(ctx, emp, dev)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("person step for %s on %s: %w", emp.EmployeeNoString(), dev.Addr(), err)
	}
	if person.Outcome == model.Fatal || !emp.HasPhoto() {
		return model.Fold(person), nil
	}

	photo, err := client.UploadPhoto(ctx, emp, dev)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("photo step for %s on %s: %w", emp.EmployeeNoString(), dev.Addr(), err)
	}
	return model.Fold(person, photo), nil
}

// replacePhotoPair runs replace-then-fallback-upload. Both legs degrade
// failures to Partial: a photo issue must not halt identity provisioning on
// the remaining devices, so this variant never returns Fatal.
func replacePhotoPair(ctx context.Context, client DeviceClient, emp model.Employee, dev model.Device) (model.StepResult, error) {
	if !emp.HasEmployeeNo() {
		return skipped(model.StepPhoto, "missing employee number"), nil
	}
	if !emp.HasPhoto() {
		return skipped(model.StepPhoto, "missing photo reference"), nil
	}

	replaced, err := client.ReplacePhoto(ctx, emp, dev)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("photo replace for %s on %s: %w", emp.EmployeeNoString(), dev.Addr(), err)
	}
	if replaced.Outcome.Reported() == model.Success {
		return model.Fold(replaced), nil
	}

	uploaded, err := client.UploadPhoto(ctx, emp, dev)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("photo fallback for %s on %s: %w", emp.EmployeeNoString(), dev.Addr(), err)
	}
	if uploaded.Outcome == model.Fatal {
		uploaded.Outcome = model.Partial
	}
	return model.Fold(uploaded), nil
}

// removePair deletes one employee from one device. The outcome, including
// Fatal, passes through unchanged.
func removePair(ctx context.Context, client DeviceClient, emp model.Employee, dev model.Device) (model.StepResult, error) {
	if !emp.HasEmployeeNo() {
		return skipped(model.StepDelete, "missing employee number"), nil
	}

	res, err := client.RemovePerson(ctx, emp, dev)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("delete step for %s on %s: %w", emp.EmployeeNoString(), dev.Addr(), err)
	}
	return model.Fold(res), nil
}

func skipped(step model.Step, reason string) model.StepResult {
	return model.StepResult{Outcome: model.Skipped, Step: step, Message: reason + " - no device call issued"}
}

// Package sync implements the synchronization orchestration engine: it
// decides, for every (employee, device) pair, which protocol operations to
// run, folds their outcomes into one per-pair result, paces calls against
// rate-sensitive hardware, and halts a batch on the first Fatal outcome.
//
// The package contains three layers:
//
//   - pair functions execute the ordered operation sequence for one
//     employee against one device.
//   - [Orchestrator] iterates employees and devices, applies the rate
//     limit and the fatal-stop rule, and accumulates a [model.BatchSummary].
//   - [Engine] exposes the four entry points callers use
//     (provision-one/all, photo-replace, remove) and records telemetry.
//
// Everything here is sequential within one batch: concurrent calls to the
// same door-controller firmware are unreliable, so throughput is traded for
// correctness. Independent batches may run concurrently; the engine holds
// no mutable shared state.
package sync

import (
	"context"

	"github.com/mpopa/facegate/internal/model"
)

// DeviceClient issues protocol operations against one terminal.
// Implemented by [isapi.Client]. Device-side failures are values in the
// StepResult; a non-nil error is a programming or configuration defect.
type DeviceClient interface {
	UpsertPerson(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error)
	UploadPhoto(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error)
	ReplacePhoto(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error)
	RemovePerson(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error)
}

// Directory supplies the employee and device records a batch consumes.
// Implemented by [roster.Client] and [roster.Store]. Both return devices
// filtered to active ones in a stable order; employees are returned
// regardless of whether they carry a numeric id (the engine skips those).
type Directory interface {
	ActiveDevices(ctx context.Context) ([]model.Device, error)
	ActiveEmployees(ctx context.Context) ([]model.Employee, error)
	// Employee returns the employee with the given roster id, or
	// (nil, nil) when no such employee exists.
	Employee(ctx context.Context, id string) (*model.Employee, error)
}

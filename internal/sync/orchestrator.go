package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mpopa/facegate/internal/model"
)

// Orchestrator iterates an ordered employee list against an ordered device
// list, one protocol call at a time. It is stateless between runs; a single
// Orchestrator may serve concurrent independent batches.
type Orchestrator struct {
	client DeviceClient
	delay  time.Duration
	log    *slog.Logger

	// sleep is swapped out in tests to observe rate-limit pacing.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator. delay is the fixed pause inserted
// between consecutive device calls; it exists purely to avoid overloading
// resource-constrained hardware and is constant across devices.
func NewOrchestrator(client DeviceClient, delay time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{client: client, delay: delay, log: logger, sleep: sleepCtx}
}

// Run executes op for every (employee, device) pair in employee-major,
// device-minor order and returns the accumulated summary. A Fatal outcome
// halts the batch immediately: no remaining device of the current employee
// and no subsequent employee is visited, and the fatal pair is the last
// summary entry. The rate-limit delay is inserted between calls, never
// after the final pair.
//
// Device-side failures live inside the summary; the error return is
// reserved for defects and cancellation.
func (o *Orchestrator) Run(ctx context.Context, op Operation, employees []model.Employee, devices []model.Device) (model.BatchSummary, error) {
	summary := model.BatchSummary{ID: uuid.NewString()}
	log := o.log.With("batch_id", summary.ID, "op", op.String())

	log.Info("batch starting", "employees", len(employees), "devices", len(devices))

	total := len(employees) * len(devices)
	visited := 0

	for _, emp := range employees {
		for _, dev := range devices {
			res, err := o.syncPair(ctx, op, emp, dev)
			if err != nil {
				return summary, err
			}

			summary.Add(model.PairResult{EmployeeNo: emp.EmployeeNo, Device: dev.Addr(), Result: res})
			visited++

			log.Debug("pair synced",
				"employee_no", emp.EmployeeNo,
				"device", dev.Addr(),
				"outcome", res.Outcome,
				"step", res.Step,
			)

			if res.Outcome == model.Fatal {
				log.Error("batch halted on fatal outcome",
					"employee_no", emp.EmployeeNo,
					"device", dev.Addr(),
					"error", res.Message,
				)
				return summary, nil
			}

			if visited < total && o.delay > 0 {
				if err := o.sleep(ctx, o.delay); err != nil {
					return summary, fmt.Errorf("batch interrupted: %w", err)
				}
			}
		}
	}

	log.Info("batch complete",
		"success", summary.Success,
		"partial", summary.Partial,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// syncPair dispatches one pair to the operation's sequence.
func (o *Orchestrator) syncPair(ctx context.Context, op Operation, emp model.Employee, dev model.Device) (model.StepResult, error) {
	switch op {
	case OpProvision:
		return provisionPair(ctx, o.client, emp, dev)
	case OpReplacePhoto:
		return replacePhotoPair(ctx, o.client, emp, dev)
	case OpRemove:
		return removePair(ctx, o.client, emp, dev)
	default:
		return model.StepResult{}, fmt.Errorf("unknown operation %d", op)
	}
}

// sleepCtx pauses for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

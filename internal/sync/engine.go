package sync

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpopa/facegate/internal/model"
)

const (
	otelScope     = "facegate/sync"
	spanBatch     = "sync.batch"
	metricSuccess = "facegate.sync.pairs.success"
	metricPartial = "facegate.sync.pairs.partial"
	metricSkipped = "facegate.sync.pairs.skipped"
	metricFatal   = "facegate.sync.pairs.fatal"
	metricHalted  = "facegate.sync.batches.halted"
)

// Engine exposes the four synchronization entry points. Create one with
// [NewEngine]. Each call runs one batch to completion (or fatal halt) and
// returns its summary; device-side failures are data in the summary, while
// gateway failures and unknown employee ids are errors.
type Engine struct {
	directory Directory
	orch      *Orchestrator
	log       *slog.Logger

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer     trace.Tracer
	cntSuccess metric.Int64Counter
	cntPartial metric.Int64Counter
	cntSkipped metric.Int64Counter
	cntFatal   metric.Int64Counter
	cntHalted  metric.Int64Counter
}

// NewEngine creates an Engine wired to the given directory and orchestrator.
func NewEngine(directory Directory, orch *Orchestrator, logger *slog.Logger) *Engine {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Engine{
		directory: directory,
		orch:      orch,
		log:       logger,

		tracer:     tracer,
		cntSuccess: mustCounter(metricSuccess, "Pairs synced successfully"),
		cntPartial: mustCounter(metricPartial, "Pairs with a partial failure"),
		cntSkipped: mustCounter(metricSkipped, "Pairs skipped on a missing precondition"),
		cntFatal:   mustCounter(metricFatal, "Pairs that failed fatally"),
		cntHalted:  mustCounter(metricHalted, "Batches halted on a fatal outcome"),
	}
}

// ProvisionOne pushes one employee's identity record and photo to every
// active device.
func (e *Engine) ProvisionOne(ctx context.Context, employeeID string) (model.BatchSummary, error) {
	emp, err := e.lookup(ctx, employeeID)
	if err != nil {
		return model.BatchSummary{}, err
	}
	return e.runBatch(ctx, OpProvision, []model.Employee{*emp})
}

// ProvisionAll pushes every active employee to every active device.
func (e *Engine) ProvisionAll(ctx context.Context) (model.BatchSummary, error) {
	employees, err := e.directory.ActiveEmployees(ctx)
	if err != nil {
		return model.BatchSummary{}, fmt.Errorf("fetching employees: %w", err)
	}
	return e.runBatch(ctx, OpProvision, employees)
}

// ReplacePhotoOne replaces one employee's photo on every active device,
// falling back to a plain upload per device. Never halts on a photo failure.
func (e *Engine) ReplacePhotoOne(ctx context.Context, employeeID string) (model.BatchSummary, error) {
	emp, err := e.lookup(ctx, employeeID)
	if err != nil {
		return model.BatchSummary{}, err
	}
	return e.runBatch(ctx, OpReplacePhoto, []model.Employee{*emp})
}

// RemoveOne deletes one employee's identity record from every active device.
func (e *Engine) RemoveOne(ctx context.Context, employeeID string) (model.BatchSummary, error) {
	emp, err := e.lookup(ctx, employeeID)
	if err != nil {
		return model.BatchSummary{}, err
	}
	return e.runBatch(ctx, OpRemove, []model.Employee{*emp})
}

// lookup fetches one employee by roster id.
func (e *Engine) lookup(ctx context.Context, employeeID string) (*model.Employee, error) {
	emp, err := e.directory.Employee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("fetching employee %q: %w", employeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %q not found", employeeID)
	}
	return emp, nil
}

// runBatch fetches the device list, runs the orchestrator, and records a
// trace span and outcome counters.
func (e *Engine) runBatch(ctx context.Context, op Operation, employees []model.Employee) (model.BatchSummary, error) {
	ctx, span := e.tracer.Start(ctx, spanBatch)
	defer span.End()

	devices, err := e.directory.ActiveDevices(ctx)
	if err != nil {
		span.RecordError(err)
		return model.BatchSummary{}, fmt.Errorf("fetching active devices: %w", err)
	}
	if len(devices) == 0 {
		err := fmt.Errorf("no active devices")
		span.RecordError(err)
		return model.BatchSummary{}, err
	}

	summary, err := e.orch.Run(ctx, op, employees, devices)

	if summary.Success > 0 {
		e.cntSuccess.Add(ctx, int64(summary.Success))
	}
	if summary.Partial > 0 {
		e.cntPartial.Add(ctx, int64(summary.Partial))
	}
	if summary.Skipped > 0 {
		e.cntSkipped.Add(ctx, int64(summary.Skipped))
	}
	if summary.Fatal > 0 {
		e.cntFatal.Add(ctx, int64(summary.Fatal))
	}
	if summary.Halted {
		e.cntHalted.Add(ctx, 1)
	}

	span.SetAttributes(
		attribute.String("sync.op", op.String()),
		attribute.String("sync.batch_id", summary.ID),
		attribute.Int("sync.pairs", len(summary.Results)),
		attribute.Int("sync.success", summary.Success),
		attribute.Int("sync.partial", summary.Partial),
		attribute.Int("sync.skipped", summary.Skipped),
		attribute.Bool("sync.halted", summary.Halted),
	)
	if err != nil {
		span.RecordError(err)
	}
	return summary, err
}

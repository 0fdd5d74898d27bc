package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/mpopa/facegate/internal/model"
)

// --- Provision -----------------------------------------------------------------

func TestProvisionPairSkipsWithoutEmployeeNo(t *testing.T) {
	client := newMockClient()
	emp := testEmployee(101)
	emp.EmployeeNo = 0

	result, err := provisionPair(context.Background(), client, emp, testDevice(1))
	if err != nil {
		t.Fatalf("provisionPair: %v", err)
	}
	if result.Outcome != model.Skipped {
		t.Errorf("outcome = %v, want Skipped", result.Outcome)
	}
	if !strings.Contains(result.Message, "no device call issued") {
		t.Errorf("message %q should state that no call was issued", result.Message)
	}
	if client.callCount() != 0 {
		t.Errorf("device received %d calls, want 0", client.callCount())
	}
}

func TestProvisionPairPersonAndPhoto(t *testing.T) {
	client := newMockClient()

	result, err := provisionPair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("provisionPair: %v", err)
	}
	if result.Outcome != model.Success {
		t.Errorf("outcome = %v, want Success", result.Outcome)
	}
	log := client.callLog()
	if len(log) != 2 || log[0].op != "person" || log[1].op != "photo" {
		t.Errorf("call log = %v, want person then photo", log)
	}
}

func TestProvisionPairWithoutPhotoStopsAfterPerson(t *testing.T) {
	client := newMockClient()
	emp := testEmployee(101)
	emp.PhotoURL = ""

	result, err := provisionPair(context.Background(), client, emp, testDevice(1))
	if err != nil {
		t.Fatalf("provisionPair: %v", err)
	}
	if result.Outcome != model.Success {
		t.Errorf("outcome = %v, want Success", result.Outcome)
	}
	if client.countOp("photo") != 0 {
		t.Error("photo should not be uploaded when the employee has none")
	}
}

func TestProvisionPairFatalPersonSkipsPhoto(t *testing.T) {
	client := newMockClient()
	client.personFn = func(model.Employee, model.Device) (model.StepResult, error) {
		return stepResult(model.Fatal, model.StepPerson, "connection refused")
	}

	result, err := provisionPair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("provisionPair: %v", err)
	}
	if result.Outcome != model.Fatal {
		t.Errorf("outcome = %v, want Fatal", result.Outcome)
	}
	if client.countOp("photo") != 0 {
		t.Error("photo should not be attempted after a fatal person step")
	}
}

// The photo must still be pushed when the person record already exists: the
// device may hold the record without the face.
func TestProvisionPairExistingPersonStillUploadsPhoto(t *testing.T) {
	client := newMockClient()
	client.personFn = func(model.Employee, model.Device) (model.StepResult, error) {
		return stepResult(model.AlreadySatisfied, model.StepPerson, "already present")
	}

	result, err := provisionPair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("provisionPair: %v", err)
	}
	if client.countOp("photo") != 1 {
		t.Fatalf("photo calls = %d, want 1", client.countOp("photo"))
	}
	if result.Outcome != model.Success {
		t.Errorf("outcome = %v, want Success", result.Outcome)
	}
}

func TestProvisionPairFoldsWorstOutcome(t *testing.T) {
	tests := []struct {
		name   string
		person model.Outcome
		photo  model.Outcome
		want   model.Outcome
	}{
		{"partial person wins over good photo", model.Partial, model.Success, model.Partial},
		{"partial photo wins over good person", model.Success, model.Partial, model.Partial},
		{"fatal photo wins over partial person", model.Partial, model.Fatal, model.Fatal},
		{"both satisfied reads as success", model.AlreadySatisfied, model.AlreadySatisfied, model.Success},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newMockClient()
			client.personFn = func(model.Employee, model.Device) (model.StepResult, error) {
				return stepResult(tc.person, model.StepPerson, "person outcome")
			}
			client.photoFn = func(model.Employee, model.Device) (model.StepResult, error) {
				return stepResult(tc.photo, model.StepPhoto, "photo outcome")
			}

			result, err := provisionPair(context.Background(), client, testEmployee(101), testDevice(1))
			if err != nil {
				t.Fatalf("provisionPair: %v", err)
			}
			if result.Outcome != tc.want {
				t.Errorf("outcome = %v, want %v", result.Outcome, tc.want)
			}
		})
	}
}

// --- Replace Photo ---------------------------------------------------------------

func TestReplacePhotoPairSkips(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*model.Employee)
	}{
		{"no employee number", func(e *model.Employee) { e.EmployeeNo = 0 }},
		{"no photo", func(e *model.Employee) { e.PhotoURL = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newMockClient()
			emp := testEmployee(101)
			tc.mod(&emp)

			result, err := replacePhotoPair(context.Background(), client, emp, testDevice(1))
			if err != nil {
				t.Fatalf("replacePhotoPair: %v", err)
			}
			if result.Outcome != model.Skipped {
				t.Errorf("outcome = %v, want Skipped", result.Outcome)
			}
			if client.callCount() != 0 {
				t.Errorf("device received %d calls, want 0", client.callCount())
			}
		})
	}
}

func TestReplacePhotoPairSuccessSkipsFallback(t *testing.T) {
	client := newMockClient()

	result, err := replacePhotoPair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("replacePhotoPair: %v", err)
	}
	if result.Outcome != model.Success {
		t.Errorf("outcome = %v, want Success", result.Outcome)
	}
	if client.countOp("photo") != 0 {
		t.Error("upload fallback should not run after a successful modify")
	}
}

func TestReplacePhotoPairFallsBackToUploadOnce(t *testing.T) {
	client := newMockClient()
	client.replaceFn = func(model.Employee, model.Device) (model.StepResult, error) {
		return stepResult(model.Partial, model.StepPhoto, "no face record to modify")
	}

	result, err := replacePhotoPair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("replacePhotoPair: %v", err)
	}
	if result.Outcome != model.Success {
		t.Errorf("outcome = %v, want Success from fallback upload", result.Outcome)
	}
	if n := client.countOp("photo"); n != 1 {
		t.Errorf("fallback upload ran %d times, want 1", n)
	}
}

// A photo replacement must never halt a batch, even when the fallback upload
// hits a dead device.
func TestReplacePhotoPairNeverFatal(t *testing.T) {
	client := newMockClient()
	client.replaceFn = func(model.Employee, model.Device) (model.StepResult, error) {
		return stepResult(model.Partial, model.StepPhoto, "modify rejected")
	}
	client.photoFn = func(model.Employee, model.Device) (model.StepResult, error) {
		return stepResult(model.Fatal, model.StepPhoto, "connection refused")
	}

	result, err := replacePhotoPair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("replacePhotoPair: %v", err)
	}
	if result.Outcome != model.Partial {
		t.Errorf("outcome = %v, want Partial (fatal degraded)", result.Outcome)
	}
}

// --- Remove ----------------------------------------------------------------------

func TestRemovePairSkipsWithoutEmployeeNo(t *testing.T) {
	client := newMockClient()
	emp := testEmployee(101)
	emp.EmployeeNo = 0

	result, err := removePair(context.Background(), client, emp, testDevice(1))
	if err != nil {
		t.Fatalf("removePair: %v", err)
	}
	if result.Outcome != model.Skipped {
		t.Errorf("outcome = %v, want Skipped", result.Outcome)
	}
	if client.callCount() != 0 {
		t.Errorf("device received %d calls, want 0", client.callCount())
	}
}

func TestRemovePairIdempotentDeleteReadsAsSuccess(t *testing.T) {
	client := newMockClient()
	client.removeFn = func(model.Employee, model.Device) (model.StepResult, error) {
		return stepResult(model.AlreadySatisfied, model.StepDelete, "person not found")
	}

	result, err := removePair(context.Background(), client, testEmployee(101), testDevice(1))
	if err != nil {
		t.Fatalf("removePair: %v", err)
	}
	if result.Outcome != model.Success {
		t.Errorf("outcome = %v, want Success", result.Outcome)
	}
}

package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/mpopa/facegate/internal/model"
)

// --- Mock Device Client --------------------------------------------------------

// deviceCall records one device operation for ordering assertions.
type deviceCall struct {
	op         string // "person", "photo", "replace", "remove"
	employeeNo int64
	device     string
}

type mockClient struct {
	mu    sync.Mutex
	calls []deviceCall

	// Overridable per-op behavior. Defaults return Success.
	personFn  func(emp model.Employee, dev model.Device) (model.StepResult, error)
	photoFn   func(emp model.Employee, dev model.Device) (model.StepResult, error)
	replaceFn func(emp model.Employee, dev model.Device) (model.StepResult, error)
	removeFn  func(emp model.Employee, dev model.Device) (model.StepResult, error)
}

func newMockClient() *mockClient {
	return &mockClient{}
}

func (m *mockClient) record(op string, emp model.Employee, dev model.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, deviceCall{op: op, employeeNo: emp.EmployeeNo, device: dev.Addr()})
}

func (m *mockClient) UpsertPerson(_ context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	m.record("person", emp, dev)
	if m.personFn != nil {
		return m.personFn(emp, dev)
	}
	return model.StepResult{Outcome: model.Success, Step: model.StepPerson, Message: "created"}, nil
}

func (m *mockClient) UploadPhoto(_ context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	m.record("photo", emp, dev)
	if m.photoFn != nil {
		return m.photoFn(emp, dev)
	}
	return model.StepResult{Outcome: model.Success, Step: model.StepPhoto, Message: "uploaded"}, nil
}

func (m *mockClient) ReplacePhoto(_ context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	m.record("replace", emp, dev)
	if m.replaceFn != nil {
		return m.replaceFn(emp, dev)
	}
	return model.StepResult{Outcome: model.Success, Step: model.StepPhoto, Message: "replaced"}, nil
}

func (m *mockClient) RemovePerson(_ context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	m.record("remove", emp, dev)
	if m.removeFn != nil {
		return m.removeFn(emp, dev)
	}
	return model.StepResult{Outcome: model.Success, Step: model.StepDelete, Message: "deleted"}, nil
}

func (m *mockClient) callLog() []deviceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]deviceCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// countOp counts calls of one operation kind.
func (m *mockClient) countOp(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

// --- Mock Directory ------------------------------------------------------------

type mockDirectory struct {
	mu        sync.Mutex
	employees []model.Employee
	devices   []model.Device

	devicesErr   error
	employeesErr error
}

func newMockDirectory(employees []model.Employee, devices []model.Device) *mockDirectory {
	return &mockDirectory{employees: employees, devices: devices}
}

func (m *mockDirectory) ActiveDevices(_ context.Context) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.devicesErr != nil {
		return nil, m.devicesErr
	}
	cp := make([]model.Device, len(m.devices))
	copy(cp, m.devices)
	return cp, nil
}

func (m *mockDirectory) ActiveEmployees(_ context.Context) ([]model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.employeesErr != nil {
		return nil, m.employeesErr
	}
	cp := make([]model.Employee, len(m.employees))
	copy(cp, m.employees)
	return cp, nil
}

func (m *mockDirectory) Employee(_ context.Context, id string) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.employeesErr != nil {
		return nil, m.employeesErr
	}
	for _, emp := range m.employees {
		if emp.ID == id {
			cp := emp
			return &cp, nil
		}
	}
	return nil, nil
}

// --- Fixtures ------------------------------------------------------------------

func testEmployee(no int64) model.Employee {
	return model.Employee{
		ID:         fmt.Sprintf("emp-%d", no),
		EmployeeNo: no,
		Name:       fmt.Sprintf("Employee %d", no),
		PhotoURL:   fmt.Sprintf("https://photos.example.com/%d.jpg", no),
		Active:     true,
	}
}

func testDevice(n int) model.Device {
	return model.Device{
		ID:       fmt.Sprintf("dev-%d", n),
		Host:     fmt.Sprintf("10.0.0.%d", n),
		Port:     80,
		Username: "admin",
		Password: "secret",
		Active:   true,
	}
}

func stepResult(outcome model.Outcome, step model.Step, msg string) (model.StepResult, error) {
	return model.StepResult{Outcome: outcome, Step: step, Message: msg}, nil
}

package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mpopa/facegate/internal/model"
)

// File is the on-disk roster document consumed by the import command.
type File struct {
	Employees []FileEmployee `yaml:"employees"`
	Devices   []FileDevice   `yaml:"devices"`
}

// FileEmployee is one employee entry in a roster file.
type FileEmployee struct {
	ID         string `yaml:"id"`
	EmployeeNo int64  `yaml:"employee_no"`
	Name       string `yaml:"name"`
	PhotoURL   string `yaml:"photo_url"`
	Active     *bool  `yaml:"active"` // nil means active
}

// FileDevice is one device entry in a roster file.
type FileDevice struct {
	ID       string `yaml:"id"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Active   *bool  `yaml:"active"` // nil means active
}

// LoadFile parses and validates a YAML roster file and converts it to model
// records ready for [Store.Import]. Unknown keys are rejected.
func LoadFile(path string) ([]model.Employee, []model.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening roster file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("parsing roster file %q: %w", path, err)
	}
	if err := file.validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid roster file %q: %w", path, err)
	}

	employees := make([]model.Employee, 0, len(file.Employees))
	for _, e := range file.Employees {
		employees = append(employees, model.Employee{
			ID:         e.ID,
			EmployeeNo: e.EmployeeNo,
			Name:       e.Name,
			PhotoURL:   e.PhotoURL,
			Active:     e.Active == nil || *e.Active,
		})
	}

	devices := make([]model.Device, 0, len(file.Devices))
	for _, d := range file.Devices {
		devices = append(devices, model.Device{
			ID:       d.ID,
			Host:     d.Host,
			Port:     d.Port,
			Username: d.Username,
			Password: d.Password,
			Active:   d.Active == nil || *d.Active,
		})
	}
	return employees, devices, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Employees))
	for i, e := range f.Employees {
		if e.ID == "" {
			return fmt.Errorf("employees[%d]: id is required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("employees[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if e.EmployeeNo < 0 {
			return fmt.Errorf("employee %q: employee_no must not be negative", e.ID)
		}
	}

	seenDev := make(map[string]bool, len(f.Devices))
	for i, d := range f.Devices {
		if d.ID == "" {
			return fmt.Errorf("devices[%d]: id is required", i)
		}
		if seenDev[d.ID] {
			return fmt.Errorf("devices[%d]: duplicate id %q", i, d.ID)
		}
		seenDev[d.ID] = true
		if d.Host == "" {
			return fmt.Errorf("device %q: host is required", d.ID)
		}
		if d.Username == "" || d.Password == "" {
			return fmt.Errorf("device %q: username and password are required", d.ID)
		}
		if d.Port < 0 || d.Port > 65535 {
			return fmt.Errorf("device %q: port %d out of range", d.ID, d.Port)
		}
	}
	return nil
}

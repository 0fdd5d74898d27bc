package roster

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mpopa/facegate/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS employees (
    id          TEXT    PRIMARY KEY,
    employee_no INTEGER NOT NULL DEFAULT 0,
    name        TEXT    NOT NULL DEFAULT '',
    photo_url   TEXT    NOT NULL DEFAULT '',
    active      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS devices (
    id       TEXT    PRIMARY KEY,
    host     TEXT    NOT NULL,
    port     INTEGER NOT NULL DEFAULT 80,
    username TEXT    NOT NULL,
    password TEXT    NOT NULL,
    active   INTEGER NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_employee_no ON employees (employee_no) WHERE employee_no != 0;
`

// Store is the SQLite-backed roster for deployments without gateway access.
// Populate it with [Store.Import]; it then serves the same Directory surface
// as [Client].
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default roster database path:
// ~/.local/share/facegate/roster.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "facegate", "roster.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema,
// and configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating roster directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ActiveDevices returns every active device ordered by host.
func (s *Store) ActiveDevices(ctx context.Context) ([]model.Device, error) {
	const q = `
		SELECT id, host, port, username, password
		FROM devices WHERE active = 1 ORDER BY host, port`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var devices []model.Device
	for rows.Next() {
		dev := model.Device{Active: true}
		if err := rows.Scan(&dev.ID, &dev.Host, &dev.Port, &dev.Username, &dev.Password); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, dev)
	}
	return devices, rows.Err()
}

// ActiveEmployees returns every active employee ordered by numeric id,
// including those without one (they sort first and get skipped downstream).
func (s *Store) ActiveEmployees(ctx context.Context) ([]model.Employee, error) {
	const q = `
		SELECT id, employee_no, name, photo_url
		FROM employees WHERE active = 1 ORDER BY employee_no, id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying employees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var employees []model.Employee
	for rows.Next() {
		emp := model.Employee{Active: true}
		if err := rows.Scan(&emp.ID, &emp.EmployeeNo, &emp.Name, &emp.PhotoURL); err != nil {
			return nil, fmt.Errorf("scanning employee row: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// Employee returns the employee with the given roster id, or (nil, nil) if
// no such row exists.
func (s *Store) Employee(ctx context.Context, id string) (*model.Employee, error) {
	const q = `
		SELECT id, employee_no, name, photo_url, active
		FROM employees WHERE id = ?`
	var emp model.Employee
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&emp.ID, &emp.EmployeeNo, &emp.Name, &emp.PhotoURL, &emp.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("querying employee %q: %w", id, err)
	}
	return &emp, nil
}

// UpsertEmployee inserts or replaces one employee row keyed by roster id.
func (s *Store) UpsertEmployee(ctx context.Context, emp model.Employee) error {
	const q = `
		INSERT INTO employees (id, employee_no, name, photo_url, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    employee_no = excluded.employee_no,
		    name        = excluded.name,
		    photo_url   = excluded.photo_url,
		    active      = excluded.active`
	if _, err := s.db.ExecContext(ctx, q, emp.ID, emp.EmployeeNo, emp.Name, emp.PhotoURL, emp.Active); err != nil {
		return fmt.Errorf("upserting employee %q: %w", emp.ID, err)
	}
	return nil
}

// UpsertDevice inserts or replaces one device row keyed by roster id.
func (s *Store) UpsertDevice(ctx context.Context, dev model.Device) error {
	const q = `
		INSERT INTO devices (id, host, port, username, password, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    host     = excluded.host,
		    port     = excluded.port,
		    username = excluded.username,
		    password = excluded.password,
		    active   = excluded.active`
	if _, err := s.db.ExecContext(ctx, q, dev.ID, dev.Host, dev.Port, dev.Username, dev.Password, dev.Active); err != nil {
		return fmt.Errorf("upserting device %q: %w", dev.ID, err)
	}
	return nil
}

// Import upserts a whole roster in one transaction. Existing rows keep their
// id and get refreshed; rows absent from the file are left untouched.
func (s *Store) Import(ctx context.Context, employees []model.Employee, devices []model.Device) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const empQ = `
		INSERT INTO employees (id, employee_no, name, photo_url, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    employee_no = excluded.employee_no,
		    name        = excluded.name,
		    photo_url   = excluded.photo_url,
		    active      = excluded.active`
	for _, emp := range employees {
		if _, err := tx.ExecContext(ctx, empQ, emp.ID, emp.EmployeeNo, emp.Name, emp.PhotoURL, emp.Active); err != nil {
			return fmt.Errorf("importing employee %q: %w", emp.ID, err)
		}
	}

	const devQ = `
		INSERT INTO devices (id, host, port, username, password, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    host     = excluded.host,
		    port     = excluded.port,
		    username = excluded.username,
		    password = excluded.password,
		    active   = excluded.active`
	for _, dev := range devices {
		if _, err := tx.ExecContext(ctx, devQ, dev.ID, dev.Host, dev.Port, dev.Username, dev.Password, dev.Active); err != nil {
			return fmt.Errorf("importing device %q: %w", dev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

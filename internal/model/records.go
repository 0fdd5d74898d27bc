package model

import (
	"fmt"
	"strconv"
)

// Employee is an identity record eligible for device provisioning.
type Employee struct {
	// ID is the roster's own identifier (UUID in the central datastore),
	// used only to select employees through the gateway.
	ID string

	// EmployeeNo is the stable numeric identifier assigned once and never
	// reused. Zero means unassigned; such employees are never eligible
	// for any device operation.
	EmployeeNo int64

	// Name is the display name pushed to terminals.
	Name string

	// PhotoURL is an optional reference to the employee's face photo.
	// May be a full URL or a bare filename resolved against the
	// configured photo base URL.
	PhotoURL string

	// Active mirrors the roster's activity status. Inactive employees get
	// a disabled validity window on the terminal rather than being
	// withheld, matching the central datastore's semantics.
	Active bool
}

// HasEmployeeNo reports whether the employee carries a numeric id.
func (e Employee) HasEmployeeNo() bool { return e.EmployeeNo > 0 }

// HasPhoto reports whether the employee carries a photo reference.
func (e Employee) HasPhoto() bool { return e.PhotoURL != "" }

// EmployeeNoString returns the numeric id in the string form terminals
// expect on the wire.
func (e Employee) EmployeeNoString() string {
	return strconv.FormatInt(e.EmployeeNo, 10)
}

// Device is one access-control terminal. Only devices with Active set
// participate in a batch.
type Device struct {
	ID       string
	Host     string
	Port     int
	Username string
	Password string
	Active   bool
}

// Addr returns the device's network address, the only identity ever used in
// results and logs. Credentials are never echoed. A zero port defaults to 80.
func (d Device) Addr() string {
	port := d.Port
	if port == 0 {
		port = 80
	}
	return fmt.Sprintf("%s:%d", d.Host, port)
}

// String implements fmt.Stringer so accidental %v formatting of a Device
// cannot leak credentials.
func (d Device) String() string { return d.Addr() }

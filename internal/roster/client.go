// Package roster supplies the employee and device records the sync engine
// consumes. Two interchangeable backends exist: [Client] fetches from the
// central HR gateway over HTTPS, and [Store] serves a local SQLite copy for
// deployments without gateway access. Both filter devices to active ones
// and return records in a stable order.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mpopa/facegate/internal/model"
)

const (
	// proxyPath is the gateway's edge-function entry point; the concrete
	// query is selected with an action parameter.
	proxyPath = "/functions/v1/external-api-proxy"

	actionActiveDevices = "get-active-devices"
	actionEmployee      = "get-employee"
	actionEmployees     = "get-employees"

	defaultGatewayTimeout = 30 * time.Second
)

// Client fetches roster data from the HR gateway. All fetches are wrapped in
// [Retry]; the gateway is a shared service whose transient failures should
// not abort a batch before it starts.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	log     *slog.Logger
}

// NewClient creates a gateway client. baseURL is the gateway origin without
// the edge-function path.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: defaultGatewayTimeout},
		log:     logger,
	}
}

// --- wire types ----------------------------------------------------------------

type deviceRecord struct {
	ID        string `json:"id"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Active    bool   `json:"active"`
}

type biometricsRecord struct {
	EmployeeNo int64  `json:"employee_no"`
	PhotoURL   string `json:"photo_url"`
}

type employeeRecord struct {
	ID         string            `json:"id"`
	FullName   string            `json:"full_name"`
	Status     string            `json:"status"`
	Biometrics *biometricsRecord `json:"biometrics"`
}

func (r deviceRecord) toModel() model.Device {
	return model.Device{
		ID:       r.ID,
		Host:     r.IPAddress,
		Port:     r.Port,
		Username: r.Username,
		Password: r.Password,
		Active:   r.Active,
	}
}

func (r employeeRecord) toModel() model.Employee {
	emp := model.Employee{
		ID:     r.ID,
		Name:   r.FullName,
		Active: r.Status == "active",
	}
	if r.Biometrics != nil {
		emp.EmployeeNo = r.Biometrics.EmployeeNo
		emp.PhotoURL = r.Biometrics.PhotoURL
	}
	return emp
}

// --- Directory implementation ----------------------------------------------------

// ActiveDevices returns every device marked active, in gateway order.
func (c *Client) ActiveDevices(ctx context.Context) ([]model.Device, error) {
	var records []deviceRecord
	if err := c.get(ctx, actionActiveDevices, nil, &records); err != nil {
		return nil, fmt.Errorf("fetching active devices: %w", err)
	}

	devices := make([]model.Device, 0, len(records))
	for _, r := range records {
		if !r.Active {
			continue
		}
		devices = append(devices, r.toModel())
	}
	return devices, nil
}

// ActiveEmployees returns every active employee. Employees without a numeric
// terminal id are included; the engine decides what to do with them.
func (c *Client) ActiveEmployees(ctx context.Context) ([]model.Employee, error) {
	var records []employeeRecord
	if err := c.get(ctx, actionEmployees, nil, &records); err != nil {
		return nil, fmt.Errorf("fetching employees: %w", err)
	}

	employees := make([]model.Employee, 0, len(records))
	for _, r := range records {
		emp := r.toModel()
		if !emp.Active {
			continue
		}
		employees = append(employees, emp)
	}
	return employees, nil
}

// Employee returns the employee with the given roster id, or (nil, nil) if
// the gateway has no such record.
func (c *Client) Employee(ctx context.Context, id string) (*model.Employee, error) {
	var record *employeeRecord
	params := url.Values{"employee_id": {id}}
	if err := c.get(ctx, actionEmployee, params, &record); err != nil {
		return nil, fmt.Errorf("fetching employee %q: %w", id, err)
	}
	if record == nil {
		return nil, nil
	}
	emp := record.toModel()
	return &emp, nil
}

// get issues one retried GET against the proxy endpoint and decodes the
// response's data envelope into out.
func (c *Client) get(ctx context.Context, action string, params url.Values, out any) error {
	endpoint := c.baseURL + proxyPath + "?action=" + url.QueryEscape(action)
	if len(params) > 0 {
		endpoint += "&" + params.Encode()
	}

	return Retry(ctx, defaultMaxAttempts, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("creating gateway request: %w", err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			return fmt.Errorf("calling gateway: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("gateway rejected the API key (status %d)", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gateway returned status %d for action %s", resp.StatusCode, action)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("reading gateway response: %w", err)
		}

		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("decoding gateway envelope: %w", err)
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding gateway data for action %s: %w", action, err)
		}
		return nil
	})
}

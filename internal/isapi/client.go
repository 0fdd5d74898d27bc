// Package isapi implements the device-management protocol spoken by the
// access-control terminals: typed JSON request payloads, digest-authenticated
// calls with a bounded timeout, and classification of the heterogeneous
// device responses into a small outcome vocabulary.
//
// Every operation is idempotent by design: repeating it after success leaves
// the device in the same state without error. Device-side failures are
// returned as [model.StepResult] values, never as Go errors; errors are
// reserved for programming and configuration defects (an unmarshalable
// payload, a photo call for an employee with no photo reference).
package isapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/icholy/digest"

	"github.com/mpopa/facegate/internal/model"
)

const (
	endpointPersonRecord = "/ISAPI/AccessControl/UserInfo/Record?format=json"
	endpointFaceRecord   = "/ISAPI/Intelligent/FDLib/FaceDataRecord?format=json"
	endpointFaceModify   = "/ISAPI/Intelligent/FDLib/FDModify?format=json"
	// The protocol deletes over PUT despite the endpoint name.
	endpointPersonDelete = "/ISAPI/AccessControl/UserInfoDetail/Delete?format=json"

	userAgent = "facegate/1.0"

	// defaultTimeout bounds one protocol round trip. The terminals are
	// slow embedded hardware; photo ingestion in particular can take
	// several seconds.
	defaultTimeout = 15 * time.Second
)

// Client issues protocol operations against individual terminals. It holds
// no per-device state: credentials are read-only inputs per call, never
// cached. Create one with [New].
type Client struct {
	photoBaseURL string
	timeout      time.Duration
	log          *slog.Logger
}

// New creates a Client. photoBaseURL resolves bare-filename photo
// references; pass "" when the roster only carries absolute URLs. A
// non-positive timeout falls back to the default.
func New(photoBaseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{photoBaseURL: photoBaseURL, timeout: timeout, log: logger}
}

// UpsertPerson writes the employee's identity record to the device. It never
// mutates an existing record: when the device reports the id already exists,
// the result is AlreadySatisfied and the device keeps its current data.
func (c *Client) UpsertPerson(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	if !emp.HasEmployeeNo() {
		return model.StepResult{}, fmt.Errorf("upsert person: employee %q has no employee number", emp.Name)
	}
	return c.call(ctx, opPerson, http.MethodPost, endpointPersonRecord, dev, buildPersonRecord(emp))
}

// UploadPhoto attaches the employee's photo reference to an existing identity
// record. Calling it for an employee without a photo reference is a
// programming error reported via the error return.
func (c *Client) UploadPhoto(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	photoURL, err := c.photoURL(emp)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("upload photo: %w", err)
	}
	return c.call(ctx, opPhotoAdd, http.MethodPost, endpointFaceRecord, dev, buildFacePayload(emp, photoURL))
}

// ReplacePhoto attempts an in-place photo replacement. Every non-success
// classification, including a transport-level failure, degrades to Partial:
// this operation is always followed by an UploadPhoto fallback and must
// never abort a batch on its own.
func (c *Client) ReplacePhoto(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	photoURL, err := c.photoURL(emp)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("replace photo: %w", err)
	}
	res, err := c.call(ctx, opPhotoModify, http.MethodPut, endpointFaceModify, dev, buildFaceModifyPayload(emp, photoURL))
	if err != nil {
		return model.StepResult{}, err
	}
	if res.Outcome == model.Fatal {
		res.Outcome = model.Partial
	}
	return res, nil
}

// RemovePerson deletes the employee's identity record by numeric id.
// AlreadySatisfied means the record was already absent, which makes deletion
// idempotent.
func (c *Client) RemovePerson(ctx context.Context, emp model.Employee, dev model.Device) (model.StepResult, error) {
	if !emp.HasEmployeeNo() {
		return model.StepResult{}, fmt.Errorf("remove person: employee %q has no employee number", emp.Name)
	}
	return c.call(ctx, opDelete, http.MethodPut, endpointPersonDelete, dev, buildDeleteRequest(emp))
}

// photoURL validates and resolves the employee's photo reference.
func (c *Client) photoURL(emp model.Employee) (string, error) {
	if !emp.HasEmployeeNo() {
		return "", fmt.Errorf("employee %q has no employee number", emp.Name)
	}
	if !emp.HasPhoto() {
		return "", fmt.Errorf("employee %s has no photo reference", emp.EmployeeNoString())
	}
	return resolvePhotoURL(emp.PhotoURL, c.photoBaseURL)
}

// call performs one digest-authenticated round trip and classifies the
// exchange. Transport failures (refused connection, timeout, DNS) map to
// Fatal: they implicate the device or network for all subsequent calls.
func (c *Client) call(ctx context.Context, op operation, method, endpoint string, dev model.Device, payload any) (model.StepResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.StepResult{}, fmt.Errorf("marshaling %s payload: %w", op.step(), err)
	}

	reqURL := fmt.Sprintf("http://%s%s", dev.Addr(), endpoint)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return model.StepResult{}, fmt.Errorf("building %s request for %s: %w", op.step(), dev.Addr(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	// A fresh client per call keeps the digest challenge state scoped to
	// this device's credentials.
	hc := &http.Client{
		Transport: &digest.Transport{Username: dev.Username, Password: dev.Password},
		Timeout:   c.timeout,
	}

	c.log.Debug("device call", "step", op.step(), "method", method, "device", dev.Addr())

	resp, err := hc.Do(req)
	if err != nil {
		return model.StepResult{
			Outcome: model.Fatal,
			Step:    op.step(),
			Message: fmt.Sprintf("device %s unreachable: %v", dev.Addr(), err),
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.StepResult{
			Outcome: model.Fatal,
			Step:    op.step(),
			Message: fmt.Sprintf("reading response from %s: %v", dev.Addr(), err),
		}, nil
	}

	res := classify(op, resp.StatusCode, raw)
	c.log.Debug("device response",
		"step", op.step(),
		"device", dev.Addr(),
		"http_status", resp.StatusCode,
		"outcome", res.Outcome,
	)
	return res, nil
}

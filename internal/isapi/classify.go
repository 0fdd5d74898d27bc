package isapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mpopa/facegate/internal/model"
)

// deviceStatus is the JSON status envelope terminals attach to responses,
// including error responses delivered with non-200 HTTP codes.
type deviceStatus struct {
	StatusCode    int    `json:"statusCode"`
	StatusString  string `json:"statusString"`
	SubStatusCode string `json:"subStatusCode"`
	ErrorMsg      string `json:"errorMsg"`
}

// operation selects the idempotency signal the classifier recognizes.
// Each protocol operation has its own "already in the requested state"
// status pair.
type operation int

const (
	opPerson operation = iota
	opPhotoAdd
	opPhotoModify
	opDelete
)

// step returns the step name carried in results for this operation.
func (op operation) step() model.Step {
	switch op {
	case opPerson:
		return model.StepPerson
	case opDelete:
		return model.StepDelete
	default:
		return model.StepPhoto
	}
}

// classify maps a completed HTTP exchange to an outcome. Rules apply in
// order, first match wins:
//
//  1. 401/403 → Fatal: a credential problem recurs on every subsequent
//     call to the same device.
//  2. Recognized success pair → Success.
//  3. The operation's idempotency pair → AlreadySatisfied.
//  4. Any other well-formed status body → Partial.
//  5. Malformed or absent body → Partial.
//
// Transport-level failures never reach classify; the caller maps those to
// Fatal directly.
func classify(op operation, httpStatus int, body []byte) model.StepResult {
	if httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden {
		return model.StepResult{
			Outcome: model.Fatal,
			Step:    op.step(),
			Message: fmt.Sprintf("authentication failed (HTTP %d) - invalid device credentials", httpStatus),
		}
	}

	// Terminals report errors in the body even on HTTP 400, so the body is
	// parsed regardless of status code.
	var ds deviceStatus
	if err := json.Unmarshal(body, &ds); err != nil {
		return model.StepResult{
			Outcome: model.Partial,
			Step:    op.step(),
			Message: fmt.Sprintf("unparseable device response (HTTP %d): %s", httpStatus, bodySnippet(body)),
		}
	}

	if isSuccess(op, ds) {
		return model.StepResult{Outcome: model.Success, Step: op.step(), Message: successMessage(op)}
	}

	if msg, ok := alreadySatisfied(op, ds); ok {
		return model.StepResult{Outcome: model.AlreadySatisfied, Step: op.step(), Message: msg}
	}

	return model.StepResult{
		Outcome: model.Partial,
		Step:    op.step(),
		Message: fmt.Sprintf("device error: statusCode=%d subStatusCode=%s statusString=%s errorMsg=%s",
			ds.StatusCode, ds.SubStatusCode, ds.StatusString, ds.ErrorMsg),
	}
}

// isSuccess reports whether the status pair means "operation succeeded".
// Photo replacement firmware variants answer with statusString "OK" instead
// of subStatusCode "ok".
func isSuccess(op operation, ds deviceStatus) bool {
	if ds.StatusCode != 1 {
		return false
	}
	if ds.SubStatusCode == "ok" {
		return true
	}
	return op == opPhotoModify && strings.EqualFold(ds.StatusString, "ok")
}

// alreadySatisfied reports whether the status pair is the operation's own
// idempotency signal, returning the message to surface.
func alreadySatisfied(op operation, ds deviceStatus) (string, bool) {
	switch op {
	case opPerson:
		if ds.StatusCode == 6 && ds.SubStatusCode == "employeeNoAlreadyExist" {
			return "person already exists on device", true
		}
	case opPhotoAdd:
		if ds.StatusCode == 6 && ds.SubStatusCode == "deviceUserAlreadyExistFace" {
			return "photo already exists on device", true
		}
	case opPhotoModify:
		// Firmware variants disagree on where the marker lands.
		if ds.StatusCode == 6 &&
			(strings.Contains(ds.SubStatusCode, "alreadyExist") || strings.Contains(ds.StatusString, "alreadyExist")) {
			return "photo already exists on device", true
		}
	case opDelete:
		lower := strings.ToLower(ds.StatusString)
		if ds.StatusCode == 6 || strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist") {
			return "person not found on device (already deleted or never existed)", true
		}
	}
	return "", false
}

func successMessage(op operation) string {
	switch op {
	case opPerson:
		return "person record written"
	case opPhotoAdd:
		return "photo uploaded"
	case opPhotoModify:
		return "photo replaced"
	case opDelete:
		return "person deleted"
	default:
		return "ok"
	}
}

// bodySnippet truncates a response body for inclusion in messages.
func bodySnippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	if s == "" {
		return "<empty body>"
	}
	return s
}

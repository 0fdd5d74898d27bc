package isapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mpopa/facegate/internal/model"
)

// Protocol constants. The terminals store faces in a fixed library and
// expose a single face slot per person.
const (
	faceLibType   = "blackFD"
	faceLibID     = "1"
	defaultFaceID = "1"

	userTypeNormal   = "normal"
	verifyModeFace   = "face"
	validityBegin    = "2000-01-01T00:00:00"
	validityEnd      = "2037-12-31T23:59:59"
	validityTimeType = "local"

	deleteModeByEmployeeNo = "byEmployeeNo"
	deleteByTerminal       = "byTerminal"
)

// defaultTerminalNoList targets terminal 1, the only terminal on the
// single-door controllers this engine manages.
var defaultTerminalNoList = []int{1}

// validity is the enable/time window attached to a person record.
type validity struct {
	Enable    bool   `json:"enable"`
	BeginTime string `json:"beginTime"`
	EndTime   string `json:"endTime"`
	TimeType  string `json:"timeType"`
}

// rightPlan grants access on one door under one plan template.
type rightPlan struct {
	DoorNo         int    `json:"doorNo"`
	PlanTemplateNo string `json:"planTemplateNo"`
}

// userInfo is the body of a person-record request.
type userInfo struct {
	EmployeeNo     string      `json:"employeeNo"`
	Name           string      `json:"name"`
	UserType       string      `json:"userType"`
	Valid          validity    `json:"Valid"`
	DoorRight      string      `json:"doorRight"`
	RightPlan      []rightPlan `json:"RightPlan"`
	UserVerifyMode string      `json:"userVerifyMode"`
	LocalUIRight   bool        `json:"localUIRight"`
}

// personRecord wraps userInfo in the envelope the terminal expects.
type personRecord struct {
	UserInfo userInfo `json:"UserInfo"`
}

// facePayload is the body for both photo upload (POST) and photo replace
// (PUT). FaceID is only set on replace.
type facePayload struct {
	FaceLibType string `json:"faceLibType"`
	FDID        string `json:"FDID"`
	FPID        string `json:"FPID"`
	FaceID      string `json:"faceID,omitempty"`
	FaceURL     string `json:"faceURL"`
}

// employeeNoEntry is one element of the delete request's id list.
type employeeNoEntry struct {
	EmployeeNo string `json:"employeeNo"`
}

// userInfoDetail is the body of a person-delete request.
type userInfoDetail struct {
	Mode           string            `json:"mode"`
	EmployeeNoList []employeeNoEntry `json:"EmployeeNoList"`
	OperateType    string            `json:"operateType"`
	TerminalNoList []int             `json:"terminalNoList"`
}

// deleteRequest wraps userInfoDetail in the envelope the terminal expects.
type deleteRequest struct {
	UserInfoDetail userInfoDetail `json:"UserInfoDetail"`
}

// buildPersonRecord builds the person-record payload for an employee. The
// numeric id is stringified because terminals reject numeric employeeNo
// values. Inactive employees are pushed with a disabled validity window
// rather than withheld.
func buildPersonRecord(emp model.Employee) personRecord {
	name := strings.TrimSpace(emp.Name)
	if name == "" {
		name = "Unknown"
	}
	return personRecord{UserInfo: userInfo{
		EmployeeNo: emp.EmployeeNoString(),
		Name:       name,
		UserType:   userTypeNormal,
		Valid: validity{
			Enable:    emp.Active,
			BeginTime: validityBegin,
			EndTime:   validityEnd,
			TimeType:  validityTimeType,
		},
		DoorRight:      "1",
		RightPlan:      []rightPlan{{DoorNo: 1, PlanTemplateNo: "1"}},
		UserVerifyMode: verifyModeFace,
		LocalUIRight:   false,
	}}
}

// buildFacePayload builds the photo upload payload. photoURL must already be
// resolved via resolvePhotoURL.
func buildFacePayload(emp model.Employee, photoURL string) facePayload {
	return facePayload{
		FaceLibType: faceLibType,
		FDID:        faceLibID,
		FPID:        emp.EmployeeNoString(),
		FaceURL:     photoURL,
	}
}

// buildFaceModifyPayload builds the in-place photo replacement payload. It
// carries the fixed default face slot id in addition to the upload fields.
func buildFaceModifyPayload(emp model.Employee, photoURL string) facePayload {
	p := buildFacePayload(emp, photoURL)
	p.FaceID = defaultFaceID
	return p
}

// buildDeleteRequest builds the delete-by-id payload targeting the default
// terminal list.
func buildDeleteRequest(emp model.Employee) deleteRequest {
	return deleteRequest{UserInfoDetail: userInfoDetail{
		Mode:           deleteModeByEmployeeNo,
		EmployeeNoList: []employeeNoEntry{{EmployeeNo: emp.EmployeeNoString()}},
		OperateType:    deleteByTerminal,
		TerminalNoList: defaultTerminalNoList,
	}}
}

// resolvePhotoURL turns an employee's photo reference into the URL a
// terminal can fetch. Bare filenames are joined onto baseURL. Plain-http
// URLs on the photo storage host are upgraded to https because terminals
// require TLS when fetching external photos.
func resolvePhotoURL(ref, baseURL string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty photo reference")
	}

	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		if baseURL == "" {
			return "", fmt.Errorf("photo reference %q is a bare filename but no photo base URL is configured", ref)
		}
		return strings.TrimRight(baseURL, "/") + "/" + ref, nil
	}

	if strings.HasPrefix(ref, "http://") && baseURL != "" {
		refURL, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parsing photo URL %q: %w", ref, err)
		}
		base, err := url.Parse(baseURL)
		if err == nil && base.Host != "" && refURL.Host == base.Host {
			refURL.Scheme = "https"
			return refURL.String(), nil
		}
	}

	return ref, nil
}

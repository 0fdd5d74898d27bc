package isapi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mpopa/facegate/internal/model"
)

func TestBuildPersonRecord(t *testing.T) {
	emp := model.Employee{EmployeeNo: 1000, Name: "Ion Vasile", Active: true}
	rec := buildPersonRecord(emp)

	if rec.UserInfo.EmployeeNo != "1000" {
		t.Errorf("employeeNo = %q, want %q (string form)", rec.UserInfo.EmployeeNo, "1000")
	}
	if rec.UserInfo.Name != "Ion Vasile" {
		t.Errorf("name = %q, want %q", rec.UserInfo.Name, "Ion Vasile")
	}
	if !rec.UserInfo.Valid.Enable {
		t.Error("Valid.enable = false for an active employee")
	}
	if rec.UserInfo.UserVerifyMode != "face" {
		t.Errorf("userVerifyMode = %q, want %q", rec.UserInfo.UserVerifyMode, "face")
	}
	if len(rec.UserInfo.RightPlan) != 1 || rec.UserInfo.RightPlan[0].DoorNo != 1 {
		t.Errorf("RightPlan = %+v, want single entry for door 1", rec.UserInfo.RightPlan)
	}
}

func TestBuildPersonRecord_InactiveAndNameless(t *testing.T) {
	rec := buildPersonRecord(model.Employee{EmployeeNo: 7, Name: "  ", Active: false})
	if rec.UserInfo.Valid.Enable {
		t.Error("Valid.enable = true for an inactive employee")
	}
	if rec.UserInfo.Name != "Unknown" {
		t.Errorf("name = %q, want fallback %q", rec.UserInfo.Name, "Unknown")
	}
}

func TestBuildPersonRecord_WireShape(t *testing.T) {
	raw, err := json.Marshal(buildPersonRecord(model.Employee{EmployeeNo: 42, Name: "Ana Pop", Active: true}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// The terminal is case-sensitive about these keys.
	for _, key := range []string{`"UserInfo"`, `"employeeNo"`, `"userType"`, `"Valid"`, `"beginTime"`, `"doorRight"`, `"RightPlan"`, `"planTemplateNo"`, `"userVerifyMode"`, `"localUIRight"`} {
		if !contains(raw, key) {
			t.Errorf("person record JSON missing key %s: %s", key, raw)
		}
	}
}

func TestBuildFacePayloads(t *testing.T) {
	emp := model.Employee{EmployeeNo: 12, PhotoURL: "https://photos.example.com/p/test.jpg"}

	add := buildFacePayload(emp, emp.PhotoURL)
	if add.FaceLibType != "blackFD" || add.FDID != "1" {
		t.Errorf("face payload library = %q/%q, want blackFD/1", add.FaceLibType, add.FDID)
	}
	if add.FPID != "12" {
		t.Errorf("FPID = %q, want %q", add.FPID, "12")
	}
	if add.FaceID != "" {
		t.Errorf("upload payload carries faceID %q, want empty", add.FaceID)
	}

	mod := buildFaceModifyPayload(emp, emp.PhotoURL)
	if mod.FaceID != "1" {
		t.Errorf("modify payload faceID = %q, want %q", mod.FaceID, "1")
	}

	// faceID must be omitted from the upload wire shape entirely.
	raw, err := json.Marshal(add)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if contains(raw, `"faceID"`) {
		t.Errorf("upload payload JSON contains faceID: %s", raw)
	}
}

func TestBuildDeleteRequest(t *testing.T) {
	req := buildDeleteRequest(model.Employee{EmployeeNo: 2000})

	d := req.UserInfoDetail
	if d.Mode != "byEmployeeNo" {
		t.Errorf("mode = %q, want %q", d.Mode, "byEmployeeNo")
	}
	if d.OperateType != "byTerminal" {
		t.Errorf("operateType = %q, want %q", d.OperateType, "byTerminal")
	}
	if len(d.TerminalNoList) != 1 || d.TerminalNoList[0] != 1 {
		t.Errorf("terminalNoList = %v, want [1]", d.TerminalNoList)
	}
	if len(d.EmployeeNoList) != 1 || d.EmployeeNoList[0].EmployeeNo != "2000" {
		t.Errorf("EmployeeNoList = %+v, want single string entry %q", d.EmployeeNoList, "2000")
	}
}

func TestResolvePhotoURL(t *testing.T) {
	const base = "https://photos.example.com/storage/v1/object/public/gate-photos"

	tests := []struct {
		name    string
		ref     string
		base    string
		want    string
		wantErr bool
	}{
		{
			name: "absolute https passes through",
			ref:  "https://elsewhere.example.org/x.jpg", base: base,
			want: "https://elsewhere.example.org/x.jpg",
		},
		{
			name: "bare filename joined to base",
			ref:  "face-123.jpg", base: base,
			want: base + "/face-123.jpg",
		},
		{
			name: "bare filename with trailing slash base",
			ref:  "face-123.jpg", base: base + "/",
			want: base + "/face-123.jpg",
		},
		{
			name: "http upgraded to https on the storage host",
			ref:  "http://photos.example.com/storage/v1/object/public/gate-photos/a.jpg", base: base,
			want: "https://photos.example.com/storage/v1/object/public/gate-photos/a.jpg",
		},
		{
			name: "http on a foreign host is left alone",
			ref:  "http://camera-lan.local/a.jpg", base: base,
			want: "http://camera-lan.local/a.jpg",
		},
		{
			name: "bare filename without base is an error",
			ref:  "face-123.jpg", base: "",
			wantErr: true,
		},
		{
			name: "empty reference is an error",
			ref:  "", base: base,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePhotoURL(tt.ref, tt.base)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolvePhotoURL(%q, %q) = %q, want error", tt.ref, tt.base, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolvePhotoURL(%q, %q): %v", tt.ref, tt.base, err)
			}
			if got != tt.want {
				t.Errorf("resolvePhotoURL(%q, %q) = %q, want %q", tt.ref, tt.base, got, tt.want)
			}
		})
	}
}

func contains(raw []byte, sub string) bool {
	return strings.Contains(string(raw), sub)
}

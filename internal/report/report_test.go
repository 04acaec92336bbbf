package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

const sampleReport = `{
  "patient_data": {
    "patient_name": "John Doe",
    "date": "",
    "weight": "",
    "incident": "",
    "age": "45",
    "gender": "male",
    "dob": "",
    "poc": "",
    "priority": "",
    "medical": true,
    "trauma": false,
    "cardiac": true,
    "firstaid": false,
    "chief_complaint": "chest pain and shortness of breath",
    "noi_moi": "",
    "ss": "",
    "vitals": [
      {"time": "", "loc": "", "pulse": "88", "bp": "140/90", "rr": "", "o2sat": "", "bgl": "", "pain": ""}
    ],
    "loc_no": false,
    "loc_yes": false,
    "loc_minutes": "",
    "medications": [
      {"time": "", "medication": "aspirin 325 mg", "route": "orally", "response": ""}
    ],
    "patient_signature": "",
    "patient_sig_date": "",
    "witness_signature": "",
    "witness_sig_date": "",
    "receiving_signature": "",
    "receiving_date": "",
    "ems_provider_signature": "",
    "ems_provider_date": "",
    "hospital_ed": true,
    "als_medical": false,
    "als_ground": false,
    "bls": false,
    "als_air": false,
    "other_transfer": false,
    "other_specify": ""
  },
  "abc_assessment": {
    "airway": "Patent",
    "breathing": "",
    "circulation": "Radial",
    "gcsEye": 4,
    "gcsVerbal": 5,
    "gcsMotor": 6
  },
  "patient_signs": {
    "speech": "Coherent",
    "skin": "Moist / Clammy",
    "color": "Pale",
    "respiratory": "",
    "pulse": "Normal",
    "pupils": ""
  }
}`

// decodeValue decodes JSON the way the repair routine does.
func decodeValue(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestExtractionPrompt(t *testing.T) {
	if !strings.HasPrefix(ExtractionPrompt, "\nYou are a medical data extraction assistant.") {
		t.Errorf("prompt has unexpected start: %q", ExtractionPrompt[:60])
	}
	if !strings.HasSuffix(ExtractionPrompt, "TEXT:\n") {
		t.Errorf("prompt must end with TEXT:\\n, got %q", ExtractionPrompt[len(ExtractionPrompt)-20:])
	}

	for _, want := range []string{
		`"Advanced Airway"`, `"Canula"`, `"Carotid"`, "gcsMotor: 1–6",
		`"Moist / Clammy"`, `"Flushed / Red"`, `"Weak/Slow"`, `"Unequal"`,
		"ems_provider_signature", "other_specify", "Preserve units exactly",
	} {
		if !strings.Contains(ExtractionPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	text := "BP 140/90, pulse 88."
	got := BuildPrompt(text)
	if got != ExtractionPrompt+text {
		t.Error("BuildPrompt must be plain concatenation")
	}
	if !strings.HasSuffix(got, "TEXT:\n"+text) {
		t.Errorf("narrative should directly follow TEXT:\\n")
	}
}

func TestSchemaIsValidJSON(t *testing.T) {
	var doc map[string]any
	if err := json.Unmarshal(Schema(), &doc); err != nil {
		t.Fatalf("schema.json is not valid JSON: %v", err)
	}
	if _, err := compiled(); err != nil {
		t.Fatalf("schema does not compile: %v", err)
	}
}

func TestValidate_Conforming(t *testing.T) {
	if issues := Validate(decodeValue(t, sampleReport)); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidate_MissingValues(t *testing.T) {
	v := decodeValue(t, sampleReport).(map[string]any)
	abc := v["abc_assessment"].(map[string]any)
	abc["gcsEye"] = nil
	abc["gcsVerbal"] = ""
	abc["airway"] = ""

	if issues := Validate(v); len(issues) != 0 {
		t.Errorf("null and empty-string placeholders should conform, got %v", issues)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(v map[string]any)
		wantPath string
	}{
		{
			name: "airway outside enum",
			mutate: func(v map[string]any) {
				v["abc_assessment"].(map[string]any)["airway"] = "Intubated"
			},
			wantPath: "/abc_assessment/airway",
		},
		{
			name: "GCS eye out of range",
			mutate: func(v map[string]any) {
				v["abc_assessment"].(map[string]any)["gcsEye"] = json.Number("7")
			},
			wantPath: "/abc_assessment/gcsEye",
		},
		{
			name: "skin spelled differently",
			mutate: func(v map[string]any) {
				v["patient_signs"].(map[string]any)["skin"] = "Clammy"
			},
			wantPath: "/patient_signs/skin",
		},
		{
			name: "boolean as string",
			mutate: func(v map[string]any) {
				v["patient_data"].(map[string]any)["medical"] = "yes"
			},
			wantPath: "/patient_data/medical",
		},
		{
			name: "vital field as number",
			mutate: func(v map[string]any) {
				vitals := v["patient_data"].(map[string]any)["vitals"].([]any)
				vitals[0].(map[string]any)["pulse"] = json.Number("88")
			},
			wantPath: "/patient_data/vitals/0/pulse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := decodeValue(t, sampleReport).(map[string]any)
			tt.mutate(v)

			issues := Validate(v)
			if len(issues) != 1 {
				t.Fatalf("expected exactly 1 issue, got %d: %v", len(issues), issues)
			}
			if issues[0].Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", issues[0].Path, tt.wantPath)
			}
			if issues[0].Message == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	v := decodeValue(t, sampleReport).(map[string]any)
	v["abc_assessment"].(map[string]any)["airway"] = "Intubated"

	before, _ := json.Marshal(v)
	_ = Validate(v)
	after, _ := json.Marshal(v)

	if !bytes.Equal(before, after) {
		t.Error("Validate modified its input")
	}
}

func TestValidate_NonObject(t *testing.T) {
	for _, v := range []any{nil, "text", []any{}, json.Number("1")} {
		if issues := Validate(v); len(issues) == 0 {
			t.Errorf("Validate(%#v) should report an issue", v)
		}
	}
}

func TestValidate_MissingSection(t *testing.T) {
	issues := Validate(map[string]any{"patient_data": map[string]any{}})
	if len(issues) == 0 {
		t.Fatal("expected issue for missing sections")
	}
	if issues[0].Path != "" {
		t.Errorf("missing sections should be reported at the root, got %q", issues[0].Path)
	}
	if !strings.Contains(issues[0].String(), "/: ") {
		t.Errorf("root issue String() = %q", issues[0].String())
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"off", "warn", "strict"} {
		if !ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	if ValidMode("loud") {
		t.Error("ValidMode(loud) = true")
	}
}

func TestDecode(t *testing.T) {
	r, err := Decode(decodeValue(t, sampleReport))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if r.PatientData.PatientName != "John Doe" {
		t.Errorf("PatientName = %q", r.PatientData.PatientName)
	}
	if len(r.PatientData.Vitals) != 1 || r.PatientData.Vitals[0].BP != "140/90" {
		t.Errorf("Vitals = %+v", r.PatientData.Vitals)
	}
	if !r.PatientData.HospitalED {
		t.Error("HospitalED = false")
	}
	total, ok := r.ABCAssessment.GCSTotal()
	if !ok || total != 15 {
		t.Errorf("GCSTotal() = %d, %v, want 15, true", total, ok)
	}
}

func TestDecode_LenientScalars(t *testing.T) {
	v := decodeValue(t, `{
		"patient_data": {"age": 45, "weight": 80.5, "vitals": [{"pulse": 88}]},
		"abc_assessment": {"gcsEye": "3", "gcsVerbal": "", "gcsMotor": null}
	}`)

	r, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if r.PatientData.Age != "45" {
		t.Errorf("Age = %q, want 45", r.PatientData.Age)
	}
	if r.PatientData.Weight != "80.5" {
		t.Errorf("Weight = %q, want 80.5", r.PatientData.Weight)
	}
	if r.PatientData.Vitals[0].Pulse != "88" {
		t.Errorf("Pulse = %q, want 88", r.PatientData.Vitals[0].Pulse)
	}
	if !r.ABCAssessment.GCSEye.Valid || r.ABCAssessment.GCSEye.Value != 3 {
		t.Errorf("GCSEye = %+v", r.ABCAssessment.GCSEye)
	}
	if r.ABCAssessment.GCSVerbal.Valid || r.ABCAssessment.GCSMotor.Valid {
		t.Error("empty and null GCS should be invalid")
	}
	if _, ok := r.ABCAssessment.GCSTotal(); ok {
		t.Error("GCSTotal should be unavailable with missing components")
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Error("Decode(nil) should fail")
	}
	if _, err := Decode([]any{}); err == nil {
		t.Error("Decode(array) should fail")
	}
	v := decodeValue(t, `{"abc_assessment": {"gcsEye": "four"}}`)
	if _, err := Decode(v); err == nil {
		t.Error("Decode should fail for non-numeric GCS")
	}
}

func TestGCSMarshal(t *testing.T) {
	b, _ := json.Marshal(ABCAssessment{GCSEye: GCS{Value: 4, Valid: true}})
	if !strings.Contains(string(b), `"gcsEye":4`) || !strings.Contains(string(b), `"gcsVerbal":null`) {
		t.Errorf("marshal = %s", b)
	}
}

func TestSummary(t *testing.T) {
	r, err := Decode(decodeValue(t, sampleReport))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	s := r.Summary()
	for _, want := range []string{
		"Patient:    John Doe (45, male)",
		"Complaint:  chest pain and shortness of breath",
		"Category:   medical, cardiac",
		"BP=140/90",
		"pulse=88",
		"Medication: aspirin 325 mg route=orally",
		"GCS=15 (E4 V5 M6)",
		"skin=Moist / Clammy",
		"Transport:  hospital ED",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestSummary_Empty(t *testing.T) {
	s := (&Report{}).Summary()
	if !strings.HasPrefix(s, "Patient:    (unknown patient)") {
		t.Errorf("Summary() = %q", s)
	}
}

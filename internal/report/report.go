package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Report mirrors the object the extraction prompt asks the model for.
// It is a read-only view for summaries and tests. HTTP responses carry the
// model's value as-is.
type Report struct {
	PatientData   PatientData   `json:"patient_data"`
	ABCAssessment ABCAssessment `json:"abc_assessment"`
	PatientSigns  PatientSigns  `json:"patient_signs"`
}

// PatientData is the demographic, narrative, vitals and transfer section.
type PatientData struct {
	PatientName Text `json:"patient_name"`
	Date        Text `json:"date"`
	Weight      Text `json:"weight"`
	Incident    Text `json:"incident"`
	Age         Text `json:"age"`
	Gender      Text `json:"gender"`
	DOB         Text `json:"dob"`
	POC         Text `json:"poc"`
	Priority    Text `json:"priority"`

	Medical  bool `json:"medical"`
	Trauma   bool `json:"trauma"`
	Cardiac  bool `json:"cardiac"`
	FirstAid bool `json:"firstaid"`

	ChiefComplaint Text `json:"chief_complaint"`
	NOIMOI         Text `json:"noi_moi"`
	SS             Text `json:"ss"`

	Vitals []Vital `json:"vitals"`

	LOCNo      bool `json:"loc_no"`
	LOCYes     bool `json:"loc_yes"`
	LOCMinutes Text `json:"loc_minutes"`

	Medications []Medication `json:"medications"`

	PatientSignature     Text `json:"patient_signature"`
	PatientSigDate       Text `json:"patient_sig_date"`
	WitnessSignature     Text `json:"witness_signature"`
	WitnessSigDate       Text `json:"witness_sig_date"`
	ReceivingSignature   Text `json:"receiving_signature"`
	ReceivingDate        Text `json:"receiving_date"`
	EMSProviderSignature Text `json:"ems_provider_signature"`
	EMSProviderDate      Text `json:"ems_provider_date"`

	HospitalED    bool `json:"hospital_ed"`
	ALSMedical    bool `json:"als_medical"`
	ALSGround     bool `json:"als_ground"`
	BLS           bool `json:"bls"`
	ALSAir        bool `json:"als_air"`
	OtherTransfer bool `json:"other_transfer"`
	OtherSpecify  Text `json:"other_specify"`
}

// Vital is one set of vital signs. Units are kept as written ("140/90", "94%").
type Vital struct {
	Time  Text `json:"time"`
	LOC   Text `json:"loc"`
	Pulse Text `json:"pulse"`
	BP    Text `json:"bp"`
	RR    Text `json:"rr"`
	O2Sat Text `json:"o2sat"`
	BGL   Text `json:"bgl"`
	Pain  Text `json:"pain"`
}

// Medication is one administered medication.
type Medication struct {
	Time       Text `json:"time"`
	Medication Text `json:"medication"`
	Route      Text `json:"route"`
	Response   Text `json:"response"`
}

// ABCAssessment is the airway/breathing/circulation and GCS section.
type ABCAssessment struct {
	Airway      Text `json:"airway"`
	Breathing   Text `json:"breathing"`
	Circulation Text `json:"circulation"`
	GCSEye      GCS  `json:"gcsEye"`
	GCSVerbal   GCS  `json:"gcsVerbal"`
	GCSMotor    GCS  `json:"gcsMotor"`
}

// GCSTotal returns the summed Glasgow Coma Scale and whether all three
// components were present.
func (a ABCAssessment) GCSTotal() (int, bool) {
	if !a.GCSEye.Valid || !a.GCSVerbal.Valid || !a.GCSMotor.Valid {
		return 0, false
	}
	return a.GCSEye.Value + a.GCSVerbal.Value + a.GCSMotor.Value, true
}

// PatientSigns is the observed-signs section.
type PatientSigns struct {
	Speech      Text `json:"speech"`
	Skin        Text `json:"skin"`
	Color       Text `json:"color"`
	Respiratory Text `json:"respiratory"`
	Pulse       Text `json:"pulse"`
	Pupils      Text `json:"pupils"`
}

// Text is a string field that also accepts JSON numbers and booleans,
// which models sometimes emit for fields like age or weight.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("cannot use %s as text", data)
	default:
		*t = Text(data)
	}
	return nil
}

// GCS is a Glasgow Coma Scale component. Valid is false for null, "" or
// a missing field.
type GCS struct {
	Value int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *GCS) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*g = GCS{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid GCS value %s", data)
	}
	*g = GCS{Value: n, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler. Missing values encode as null.
func (g GCS) MarshalJSON() ([]byte, error) {
	if !g.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(g.Value)), nil
}

func (g GCS) String() string {
	if !g.Valid {
		return "-"
	}
	return strconv.Itoa(g.Value)
}

// Decode converts a repaired JSON value into a typed Report.
func Decode(value any) (*Report, error) {
	if value == nil {
		return nil, fmt.Errorf("no report value")
	}
	if _, ok := value.(map[string]any); !ok {
		return nil, fmt.Errorf("report must be a JSON object, got %T", value)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report value: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Summary renders a short human-readable digest of the report.
func (r *Report) Summary() string {
	var b strings.Builder
	pd := r.PatientData

	name := string(pd.PatientName)
	if name == "" {
		name = "(unknown patient)"
	}
	fmt.Fprintf(&b, "Patient:    %s", name)
	if details := joinNonEmpty(", ", string(pd.Age), string(pd.Gender)); details != "" {
		fmt.Fprintf(&b, " (%s)", details)
	}
	b.WriteString("\n")

	if pd.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Complaint:  %s\n", pd.ChiefComplaint)
	}
	if cats := pd.categories(); len(cats) > 0 {
		fmt.Fprintf(&b, "Category:   %s\n", strings.Join(cats, ", "))
	}

	for i, v := range pd.Vitals {
		fmt.Fprintf(&b, "Vitals %d:   %s\n", i+1, joinNonEmpty(" ",
			labeled("time", v.Time), labeled("BP", v.BP), labeled("pulse", v.Pulse),
			labeled("RR", v.RR), labeled("SpO2", v.O2Sat), labeled("BGL", v.BGL),
			labeled("pain", v.Pain), labeled("LOC", v.LOC)))
	}
	for _, m := range pd.Medications {
		fmt.Fprintf(&b, "Medication: %s\n", joinNonEmpty(" ",
			string(m.Medication), labeled("route", m.Route), labeled("at", m.Time),
			labeled("response", m.Response)))
	}

	abc := r.ABCAssessment
	abcLine := joinNonEmpty(" ", labeled("airway", abc.Airway), labeled("breathing", abc.Breathing),
		labeled("circulation", abc.Circulation))
	if total, ok := abc.GCSTotal(); ok {
		abcLine = joinNonEmpty(" ", abcLine, fmt.Sprintf("GCS=%d (E%s V%s M%s)",
			total, abc.GCSEye, abc.GCSVerbal, abc.GCSMotor))
	}
	if abcLine != "" {
		fmt.Fprintf(&b, "ABC:        %s\n", abcLine)
	}

	ps := r.PatientSigns
	if signs := joinNonEmpty(" ", labeled("speech", ps.Speech), labeled("skin", ps.Skin),
		labeled("color", ps.Color), labeled("resp", ps.Respiratory), labeled("pulse", ps.Pulse),
		labeled("pupils", ps.Pupils)); signs != "" {
		fmt.Fprintf(&b, "Signs:      %s\n", signs)
	}

	if dest := pd.transport(); dest != "" {
		fmt.Fprintf(&b, "Transport:  %s\n", dest)
	}

	return b.String()
}

func (pd PatientData) categories() []string {
	var cats []string
	if pd.Medical {
		cats = append(cats, "medical")
	}
	if pd.Trauma {
		cats = append(cats, "trauma")
	}
	if pd.Cardiac {
		cats = append(cats, "cardiac")
	}
	if pd.FirstAid {
		cats = append(cats, "first aid")
	}
	return cats
}

func (pd PatientData) transport() string {
	var dests []string
	if pd.HospitalED {
		dests = append(dests, "hospital ED")
	}
	if pd.ALSMedical {
		dests = append(dests, "ALS medical")
	}
	if pd.ALSGround {
		dests = append(dests, "ALS ground")
	}
	if pd.BLS {
		dests = append(dests, "BLS")
	}
	if pd.ALSAir {
		dests = append(dests, "ALS air")
	}
	if pd.OtherTransfer {
		dests = append(dests, joinNonEmpty(": ", "other", string(pd.OtherSpecify)))
	}
	return strings.Join(dests, ", ")
}

func labeled(label string, v Text) string {
	if v == "" {
		return ""
	}
	return label + "=" + string(v)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

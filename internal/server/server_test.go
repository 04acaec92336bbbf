package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/pcr/internal/extract"
	"github.com/jackzampolin/pcr/internal/metrics"
	"github.com/jackzampolin/pcr/internal/providers"
	"github.com/jackzampolin/pcr/internal/report"
)

const demoReply = `Here is the report:
{
  'patient_data': {
    'patient_name': 'John Doe', 'age': '45', 'gender': 'male',
    'chief_complaint': 'chest pain',
    'vitals': [{'bp': '140/90', 'pulse': '88',},],
  },
  'abc_assessment': {'gcsEye': 4, 'gcsVerbal': 5, 'gcsMotor': 6},
  'patient_signs': {},
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	srv     *Server
	mock    *providers.MockClient
	metrics *metrics.Store
}

func newTestServer(t *testing.T, reply string, opts extract.Options) *testEnv {
	t.Helper()

	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.ResponseText = reply

	registry := providers.NewRegistry()
	registry.SetLogger(quietLogger())
	registry.RegisterLLM("local", mock)

	store := metrics.NewStore(100)
	opts.Logger = quietLogger()
	opts.Metrics = metrics.NewRecorder(store)
	srv, err := New(Config{
		Registry:  registry,
		Extractor: extract.NewHolder(extract.New(mock, opts)),
		Metrics:   store,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{srv: srv, mock: mock, metrics: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestReportCreate_ExtractsDemoNarrative(t *testing.T) {
	env := newTestServer(t, demoReply, extract.Options{})

	rec := env.do(t, "POST", "/report_create", `{"text": "45 year old male John Doe. BP 140/90, pulse 88."}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Repair-Status"); got != "ok" {
		t.Errorf("X-Repair-Status = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID")
	}
	if rec.Header().Get("X-Schema-Issues") != "" {
		t.Error("X-Schema-Issues should be absent when validation is off")
	}

	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, err := report.Decode(value)
	if err != nil {
		t.Fatalf("report.Decode: %v", err)
	}
	if len(r.PatientData.Vitals) != 1 || r.PatientData.Vitals[0].BP != "140/90" {
		t.Errorf("vitals = %+v", r.PatientData.Vitals)
	}
	if total, ok := r.ABCAssessment.GCSTotal(); !ok || total != 15 {
		t.Errorf("GCS total = %d, %v", total, ok)
	}

	req := env.mock.LastRequest()
	if !strings.HasSuffix(req.Messages[0].Content, "BP 140/90, pulse 88.") {
		t.Error("narrative should be appended to the prompt")
	}
	if env.mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", env.mock.RequestCount())
	}
}

func TestReportCreate_Null(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		status string
	}{
		{"prose", "Sorry, no report here.", "parse_error"},
		{"empty", "", "empty_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestServer(t, tt.reply, extract.Options{})

			rec := env.do(t, "POST", "/report_create", `{"text": ""}`, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if strings.TrimSpace(rec.Body.String()) != "null" {
				t.Errorf("body = %q, want null", rec.Body.String())
			}
			if got := rec.Header().Get("X-Repair-Status"); got != tt.status {
				t.Errorf("X-Repair-Status = %q, want %q", got, tt.status)
			}
		})
	}
}

func TestReportCreate_PreservesNumbers(t *testing.T) {
	env := newTestServer(t, `{"age": 45, "weight": 81.50, "big": 12345678901234567890}`, extract.Options{})

	rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, nil)
	body := strings.TrimSpace(rec.Body.String())
	if body != `{"age":45,"big":12345678901234567890,"weight":81.50}` {
		t.Errorf("body = %s", body)
	}
}

func TestReportCreate_BadRequest(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{})

	for _, body := range []string{``, `not json`, `{"text": 42}`, `{"other": "x"}`, `[]`} {
		rec := env.do(t, "POST", "/report_create", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid request body") {
			t.Errorf("body %q: response = %s", body, rec.Body)
		}
	}
	if env.mock.RequestCount() != 0 {
		t.Error("model must not be called for bad requests")
	}
}

func TestReportCreate_RequestIDPassthrough(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{})

	rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, map[string]string{"X-Request-ID": "abc-123"})
	if rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("X-Request-ID = %q", rec.Header().Get("X-Request-ID"))
	}
	if env.mock.LastRequest().RequestID != "abc-123" {
		t.Error("request ID should reach the provider")
	}
}

func TestReportCreate_ProviderError(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{})
	env.mock.ShouldFail = true

	rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var resp struct {
		Error    string `json:"error"`
		Type     string `json:"type"`
		Provider string `json:"provider"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != "provider_error" || resp.Provider != "mock" || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
	if env.mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (no retry)", env.mock.RequestCount())
	}
}

func TestReportCreate_ProviderTimeout(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{Timeout: 10 * time.Millisecond})
	env.mock.Latency = time.Second

	rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, nil)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"type":"provider_timeout"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestReportCreate_Validation(t *testing.T) {
	reply := `{"patient_data": {}, "abc_assessment": {"airway": "Intubated"}, "patient_signs": {}}`

	t.Run("warn", func(t *testing.T) {
		env := newTestServer(t, reply, extract.Options{Validation: report.ModeWarn})
		rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Header().Get("X-Schema-Issues") != "1" {
			t.Errorf("X-Schema-Issues = %q, want 1", rec.Header().Get("X-Schema-Issues"))
		}
		if !strings.Contains(rec.Body.String(), `"airway":"Intubated"`) {
			t.Errorf("body should be untouched: %s", rec.Body)
		}
	})

	t.Run("strict", func(t *testing.T) {
		env := newTestServer(t, reply, extract.Options{Validation: report.ModeStrict})
		rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "/abc_assessment/airway") {
			t.Errorf("body = %s", rec.Body)
		}
	})

	t.Run("strict conforming", func(t *testing.T) {
		env := newTestServer(t, `{"patient_data": {}, "abc_assessment": {}, "patient_signs": {}}`, extract.Options{Validation: report.ModeStrict})
		rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, nil)
		if rec.Code != http.StatusOK || rec.Header().Get("X-Schema-Issues") != "0" {
			t.Errorf("status = %d, issues = %q", rec.Code, rec.Header().Get("X-Schema-Issues"))
		}
	})
}

func TestReportCreate_NoClient(t *testing.T) {
	srv, err := New(Config{
		Registry:  providers.NewRegistry(),
		Extractor: extract.NewHolder(extract.New(nil, extract.Options{})),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/report_create", strings.NewReader(`{"text":"x"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", rec.Code)
	}
}

func TestReportCreate_MethodNotAllowed(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{})
	rec := env.do(t, "GET", "/report_create", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealthReadyStatus(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{Model: "canned", Validation: report.ModeWarn})

	rec := env.do(t, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}

	rec = env.do(t, "GET", "/ready", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"llm":"mock"`) {
		t.Errorf("ready = %d %s", rec.Code, rec.Body)
	}

	rec = env.do(t, "GET", "/status", "", nil)
	var status struct {
		Server    string `json:"server"`
		Providers struct {
			LLM []string `json:"llm"`
		} `json:"providers"`
		Extraction struct {
			Provider   string `json:"provider"`
			Model      string `json:"model"`
			Validation string `json:"validation"`
		} `json:"extraction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Server != "running" || len(status.Providers.LLM) != 1 || status.Providers.LLM[0] != "local" {
		t.Errorf("status = %+v", status)
	}
	if status.Extraction.Provider != "mock" || status.Extraction.Model != "canned" || status.Extraction.Validation != "warn" {
		t.Errorf("extraction = %+v", status.Extraction)
	}
}

func TestSwagger(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{})

	rec := env.do(t, "GET", "/swagger.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("swagger.json is not valid JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/report_create"]; !ok {
		t.Error("expected /report_create in swagger paths")
	}

	rec = env.do(t, "GET", "/swagger", "", nil)
	if !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Error("expected swagger UI page")
	}
}

func TestCORS(t *testing.T) {
	env := newTestServer(t, `{}`, extract.Options{})

	t.Run("preflight", func(t *testing.T) {
		rec := env.do(t, "OPTIONS", "/report_create", "", map[string]string{
			"Origin":                         "http://localhost:3000",
			"Access-Control-Request-Method":  "POST",
			"Access-Control-Request-Headers": "content-type",
		})
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		h := rec.Header()
		if h.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Errorf("Allow-Origin = %q", h.Get("Access-Control-Allow-Origin"))
		}
		if h.Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("expected credentials allowed")
		}
		if !strings.Contains(h.Get("Access-Control-Allow-Methods"), "POST") {
			t.Errorf("Allow-Methods = %q", h.Get("Access-Control-Allow-Methods"))
		}
		if h.Get("Access-Control-Allow-Headers") != "content-type" {
			t.Errorf("Allow-Headers = %q", h.Get("Access-Control-Allow-Headers"))
		}
		if env.mock.RequestCount() != 0 {
			t.Error("preflight must not reach the handler")
		}
	})

	t.Run("simple request", func(t *testing.T) {
		rec := env.do(t, "POST", "/report_create", `{"text": "x"}`, map[string]string{"Origin": "https://example.org"})
		if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.org" {
			t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), "X-Repair-Status") {
			t.Error("diagnostic headers should be exposed")
		}
	})
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	p := newCORSPolicy([]string{"https://app.example.org/"})
	if !p.allows("https://app.example.org") {
		t.Error("listed origin should be allowed")
	}
	if p.allows("https://evil.example.org") {
		t.Error("unlisted origin should be rejected")
	}
	if !newCORSPolicy(nil).allows("anything") {
		t.Error("empty list should allow any origin")
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Config{Logger: quietLogger()}); err == nil {
		t.Error("expected error without config manager or registry")
	}
}

func TestMetrics(t *testing.T) {
	env := newTestServer(t, `{"patient_data": {}}`, extract.Options{})

	env.do(t, "POST", "/report_create", `{"text": "a"}`, map[string]string{"X-Request-ID": "first"})
	env.mock.ResponseText = "not json"
	env.do(t, "POST", "/report_create", `{"text": "b"}`, nil)
	env.mock.ShouldFail = true
	env.do(t, "POST", "/report_create", `{"text": "c"}`, nil)
	env.do(t, "POST", "/report_create", `not json`, nil)

	if env.metrics.Len() != 3 {
		t.Fatalf("recorded %d metrics, want 3 (bad requests are not recorded)", env.metrics.Len())
	}

	t.Run("list", func(t *testing.T) {
		rec := env.do(t, "GET", "/metrics?repair_status=ok", "", nil)
		var resp struct {
			Metrics []metrics.Metric `json:"metrics"`
			Count   int              `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Count != 1 || resp.Metrics[0].RequestID != "first" {
			t.Errorf("metrics = %+v", resp)
		}

		rec = env.do(t, "GET", "/metrics?success=false&limit=5", "", nil)
		if !strings.Contains(rec.Body.String(), `"error_type":"mock_failure"`) {
			t.Errorf("failed calls = %s", rec.Body)
		}
	})

	t.Run("summary", func(t *testing.T) {
		rec := env.do(t, "GET", "/metrics/summary", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp struct {
			Window   int   `json:"window"`
			Recorded int64 `json:"recorded"`
			Summary  struct {
				Count        int            `json:"count"`
				ErrorCount   int            `json:"error_count"`
				RepairStatus map[string]int `json:"repair_status"`
			} `json:"summary"`
			ByProvider map[string]json.RawMessage `json:"by_provider"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Window != 100 || resp.Recorded != 3 {
			t.Errorf("window/recorded = %d/%d", resp.Window, resp.Recorded)
		}
		if resp.Summary.Count != 3 || resp.Summary.ErrorCount != 1 {
			t.Errorf("summary = %+v", resp.Summary)
		}
		if resp.Summary.RepairStatus["ok"] != 1 || resp.Summary.RepairStatus["parse_error"] != 1 {
			t.Errorf("repair_status = %v", resp.Summary.RepairStatus)
		}
		if _, ok := resp.ByProvider["mock"]; !ok {
			t.Errorf("by_provider = %v", resp.ByProvider)
		}
	})
}

func TestMetrics_Off(t *testing.T) {
	srv, err := New(Config{
		Registry:  providers.NewRegistry(),
		Extractor: extract.NewHolder(extract.New(nil, extract.Options{})),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/metrics", "/metrics/summary"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", path, rec.Code)
		}
	}
}

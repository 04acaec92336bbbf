package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/svcctx"
	"github.com/jackzampolin/pcr/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	LLM    string `json:"llm,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Liveness check
//	@Description	Returns ok while the HTTP server is responding
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns ok when an LLM client is configured
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ex := svcctx.ExtractorFrom(r.Context())
	if ex == nil || !ex.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", LLM: "not_configured"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", LLM: ex.ProviderName()})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (LLM client configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if wait > 0 {
				attempts := uint(wait/time.Second) + 1
				if err := client.WaitReady(cmd.Context(), attempts, time.Second); err != nil {
					return fmt.Errorf("server not ready after %s: %w", wait, err)
				}
			}
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "Poll until ready or the duration elapses")
	return cmd
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string           `json:"server"`
	Version    string           `json:"version"`
	ConfigFile string           `json:"config_file,omitempty"`
	Providers  ProvidersStatus  `json:"providers"`
	Extraction ExtractionStatus `json:"extraction"`
}

// ProvidersStatus shows registered LLM providers.
type ProvidersStatus struct {
	LLM []string `json:"llm"`
}

// ExtractionStatus shows which client serves /report_create.
type ExtractionStatus struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Validation string `json:"validation"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Detailed status
//	@Description	Server version, registered providers and extraction settings
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:    "running",
		Version:   version.GitRelease,
		Providers: ProvidersStatus{LLM: []string{}},
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
	}

	if ex := svcctx.ExtractorFrom(ctx); ex != nil {
		resp.Extraction = ExtractionStatus{
			Provider:   ex.ProviderName(),
			Model:      ex.Model(),
			Validation: ex.Validation(),
		}
	}

	if mgr := svcctx.ConfigFrom(ctx); mgr != nil {
		resp.ConfigFile = mgr.ConfigFileUsed()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/extract"
	"github.com/jackzampolin/pcr/internal/report"
	"github.com/jackzampolin/pcr/internal/svcctx"
)

// Response headers set by POST /report_create.
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderRepairStatus = "X-Repair-Status"
	HeaderSchemaIssues = "X-Schema-Issues"
)

// MaxRequestBytes caps the /report_create request body.
const MaxRequestBytes = 32 << 20

// ReportCreateRequest is the request body for POST /report_create.
type ReportCreateRequest struct {
	Text string `json:"text"`
}

// ProviderErrorResponse is returned when the model call fails.
type ProviderErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	Provider  string `json:"provider,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SchemaIssuesResponse is returned in strict validation mode.
type SchemaIssuesResponse struct {
	Error  string         `json:"error"`
	Issues []report.Issue `json:"issues"`
}

// ReportCreateEndpoint handles POST /report_create.
type ReportCreateEndpoint struct{}

func (e *ReportCreateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/report_create", e.handler
}

func (e *ReportCreateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract a patient care report
//	@Description	Sends the narrative to the LLM with the fixed extraction prompt and returns
//	@Description	the repaired JSON value, or null when the model output could not be repaired.
//	@Tags			reports
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ReportCreateRequest	true	"Narrative text"
//	@Success		200		{object}	object
//	@Header			200		{string}	X-Repair-Status	"ok, empty_input or parse_error"
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	SchemaIssuesResponse
//	@Failure		502		{object}	ProviderErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Failure		504		{object}	ProviderErrorResponse
//	@Router			/report_create [post]
func (e *ReportCreateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := svcctx.LoggerFrom(ctx)

	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, requestID)

	var body struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&body); err != nil || body.Text == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ex := svcctx.ExtractorFrom(ctx)
	if ex == nil {
		writeError(w, http.StatusServiceUnavailable, "no LLM provider configured")
		return
	}

	start := time.Now()
	out, err := ex.Extract(extract.WithRequestID(ctx, requestID), *body.Text)
	if err != nil {
		writeExtractError(w, r, requestID, err)
		return
	}

	status := out.Status()
	w.Header().Set(HeaderRepairStatus, status)

	logger.Info("report extracted",
		"request_id", requestID,
		"repair_status", status,
		"text_bytes", len(*body.Text),
		"duration_ms", time.Since(start).Milliseconds())

	if out.Validated {
		w.Header().Set(HeaderSchemaIssues, strconv.Itoa(len(out.Issues)))
		if len(out.Issues) > 0 && ex.Validation() == report.ModeStrict {
			writeJSON(w, http.StatusUnprocessableEntity, SchemaIssuesResponse{
				Error:  "extracted report does not match the schema",
				Issues: out.Issues,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, out.Value())
}

func writeExtractError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	logger := svcctx.LoggerFrom(r.Context())

	if errors.Is(err, extract.ErrNoClient) {
		writeError(w, http.StatusServiceUnavailable, "no LLM provider configured")
		return
	}

	// Client went away; nobody is listening for a response.
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Info("report request cancelled", "request_id", requestID)
		return
	}

	var perr *extract.ProviderError
	if errors.As(err, &perr) {
		status, typ := http.StatusBadGateway, "provider_error"
		if errors.Is(err, context.DeadlineExceeded) {
			status, typ = http.StatusGatewayTimeout, "provider_timeout"
		}
		logger.Error("provider call failed", "request_id", requestID, "provider", perr.Provider, "error", perr.Err)
		writeJSON(w, status, ProviderErrorResponse{
			Error:     perr.Error(),
			Type:      typ,
			Provider:  perr.Provider,
			RequestID: requestID,
		})
		return
	}

	logger.Error("extraction failed", "request_id", requestID, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (e *ReportCreateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "report-create [text...]",
		Short: "Extract a report from a narrative via the server",
		Long: `Send a free-text narrative to POST /report_create and print the result.

The narrative is read from --file, the positional arguments, or stdin.
Prints null when the model output could not be repaired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := api.ReadInput(file, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			resp, err := client.Do(cmd.Context(), http.MethodPost, "/report_create", ReportCreateRequest{Text: text})
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return err
			}

			var value any
			if err := api.Decode(resp.Body, &value); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "repair status: %s (request %s)\n",
				resp.Header.Get(HeaderRepairStatus), resp.Header.Get(HeaderRequestID))
			if n := resp.Header.Get(HeaderSchemaIssues); n != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "schema issues: %s\n", n)
			}
			return api.Output(value)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read narrative from file (- for stdin)")
	return cmd
}

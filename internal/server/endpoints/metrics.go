package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/metrics"
	"github.com/jackzampolin/pcr/internal/svcctx"
)

// ListMetricsResponse is the response for listing metrics.
type ListMetricsResponse struct {
	Metrics []metrics.Metric `json:"metrics"`
	Count   int              `json:"count"`
}

// MetricsSummaryResponse is the response for GET /metrics/summary.
type MetricsSummaryResponse struct {
	Window     int                               `json:"window"`
	Recorded   int64                             `json:"recorded"`
	Summary    *metrics.Summary                  `json:"summary"`
	Latency    *metrics.DetailedStats            `json:"detailed"`
	ByProvider map[string]*metrics.DetailedStats `json:"by_provider"`
}

func metricsGroup() (string, string) {
	return "metrics", "Extraction call metrics commands"
}

// filterFromQuery builds a metrics filter from query parameters.
func filterFromQuery(q url.Values) metrics.Filter {
	f := metrics.Filter{
		RequestID:    q.Get("request_id"),
		Provider:     q.Get("provider"),
		Model:        q.Get("model"),
		RepairStatus: q.Get("repair_status"),
	}
	if s := q.Get("success"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			f.Success = &b
		}
	}
	return f
}

// ListMetricsEndpoint handles GET /metrics.
type ListMetricsEndpoint struct{}

func (e *ListMetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/metrics", e.handler
}

func (e *ListMetricsEndpoint) RequiresInit() bool { return false }

func (e *ListMetricsEndpoint) Group() (string, string) { return metricsGroup() }

// handler godoc
//
//	@Summary		List metrics
//	@Description	Recent extraction calls, newest first, with optional filtering
//	@Tags			metrics
//	@Produce		json
//	@Param			provider		query		string	false	"Filter by provider"
//	@Param			model			query		string	false	"Filter by model"
//	@Param			repair_status	query		string	false	"Filter by repair status"
//	@Param			success			query		bool	false	"Filter by call success"
//	@Param			limit			query		int		false	"Maximum results (default 100)"
//	@Success		200				{object}	ListMetricsResponse
//	@Failure		503				{object}	ErrorResponse
//	@Router			/metrics [get]
func (e *ListMetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.MetricsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics recording is off")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result := metrics.NewQuery(store).List(filterFromQuery(r.URL.Query()), limit)
	writeJSON(w, http.StatusOK, ListMetricsResponse{
		Metrics: result,
		Count:   len(result),
	})
}

func (e *ListMetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var provider, model, repairStatus string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent extraction calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if provider != "" {
				params.Set("provider", provider)
			}
			if model != "" {
				params.Set("model", model)
			}
			if repairStatus != "" {
				params.Set("repair_status", repairStatus)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}

			client := api.NewClient(getServerURL())
			var resp ListMetricsResponse
			if err := client.Get(cmd.Context(), withQuery("/metrics", params), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&model, "model", "", "Filter by model")
	cmd.Flags().StringVar(&repairStatus, "repair-status", "", "Filter by repair status (ok, empty_input, parse_error)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum results")

	return cmd
}

// MetricsSummaryEndpoint handles GET /metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return false }

func (e *MetricsSummaryEndpoint) Group() (string, string) { return metricsGroup() }

// handler godoc
//
//	@Summary		Metrics summary
//	@Description	Counts, repair outcomes, token usage and latency percentiles over the recorded window
//	@Tags			metrics
//	@Produce		json
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Success		200			{object}	MetricsSummaryResponse
//	@Failure		503			{object}	ErrorResponse
//	@Router			/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.MetricsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics recording is off")
		return
	}

	q := metrics.NewQuery(store)
	f := filterFromQuery(r.URL.Query())

	writeJSON(w, http.StatusOK, MetricsSummaryResponse{
		Window:     store.Capacity(),
		Recorded:   store.Recorded(),
		Summary:    q.GetSummary(f),
		Latency:    q.GetDetailedStats(f),
		ByProvider: q.StatsByProvider(f),
	})
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var provider, model string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize recent extraction calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if provider != "" {
				params.Set("provider", provider)
			}
			if model != "" {
				params.Set("model", model)
			}

			client := api.NewClient(getServerURL())
			var resp MetricsSummaryResponse
			if err := client.Get(cmd.Context(), withQuery("/metrics/summary", params), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&model, "model", "", "Filter by model")

	return cmd
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return fmt.Sprintf("%s?%s", path, params.Encode())
}

package endpoints

import (
	"github.com/jackzampolin/pcr/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Extraction
		&ReportCreateEndpoint{},

		// Metrics
		&ListMetricsEndpoint{},
		&MetricsSummaryEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}

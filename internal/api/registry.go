package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require an LLM client.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running pcr server via HTTP.

These commands require a running server (pcr serve).
Use --server to specify a custom server URL.

Examples:
  pcr api health                          # Check server health
  pcr api ready --wait 30s                # Wait until an LLM client is configured
  pcr api report-create --file note.txt   # Extract a report from a narrative
  pcr api metrics summary                 # Token usage and repair outcomes`,
	}

	groups := map[string]*cobra.Command{}
	for _, ep := range r.endpoints {
		g, ok := ep.(Grouped)
		if !ok {
			apiCmd.AddCommand(ep.Command(getServerURL))
			continue
		}
		name, short := g.Group()
		parent, ok := groups[name]
		if !ok {
			parent = &cobra.Command{Use: name, Short: short}
			groups[name] = parent
			apiCmd.AddCommand(parent)
		}
		parent.AddCommand(ep.Command(getServerURL))
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}

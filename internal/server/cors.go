package server

import (
	"net/http"
	"slices"
	"strings"
)

// Headers browsers may read from cross-origin responses.
var exposedHeaders = strings.Join([]string{"X-Request-ID", "X-Repair-Status", "X-Schema-Issues"}, ", ")

const allowedMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"

// corsPolicy allows listed origins with credentials. "*" matches any origin,
// which is echoed back since credentials forbid a literal "*".
type corsPolicy struct {
	any     bool
	origins []string
}

func newCORSPolicy(origins []string) *corsPolicy {
	if len(origins) == 0 {
		return &corsPolicy{any: true}
	}
	p := &corsPolicy{}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.any = true
		}
		if o != "" {
			p.origins = append(p.origins, o)
		}
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	return p.any || slices.Contains(p.origins, origin)
}

// withCORS applies the CORS policy and answers every OPTIONS request with 204.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy := s.cors.Load()
		origin := r.Header.Get("Origin")
		h := w.Header()

		if origin != "" && policy.allows(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", exposedHeaders)
			h.Add("Vary", "Origin")
		}

		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if origin != "" && policy.allows(origin) {
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			}
			h.Set("Access-Control-Max-Age", "600")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

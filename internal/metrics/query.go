package metrics

import "time"

// Query provides filtered reads over a Store.
type Query struct {
	store *Store
}

// NewQuery creates a new metrics query helper.
func NewQuery(store *Store) *Query {
	return &Query{store: store}
}

// Filter specifies query filters. Zero fields match anything.
type Filter struct {
	RequestID    string
	Provider     string
	Model        string
	RepairStatus string
	After        time.Time
	Before       time.Time
	Success      *bool // nil = any, true = success only, false = errors only
}

func (f Filter) matches(m Metric) bool {
	if f.RequestID != "" && m.RequestID != f.RequestID {
		return false
	}
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if f.Model != "" && m.Model != f.Model {
		return false
	}
	if f.RepairStatus != "" && m.RepairStatus != f.RepairStatus {
		return false
	}
	if !f.After.IsZero() && !m.CreatedAt.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !m.CreatedAt.Before(f.Before) {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	return true
}

// List returns metrics matching the filter, newest first.
// A limit <= 0 returns all matches.
func (q *Query) List(f Filter, limit int) []Metric {
	if q == nil || q.store == nil {
		return []Metric{}
	}

	out := []Metric{}
	for _, m := range q.store.snapshot() {
		if !f.matches(m) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

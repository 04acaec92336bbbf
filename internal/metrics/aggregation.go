package metrics

import (
	"sort"
	"time"
)

// Summary provides a summary of metrics for a filter.
type Summary struct {
	Count          int           `json:"count"`
	TotalTokens    int           `json:"total_tokens"`
	TotalTime      time.Duration `json:"total_time"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	AvgTokens      float64       `json:"avg_tokens"`
	AvgTimeSeconds float64       `json:"avg_time_seconds"`

	// Count per repair status; failed model calls are not counted here.
	RepairStatus map[string]int `json:"repair_status"`
}

// GetSummary returns a summary of metrics matching the filter.
func (q *Query) GetSummary(f Filter) *Summary {
	metrics := q.List(f, 0)

	s := &Summary{Count: len(metrics), RepairStatus: map[string]int{}}
	for _, m := range metrics {
		s.TotalTokens += m.TotalTokens
		s.TotalTime += time.Duration(m.TotalSeconds * float64(time.Second))
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		if m.RepairStatus != "" {
			s.RepairStatus[m.RepairStatus]++
		}
	}

	if s.Count > 0 {
		s.AvgTokens = float64(s.TotalTokens) / float64(s.Count)
		s.AvgTimeSeconds = s.TotalTime.Seconds() / float64(s.Count)
	}

	return s
}

// DetailedStats provides latency percentiles and token breakdowns.
type DetailedStats struct {
	// Basic counts
	Count        int `json:"count"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`

	// Latency percentiles (seconds)
	LatencyP50 float64 `json:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95"`
	LatencyP99 float64 `json:"latency_p99"`
	LatencyAvg float64 `json:"latency_avg"`
	LatencyMin float64 `json:"latency_min"`
	LatencyMax float64 `json:"latency_max"`

	// Token stats
	TotalPromptTokens     int `json:"total_prompt_tokens"`
	TotalCompletionTokens int `json:"total_completion_tokens"`
	TotalReasoningTokens  int `json:"total_reasoning_tokens"`
	TotalTokens           int `json:"total_tokens"`

	// Average tokens per call
	AvgPromptTokens     float64 `json:"avg_prompt_tokens"`
	AvgCompletionTokens float64 `json:"avg_completion_tokens"`
	AvgTotalTokens      float64 `json:"avg_total_tokens"`
}

// GetDetailedStats returns detailed statistics for metrics matching the filter.
func (q *Query) GetDetailedStats(f Filter) *DetailedStats {
	return detailedStats(q.List(f, 0))
}

// StatsByProvider returns detailed stats grouped by provider.
func (q *Query) StatsByProvider(f Filter) map[string]*DetailedStats {
	byProvider := make(map[string][]Metric)
	for _, m := range q.List(f, 0) {
		byProvider[m.Provider] = append(byProvider[m.Provider], m)
	}

	result := make(map[string]*DetailedStats, len(byProvider))
	for provider, ms := range byProvider {
		result[provider] = detailedStats(ms)
	}
	return result
}

func detailedStats(metrics []Metric) *DetailedStats {
	stats := &DetailedStats{Count: len(metrics)}
	if len(metrics) == 0 {
		return stats
	}

	// Collect latencies for percentile calculation
	var latencies []float64

	for _, m := range metrics {
		if m.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}

		stats.TotalPromptTokens += m.PromptTokens
		stats.TotalCompletionTokens += m.CompletionTokens
		stats.TotalReasoningTokens += m.ReasoningTokens
		stats.TotalTokens += m.TotalTokens

		if m.TotalSeconds > 0 {
			latencies = append(latencies, m.TotalSeconds)
		}
	}

	count := float64(stats.Count)
	stats.AvgPromptTokens = float64(stats.TotalPromptTokens) / count
	stats.AvgCompletionTokens = float64(stats.TotalCompletionTokens) / count
	stats.AvgTotalTokens = float64(stats.TotalTokens) / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)

		stats.LatencyMin = latencies[0]
		stats.LatencyMax = latencies[len(latencies)-1]

		var sum float64
		for _, l := range latencies {
			sum += l
		}
		stats.LatencyAvg = sum / float64(len(latencies))

		stats.LatencyP50 = percentile(latencies, 50)
		stats.LatencyP95 = percentile(latencies, 95)
		stats.LatencyP99 = percentile(latencies, 99)
	}

	return stats
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

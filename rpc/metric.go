package rpc

import "net/http"

// ResultMetrics mirrors rpc/metric.go's JSONMetrics result shape.
type ResultMetrics struct {
	Metrics map[string]string `json:"metrics"`
}

// handleMetrics answers /metrics?label=name, or every registered label when
// label is omitted, the same optional-label behavior as JSONMetrics.
func handleMetrics(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")

	var labels []string
	if label != "" {
		labels = []string{label}
	} else {
		labels = env.MetricSet.GetAllLabels()
	}

	result := ResultMetrics{Metrics: make(map[string]string)}
	for _, l := range labels {
		if item := env.MetricSet.GetMetrics(l); item != nil {
			result.Metrics[l] = item.JSONString()
		}
	}
	writeJSON(w, http.StatusOK, result)
}

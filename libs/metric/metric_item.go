// Package metric is a tiny named registry of self-describing metric
// snapshots, kept from the teacher repository's libs/metric with
// GetAlllabels renamed to GetAllLabels: each registered subsystem (in this
// node, only the consensus service) owns one MetricItem and renders it to
// JSON on request rather than pushing samples through a shared pipeline.
package metric

// MetricItem is one subsystem's metric snapshot.
type MetricItem interface {
	JSONString() string
}

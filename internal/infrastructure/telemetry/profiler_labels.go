package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelMode      = "mode"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
)

// Reconciliation operations used as profiling label values
const (
	OperationReconcile = "reconcile"
	OperationRevert    = "revert"
	OperationPropose   = "propose"
	OperationEvaluate  = "evaluate"
)

// MaxLabelValueLength caps label values
const MaxLabelValueLength = 128

// highCardinalityLabels never become profile labels
var highCardinalityLabels = map[string]bool{
	"movement_id": true,
	"invoice_id":  true,
	"student_id":  true,
	"request_id":  true,
	"trace_id":    true,
}

// ReconciliationLabels builds the labels of a reconciliation operation
func ReconciliationLabels(operation, mode string) map[string]string {
	labels := map[string]string{ProfilingLabelOperation: operation}
	if mode != "" {
		labels[ProfilingLabelMode] = mode
	}
	return labels
}

// WithProfilingLabels runs fn with Pyroscope labels attached to its goroutine
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels returns sorted key/value pairs with empty and high
// cardinality entries removed
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, sanitizeLabelKey(key), value)
	}
	return pairs
}

func sanitizeLabelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

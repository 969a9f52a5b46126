package load

import (
	"fmt"
	"strings"

	"github.com/cuemby/drover/pkg/types"
)

// Ratio returns load/capacity, or exactly 0 for uncapacitated metrics
// (capacity <= 0). Never NaN or Inf.
func Ratio(nodeLoad, nodeCapacity float64) float64 {
	if nodeCapacity <= 0 {
		return 0
	}
	return nodeLoad / nodeCapacity
}

// MetricRatio returns the metric's load/capacity ratio
func MetricRatio(m types.LoadMetric) float64 {
	return Ratio(m.NodeLoad, m.NodeCapacity)
}

// FormatPercent renders a ratio as a percentage with one decimal place,
// e.g. 0.25 -> "25.0%"
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// IsSystemMetric reports whether the name follows the platform-reserved
// double-underscore convention: literal "__" prefix and suffix, minimum
// length 4, case-sensitive. A naming convention, not a type distinction.
func IsSystemMetric(name string) bool {
	return len(name) >= 4 &&
		strings.HasPrefix(name, "__") &&
		strings.HasSuffix(name, "__")
}

// Validate checks the per-snapshot invariant that metric names are unique
func Validate(info types.LoadInformation) error {
	seen := make(map[string]struct{}, len(info.Metrics))
	for _, m := range info.Metrics {
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("duplicate load metric %q in snapshot for node %s", m.Name, info.NodeID)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

// Summary aggregates one load snapshot for display and metrics export
type Summary struct {
	MetricCount       int
	CapacitatedCount  int
	SystemMetricCount int

	// MaxRatio is the highest load/capacity ratio across capacitated
	// metrics, with MaxRatioMetric naming the metric it came from
	MaxRatio       float64
	MaxRatioMetric string
}

// Summarize computes the snapshot summary
func Summarize(info types.LoadInformation) Summary {
	s := Summary{MetricCount: len(info.Metrics)}
	for _, m := range info.Metrics {
		if IsSystemMetric(m.Name) {
			s.SystemMetricCount++
		}
		if m.NodeCapacity > 0 {
			s.CapacitatedCount++
			if r := MetricRatio(m); r > s.MaxRatio || s.MaxRatioMetric == "" {
				s.MaxRatio = r
				s.MaxRatioMetric = m.Name
			}
		}
	}
	return s
}

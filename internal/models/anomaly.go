package models

import "fmt"

// AnomalyKind classifies a recovered problem
type AnomalyKind int

const (
	// ParseRecoverable marks a skipped token or line during ingestion
	ParseRecoverable AnomalyKind = iota
	// IndexOutOfBounds marks a write addressed outside a field or grid
	IndexOutOfBounds
	// InterpolationFailed marks a slice pixel that fell back to 0
	InterpolationFailed
	// ClampedValue marks a value clamped during normalization
	ClampedValue
)

func (k AnomalyKind) String() string {
	switch k {
	case ParseRecoverable:
		return "parse"
	case IndexOutOfBounds:
		return "index"
	case InterpolationFailed:
		return "interpolation"
	case ClampedValue:
		return "clamped"
	}
	return fmt.Sprintf("anomaly(%d)", int(k))
}

// Anomaly is a problem that was recovered from instead of aborting the
// operation. Parsers and slices collect them so callers can inspect what
// was skipped.
type Anomaly struct {
	// Kind classifies the anomaly
	Kind AnomalyKind

	// Source is the file name or field key involved
	Source string

	// Line is the 1-based input line, or 0 when not applicable
	Line int

	// Message describes what was skipped
	Message string
}

func (a Anomaly) String() string {
	if a.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", a.Kind, a.Source, a.Line, a.Message)
	}
	if a.Source != "" {
		return fmt.Sprintf("%s: %s: %s", a.Kind, a.Source, a.Message)
	}
	return fmt.Sprintf("%s: %s", a.Kind, a.Message)
}

// CountKind returns how many anomalies in list are of kind k
func CountKind(list []Anomaly, k AnomalyKind) int {
	n := 0
	for _, a := range list {
		if a.Kind == k {
			n++
		}
	}
	return n
}

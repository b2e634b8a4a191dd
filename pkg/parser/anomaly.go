package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"scalargrid/internal/models"
)

// recorder collects recovered parse problems and logs each at debug level
type recorder struct {
	list []models.Anomaly
	log  logrus.FieldLogger
}

func (r *recorder) add(kind models.AnomalyKind, source string, line int, format string, args ...any) {
	a := models.Anomaly{
		Kind:    kind,
		Source:  source,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
	r.list = append(r.list, a)
	r.log.WithFields(logrus.Fields{
		"kind":   kind,
		"source": source,
		"line":   line,
	}).Debug(a.Message)
}

func (r *recorder) skipped(source string, line int, tokens []string) {
	for _, tok := range tokens {
		r.add(models.ParseRecoverable, source, line, "skipped token %q", tok)
	}
}

// parseFinite parses a value token. NaN and infinities are rejected like
// any other malformed token.
func parseFinite(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", tok)
	}
	return v, nil
}

func loggerOrDefault(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}

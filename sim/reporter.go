package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Reporter receives diagnostics from partition policies.
// Fatalf signals a contract violation; callers return immediately after it,
// so an implementation that does not panic leaves the policy state unchanged.
type Reporter interface {
	Warnf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// LogReporter reports through logrus. Fatalf logs at error level and panics.
type LogReporter struct {
	Entry *logrus.Entry
}

// NewLogReporter returns a LogReporter tagged with the policy kind.
func NewLogReporter(kind Kind) *LogReporter {
	return &LogReporter{Entry: logrus.WithField("partition", string(kind))}
}

func (r *LogReporter) entry() *logrus.Entry {
	if r == nil || r.Entry == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return r.Entry
}

func (r *LogReporter) Warnf(format string, args ...any) {
	r.entry().Warnf(format, args...)
}

func (r *LogReporter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.entry().Error(msg)
	panic(msg)
}

package autofilter

import (
	"fmt"

	srslog "github.com/RackSec/srslog"
	"github.com/sirupsen/logrus"
)

// SyslogHook mirrors Warn-and-above log records to syslog alongside the
// default stderr logger. It's a logrus.Hook: it taps the same Log var
// every component already writes through, rather than wrapping a request
// pipeline.
type SyslogHook struct {
	writer *srslog.Writer
	tag    string
}

var _ logrus.Hook = &SyslogHook{}

// NewSyslogHook dials a syslog daemon over network (e.g. "udp", "tcp",
// "unix") at address, tagging every message with tag. An empty network
// dials the local syslog daemon.
func NewSyslogHook(network, address, tag string) (*SyslogHook, error) {
	writer, err := srslog.Dial(network, address, srslog.LOG_WARNING, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize syslog: %w", err)
	}
	return &SyslogHook{writer: writer, tag: tag}, nil
}

// Levels restricts this hook to warnings and worse.
func (h *SyslogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

// Fire writes the formatted entry to syslog at the matching priority.
func (h *SyslogHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return h.writer.Crit(line)
	case logrus.ErrorLevel:
		return h.writer.Err(line)
	default:
		return h.writer.Warning(line)
	}
}

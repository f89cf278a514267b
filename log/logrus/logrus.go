// Package logrus adapts a logrus entry to assetcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/assetcache"
)

var _ assetcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l with a "component" field; nil uses the standard logger.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{E: l.WithField("component", "assetcache")}
}

func (l Logger) Debug(msg string, f assetcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f assetcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f assetcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f assetcache.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus' error key.
func (l Logger) with(f assetcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			fields[logrus.ErrorKey] = err
			continue
		}
		fields[k] = v
	}
	return l.E.WithFields(fields)
}

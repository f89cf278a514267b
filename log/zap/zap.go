// Package zap adapts a *zap.Logger to assetcache.Logger.
package zap

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/assetcache"
)

var _ assetcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New wraps l; nil yields a no-op logger.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l}
}

func (z Logger) Debug(msg string, f assetcache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f assetcache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f assetcache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f assetcache.Fields) { z.L.Error(msg, zf(f)...) }

// zf converts fields in key order so output is stable across runs.
func zf(f assetcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case time.Duration:
			out = append(out, zap.Duration(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

// Package engine turns a config.Config into the pieces a cache needs:
// a backend, a codec, a logger and hooks.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/assetcache"
	"github.com/unkn0wn-root/assetcache/backend"
	"github.com/unkn0wn-root/assetcache/backend/bigcache"
	"github.com/unkn0wn-root/assetcache/backend/fsstore"
	"github.com/unkn0wn-root/assetcache/backend/redis"
	"github.com/unkn0wn-root/assetcache/backend/sqlite"
	"github.com/unkn0wn-root/assetcache/codec"
	asynchook "github.com/unkn0wn-root/assetcache/hooks/async"
	"github.com/unkn0wn-root/assetcache/internal/config"
	"github.com/unkn0wn-root/assetcache/keycodec"
	logruslog "github.com/unkn0wn-root/assetcache/log/logrus"
	sloglog "github.com/unkn0wn-root/assetcache/log/slog"
	zaplog "github.com/unkn0wn-root/assetcache/log/zap"
	"github.com/unkn0wn-root/assetcache/sloghooks"
)

// KeyCodec builds the key codec for cfg's namespace and version.
func KeyCodec(cfg config.Config) (*keycodec.Codec, error) {
	return keycodec.New(cfg.Namespace, cfg.Version)
}

// OpenBackend opens the engine cfg.Backend names. The caller owns the
// returned backend until it is handed to assetcache.New.
func OpenBackend(ctx context.Context, cfg config.Config) (backend.Backend, error) {
	b := cfg.Backend
	switch b.Type {
	case config.BackendSQLite:
		return sqlite.Open(ctx, sqlite.Config{Path: b.Path, BusyTimeoutMS: b.BusyTimeoutMS})
	case config.BackendFS:
		return fsstore.Open(fsstore.Config{Dir: b.Dir})
	case config.BackendRedis:
		kc, err := KeyCodec(cfg)
		if err != nil {
			return nil, err
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     b.Redis.Addr,
			Password: b.Redis.Password,
			DB:       b.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis backend: ping %s: %w", b.Redis.Addr, err)
		}
		return redis.New(redis.Config{Client: client, CloseClient: true, Prefix: kc.Prefix()})
	case config.BackendMemory:
		return bigcache.New(ctx, bigcache.Config{HardMaxCacheSizeMB: b.Memory.HardMaxCacheSizeMB})
	}
	return nil, fmt.Errorf("engine: unknown backend type %q", b.Type)
}

// NewCodec returns the payload serializer for name, decoding into any.
func NewCodec(name string) (codec.Codec[any], error) {
	switch name {
	case "msgpack", "":
		return codec.Msgpack[any]{}, nil
	case "cbor":
		return codec.NewCBOR[any](true)
	case "json":
		return codec.JSON[any]{}, nil
	}
	return nil, fmt.Errorf("engine: unknown codec %q", name)
}

// NewLogger builds the configured logger writing to w. The returned flush
// func must be called before exit.
func NewLogger(cfg config.Log, w io.Writer) (assetcache.Logger, func() error, error) {
	level := strings.ToLower(cfg.Level)
	switch cfg.Backend {
	case "zap":
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		l := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl))
		return zaplog.New(l), l.Sync, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: %w", err)
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		return logruslog.New(l), noflush, nil
	case "slog", "":
		l, err := NewSlog(cfg, w)
		if err != nil {
			return nil, nil, err
		}
		return sloglog.New(l), noflush, nil
	}
	return nil, nil, fmt.Errorf("engine: unknown log backend %q", cfg.Backend)
}

// NewSlog returns a text slog.Logger at cfg's level.
func NewSlog(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// NewHooks reports cache events through l off the cache's lock. Close the
// returned hooks to flush queued events.
func NewHooks(l *slog.Logger) *asynchook.Hooks {
	return asynchook.New(sloghooks.New(l, sloghooks.Options{DecodeRejectedEvery: 100}), 1, 256)
}

// OpenCache opens cfg's backend and builds a cache over it.
func OpenCache(ctx context.Context, cfg config.Config, log assetcache.Logger, hooks assetcache.Hooks) (assetcache.Cache[any], error) {
	fv, err := cfg.ParsedFormatVersion()
	if err != nil {
		return nil, err
	}
	cd, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	be, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := assetcache.New[any](ctx, assetcache.Options[any]{
		Namespace:     cfg.Namespace,
		Version:       cfg.Version,
		Backend:       be,
		Codec:         cd,
		FormatVersion: fv,
		MaxSize:       cfg.MaxSize,
		MaxValueSize:  cfg.MaxValueSize,
		Logger:        log,
		Hooks:         hooks,
	})
	if err != nil {
		_ = be.Close(ctx)
		return nil, err
	}
	return c, nil
}

func noflush() error { return nil }

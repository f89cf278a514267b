// Package sloghooks reports cache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/assetcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DecodeRejectedEvery uint64
	EvictedEvery        uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	rejectCtr atomic.Uint64
	evictCtr  atomic.Uint64
}

var _ assetcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) DecodeRejected(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.DecodeRejectedEvery, &h.rejectCtr) {
		return
	}
	h.l.Debug("assetcache.decode_rejected",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) BackendSetFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("assetcache.backend_set_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) EvictDeleteFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("assetcache.evict_delete_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) Evicted(ns string, removed int, elapsed time.Duration) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictCtr) {
		return
	}
	h.l.Info("assetcache.evicted",
		"ns", ns,
		"removed", removed,
		"elapsed", elapsed)
}

func (h *Hooks) Loaded(ns string, loaded, skipped int) {
	if h.l == nil {
		return
	}
	h.l.Info("assetcache.loaded",
		"ns", ns,
		"loaded", loaded,
		"skipped", skipped)
}

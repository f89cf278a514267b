package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/assetcache"
)

func TestAttrsSortedAndLevelFiltered(t *testing.T) {
	var buf bytes.Buffer
	l := New(stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})))

	l.Debug("hidden", assetcache.Fields{"a": 1})
	l.Info("cache loaded", assetcache.Fields{"skipped": 0, "loaded": 12})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
	li, si := strings.Index(out, "loaded=12"), strings.Index(out, "skipped=0")
	if li < 0 || si < 0 || li > si {
		t.Fatalf("attrs missing or unsorted: %s", out)
	}
}

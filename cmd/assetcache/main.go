// Command assetcache inspects and maintains an asset cache store.
//
//	assetcache -c assetcache.yaml stats
//	assetcache gc --max-size 5000
//	assetcache get '["compile","app.scss"]' --json-key
//	assetcache purge --force
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "assetcache: %v\n", err)
		stop()
		os.Exit(1)
	}
}

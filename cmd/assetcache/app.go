package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/assetcache"
	asynchook "github.com/unkn0wn-root/assetcache/hooks/async"
	"github.com/unkn0wn-root/assetcache/internal/config"
	"github.com/unkn0wn-root/assetcache/internal/engine"
)

var errMiss = errors.New("key not found")

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "assetcache",
		Usage: "inspect and maintain an asset cache store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Sources: cli.EnvVars("ASSETCACHE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "summarize the entries the store holds",
				Action: statsAction,
			},
			{
				Name:  "gc",
				Usage: "open the cache, evicting down to the threshold if over capacity",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-size", Usage: "override max_size from the config"},
				},
				Action: gcAction,
			},
			{
				Name:      "get",
				Usage:     "print the value stored under a key",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json-key", Usage: "parse <key> as a JSON value instead of a string"},
				},
				Action: getAction,
			},
			{
				Name:  "purge",
				Usage: "delete every entry of the configured namespace and version",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "required; purge cannot be undone"},
				},
				Action: purgeAction,
			},
		},
	}
}

// env is what every action sets up from the config file.
type env struct {
	cfg   config.Config
	out   io.Writer
	log   assetcache.Logger
	hooks *asynchook.Hooks
	flush func() error
}

func setup(cmd *cli.Command) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	logger, flush, err := engine.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	sl, err := engine.NewSlog(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, out: cmd.Root().Writer, log: logger, hooks: engine.NewHooks(sl), flush: flush}, nil
}

func (e *env) close() {
	e.hooks.Close()
	_ = e.flush()
}

func (e *env) openCache(ctx context.Context) (assetcache.Cache[any], error) {
	return engine.OpenCache(ctx, e.cfg, e.log, e.hooks)
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	kc, err := engine.KeyCodec(e.cfg)
	if err != nil {
		return err
	}
	want, err := e.cfg.ParsedFormatVersion()
	if err != nil {
		return err
	}
	be, err := engine.OpenBackend(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer be.Close(ctx)

	st, err := engine.Scan(ctx, be, kc, want)
	if err != nil {
		return err
	}
	formats := make([]string, 0, len(st.Formats))
	for _, v := range st.SortedFormats() {
		formats = append(formats, fmt.Sprintf("%d.%d=%s", v.Major, v.Minor, humanize.Comma(int64(st.Formats[v]))))
	}
	fmt.Fprintf(e.out, "namespace  %s\n", kc.Prefix())
	fmt.Fprintf(e.out, "backend    %s\n", describeBackend(e.cfg.Backend))
	fmt.Fprintf(e.out, "entries    %s (max %s)\n", humanize.Comma(int64(st.Entries)), humanize.Comma(int64(e.cfg.MaxSize)))
	fmt.Fprintf(e.out, "size       %s\n", humanize.Bytes(uint64(st.Bytes)))
	fmt.Fprintf(e.out, "readable   %s\n", humanize.Comma(int64(st.Readable)))
	fmt.Fprintf(e.out, "foreign    %s\n", humanize.Comma(int64(st.Foreign)))
	fmt.Fprintf(e.out, "formats    %s\n", strings.Join(formats, " "))
	return nil
}

func gcAction(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	if n := cmd.Int("max-size"); n > 0 {
		e.cfg.MaxSize = n
	}

	c, err := e.openCache(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)
	fmt.Fprintf(e.out, "resident %s (max %s)\n", humanize.Comma(int64(c.Len())), humanize.Comma(int64(e.cfg.MaxSize)))
	return nil
}

func getAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("get: want exactly one <key>, got %d args", cmd.Args().Len())
	}
	var key any = cmd.Args().First()
	if cmd.Bool("json-key") {
		if err := json.Unmarshal([]byte(cmd.Args().First()), &key); err != nil {
			return fmt.Errorf("get: parse key: %w", err)
		}
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	c, err := e.openCache(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)

	v, ok, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errMiss
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(e.out, "%v\n", v)
		return nil
	}
	fmt.Fprintf(e.out, "%s\n", b)
	return nil
}

func purgeAction(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("force") {
		return errors.New("purge: refusing to delete without --force")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	kc, err := engine.KeyCodec(e.cfg)
	if err != nil {
		return err
	}
	be, err := engine.OpenBackend(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer be.Close(ctx)

	n, err := engine.Purge(ctx, be, kc)
	fmt.Fprintf(e.out, "purged %s entries from %s\n", humanize.Comma(int64(n)), kc.Prefix())
	return err
}

func describeBackend(b config.Backend) string {
	switch b.Type {
	case config.BackendSQLite:
		return fmt.Sprintf("sqlite (%s)", b.Path)
	case config.BackendFS:
		return fmt.Sprintf("fs (%s)", b.Dir)
	case config.BackendRedis:
		return fmt.Sprintf("redis (%s db %d)", b.Redis.Addr, b.Redis.DB)
	}
	return b.Type
}

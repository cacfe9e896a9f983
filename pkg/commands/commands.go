package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/acorn-io/dns01-hook/pkg/backend"
	"github.com/acorn-io/dns01-hook/pkg/config"
	"github.com/acorn-io/dns01-hook/pkg/hook"
	"github.com/acorn-io/dns01-hook/pkg/zones"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func GetCommands() []*cli.Command {
	return []*cli.Command{
		serverCommand(),
		tokenCommand(),
		zonesCommand(),
		versionCommand(),
	}
}

var (
	signalOnce sync.Once
	signalCtx  context.Context
)

// signalContext is cancelled on SIGINT or SIGTERM. The handler can only be
// installed once per process.
func signalContext() context.Context {
	signalOnce.Do(func() {
		signalCtx = signals.SetupSignalHandler(context.Background())
	})
	return signalCtx
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		logrus.Debugf("using config file %s", cfg.Source)
	}
	return cfg, nil
}

// connection is everything needed to change challenge records.
type connection struct {
	manager   *backend.Manager
	directory *zones.Directory
	resolver  *zones.Resolver
}

func connect(ctx context.Context, cfg *config.Config) (*connection, error) {
	provider, err := backend.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	directory, err := zones.Load(ctx, cfg.ZonesFile, provider)
	if err != nil {
		return nil, fmt.Errorf("loading zones: %w", err)
	}
	logrus.Debugf("loaded %d zone(s) from provider %s", directory.Len(), cfg.Provider)

	return &connection{
		manager:   backend.NewManager(provider, cfg.RecordTTL, cfg.CleanExactMatch),
		directory: directory,
		resolver:  zones.NewResolver(directory, cfg.ChallengeSuffix, cfg.ZoneGuessPSL),
	}, nil
}

func connectFunc(cfg *config.Config) hook.ConnectFunc {
	return func(ctx context.Context) (hook.Lifecycle, hook.Resolver, error) {
		conn, err := connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return conn.manager, conn.resolver, nil
	}
}
